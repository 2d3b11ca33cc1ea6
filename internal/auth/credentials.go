package auth

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNoToken = errors.New("no auth token configured")

// CredentialProvider is the injected capability handed to the transport
// channel and HTTP client. It replaces ambient global token state.
type CredentialProvider interface {
	Token(ctx context.Context) (string, error)
	GivenName() string
	Subject() string
	Logout()
}

// TokenProvider carries a bearer token issued by the identity provider and
// exposes the profile claims the chat surface needs. The token signature is
// not verified here; the backend is the verifying party.
type TokenProvider struct {
	token     string
	givenName string
	email     string
	subject   string
	onLogout  func()
}

type profileClaims struct {
	GivenName string `json:"given_name"`
	Email     string `json:"email"`
	jwt.RegisteredClaims
}

func NewTokenProvider(token string, onLogout func()) *TokenProvider {
	p := &TokenProvider{token: token, onLogout: onLogout}

	claims := &profileClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err == nil {
		p.givenName = claims.GivenName
		p.email = claims.Email
		p.subject = claims.Subject
	}
	return p
}

func (p *TokenProvider) Token(_ context.Context) (string, error) {
	if p.token == "" {
		return "", ErrNoToken
	}
	return p.token, nil
}

func (p *TokenProvider) GivenName() string {
	return p.givenName
}

func (p *TokenProvider) Email() string {
	return p.email
}

// Subject identifies the user; it keys the session store record. Falls
// back to "anonymous" for tokens without a subject claim.
func (p *TokenProvider) Subject() string {
	if p.subject == "" {
		return "anonymous"
	}
	return p.subject
}

func (p *TokenProvider) Logout() {
	if p.onLogout != nil {
		p.onLogout()
	}
}

// StaticProvider returns fixed values. Test helper.
type StaticProvider struct {
	TokenValue string
	Name       string
	LoggedOut  bool
}

func (s *StaticProvider) Token(_ context.Context) (string, error) {
	return s.TokenValue, nil
}

func (s *StaticProvider) GivenName() string { return s.Name }

func (s *StaticProvider) Subject() string { return "static" }

func (s *StaticProvider) Logout() { s.LoggedOut = true }
