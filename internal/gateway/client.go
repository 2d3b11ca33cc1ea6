package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"askyourdocs-client/internal/auth"
)

// Error messages mirror what the chat surface shows the user. Anything the
// backend does not explain gets the generic internal error line.
var (
	ErrLoginRequired = errors.New("Login required.")
	ErrForbidden     = errors.New("You do not have the right to perform this operation.")
	ErrInternal      = errors.New("An internal error occurred. Please try again in a few seconds.")
)

// Client wraps the REST side of the backend: auth header injection and
// status-code normalization shared by the feedback, citation and document
// gateways.
type Client struct {
	baseURL string
	http    *http.Client
	creds   auth.CredentialProvider
}

func NewClient(baseURL string, creds auth.CredentialProvider, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		creds:   creds,
	}
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, in, out interface{}) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) deleteJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) postMultipart(ctx context.Context, path, filename string, file io.Reader, out interface{}) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("copy file payload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return c.do(req, out)
}

// do sends the request with the auth header attached and maps the response
// onto the shared error taxonomy.
func (c *Client) do(req *http.Request, out interface{}) error {
	token, err := c.creds.Token(req.Context())
	if err != nil {
		return fmt.Errorf("resolve auth token: %w", err)
	}
	req.Header.Set("Authorization", token)
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return ErrInternal
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return ErrInternal
	}

	switch {
	case res.StatusCode >= 500:
		return ErrInternal
	case res.StatusCode == http.StatusUnauthorized:
		c.creds.Logout()
		return ErrLoginRequired
	case res.StatusCode == http.StatusForbidden:
		return ErrForbidden
	case res.StatusCode >= 400:
		var payload struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(resBody, &payload); err == nil && payload.Error != "" {
			return errors.New(payload.Error)
		}
		return ErrInternal
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
