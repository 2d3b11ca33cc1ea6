package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"askyourdocs-client/internal/config"
	"askyourdocs-client/internal/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{}
	cfg.App.Port = "0"
	cfg.App.UploadsDir = t.TempDir()
	cfg.App.CorsAllowedOrigins = "*"
	return New(cfg, logger.NewNopLogger())
}

func testToken(t *testing.T) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":        "tester",
		"given_name": "Tester",
	}).SignedString([]byte("test-secret"))
	assert.NoError(t, err)
	return token
}

func authedRequest(t *testing.T, method, target string, body []byte) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.Header.Set("Authorization", "Bearer "+testToken(t))
	return req
}

func decodeBody(t *testing.T, res *http.Response, out interface{}) {
	t.Helper()
	assert.NoError(t, json.NewDecoder(res.Body).Decode(out))
	res.Body.Close()
}

func TestFeedbackEndpoint(t *testing.T) {
	s := newTestServer(t)
	payload, _ := json.Marshal(map[string]string{
		"feedbackType": "negative",
		"feedbackText": "answer missed the point",
		"feedbackTo":   "Q: hi there\nA: Hello!",
		"email":        "user@example.com",
	})

	res, err := s.App().Test(authedRequest(t, http.MethodPost, "/api/ingest_feedback", payload))

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestFeedbackRejectsUnknownType(t *testing.T) {
	s := newTestServer(t)
	payload, _ := json.Marshal(map[string]string{
		"feedbackType": "meh",
		"feedbackTo":   "Q/A pair",
	})

	res, err := s.App().Test(authedRequest(t, http.MethodPost, "/api/ingest_feedback", payload))

	assert.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestApiRequiresToken(t *testing.T) {
	s := newTestServer(t)

	res, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/api/get_documents", nil))

	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestApiAcceptsRawTokenHeader(t *testing.T) {
	// The chat client sends the token without a Bearer prefix.
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/get_documents", nil)
	req.Header.Set("Authorization", testToken(t))

	res, err := s.App().Test(req)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestWildcardCorsOrigin(t *testing.T) {
	// newTestServer configures CORS_ALLOWED_ORIGINS="*"; constructing the
	// server must not blow up and requests must still be served.
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/get_documents", nil)
	req.Header.Set("Authorization", "Bearer "+testToken(t))
	req.Header.Set("Origin", "http://localhost:3000")

	res, err := s.App().Test(req)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "*", res.Header.Get("Access-Control-Allow-Origin"))
}

func TestDocumentListingAndLookup(t *testing.T) {
	s := newTestServer(t)
	doc := s.docs.Add("vaccines.pdf")
	s.docs.Add("measles.pdf")

	res, err := s.App().Test(authedRequest(t, http.MethodGet, "/api/get_documents", nil))
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	var listing struct {
		Data []documentResponse `json:"data"`
	}
	decodeBody(t, res, &listing)
	assert.Len(t, listing.Data, 2)
	assert.Equal(t, "vaccines.pdf", listing.Data[0].Name)
	assert.Equal(t, "uploads/vaccines.pdf", listing.Data[0].Source)

	res, err = s.App().Test(authedRequest(t, http.MethodGet, "/api/get_documents_by_id?id="+doc.Id, nil))
	assert.NoError(t, err)

	var lookup struct {
		Data []documentResponse `json:"data"`
	}
	decodeBody(t, res, &lookup)
	assert.Len(t, lookup.Data, 1)
	assert.Equal(t, doc.Id, lookup.Data[0].Id)

	res, err = s.App().Test(authedRequest(t, http.MethodGet, "/api/get_documents_by_id?id=ghost", nil))
	assert.NoError(t, err)
	var empty struct {
		Data []documentResponse `json:"data"`
	}
	decodeBody(t, res, &empty)
	assert.Empty(t, empty.Data)
}

func TestDocumentDelete(t *testing.T) {
	s := newTestServer(t)
	doc := s.docs.Add("vaccines.pdf")

	res, err := s.App().Test(authedRequest(t, http.MethodDelete, "/api/delete_document?id="+doc.Id, nil))
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Empty(t, s.docs.List())

	res, err = s.App().Test(authedRequest(t, http.MethodDelete, "/api/delete_document?id="+doc.Id, nil))
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestQueryRouteRequiresToken(t *testing.T) {
	s := newTestServer(t)

	res, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/ws/query", nil))

	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestAnswerScriptShapes(t *testing.T) {
	script := newAnswerScript()

	empty := script.Answer("anything", nil)
	assert.Empty(t, empty.DocIds)
	assert.Contains(t, empty.Answer, "no documents")

	docs := []storedDocument{{Id: "a", Name: "a.pdf"}, {Id: "b", Name: "b.pdf"}}
	answer := script.Answer("which vaccines?", docs)
	assert.Equal(t, []string{"a", "a", "b"}, answer.DocIds)
	assert.Len(t, answer.Texts, 3)
	assert.Equal(t, []string{"a.pdf", "a.pdf", "b.pdf"}, answer.Names)
}
