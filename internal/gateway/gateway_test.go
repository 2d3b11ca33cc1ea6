package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"askyourdocs-client/internal/auth"

	"github.com/stretchr/testify/assert"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *auth.StaticProvider) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	creds := &auth.StaticProvider{TokenValue: "test-token"}
	return NewClient(server.URL, creds, 5*time.Second), creds
}

func TestFeedbackSubmit(t *testing.T) {
	var received FeedbackRequest
	var gotAuth string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ingest_feedback", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&received)
		json.NewEncoder(w).Encode(map[string]string{"data": "ok"})
	}))

	gw := NewFeedbackGateway(client)
	err := gw.Submit(context.Background(), FeedbackRequest{
		FeedbackType: "negative",
		FeedbackText: "answer was off topic",
		FeedbackTo:   "Q: hi there\nA: Hello!",
		Email:        "user@example.com",
	})

	assert.NoError(t, err)
	assert.Equal(t, "test-token", gotAuth)
	assert.Equal(t, "negative", received.FeedbackType)
	assert.Equal(t, "answer was off topic", received.FeedbackText)
}

func TestFeedbackSubmitValidation(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("invalid feedback must not reach the wire")
	}))
	gw := NewFeedbackGateway(client)

	t.Run("bad feedback type", func(t *testing.T) {
		err := gw.Submit(context.Background(), FeedbackRequest{
			FeedbackType: "meh",
			FeedbackTo:   "Q/A pair",
		})
		assert.Error(t, err)
	})

	t.Run("bad email", func(t *testing.T) {
		err := gw.Submit(context.Background(), FeedbackRequest{
			FeedbackType: "positive",
			FeedbackTo:   "Q/A pair",
			Email:        "not-an-email",
		})
		assert.Error(t, err)
	})
}

func TestCitationResolve(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/get_documents_by_id", r.URL.Path)
		assert.Equal(t, "doc-a", r.URL.Query().Get("id"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]string{
				{"id": "doc-a", "name": "vaccines.pdf", "source": "uploads/vaccines.pdf"},
			},
		})
	}))

	gw := NewCitationGateway(client)
	ref, err := gw.Resolve(context.Background(), "doc-a")

	assert.NoError(t, err)
	assert.Equal(t, "doc-a", ref.Id)
	assert.Equal(t, "vaccines.pdf", ref.Name)
	assert.Contains(t, ref.URL, "/uploads/vaccines.pdf")
}

func TestCitationResolveNotFound(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"data": []interface{}{}})
	}))

	gw := NewCitationGateway(client)
	_, err := gw.Resolve(context.Background(), "ghost")
	assert.Error(t, err)
}

func TestDocumentList(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/get_documents", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]string{
				{"id": "doc-a", "name": "vaccines.pdf"},
				{"id": "doc-b", "name": "report.pdf"},
			},
		})
	}))

	gw := NewDocumentGateway(client)
	docs, err := gw.List(context.Background())

	assert.NoError(t, err)
	assert.Len(t, docs, 2)
	assert.Equal(t, DocumentInfo{Id: "doc-a", Name: "vaccines.pdf"}, docs[0])
}

func TestErrorNormalization(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		expect error
	}{
		{"server error", http.StatusInternalServerError, `{}`, ErrInternal},
		{"unauthorized", http.StatusUnauthorized, `{}`, ErrLoginRequired},
		{"forbidden", http.StatusForbidden, `{}`, ErrForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, creds := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))

			gw := NewDocumentGateway(client)
			_, err := gw.List(context.Background())
			assert.ErrorIs(t, err, tc.expect)

			if tc.status == http.StatusUnauthorized {
				assert.True(t, creds.LoggedOut)
			}
		})
	}

	t.Run("backend error field passed through", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"document too large"}`))
		}))

		gw := NewDocumentGateway(client)
		_, err := gw.List(context.Background())
		assert.EqualError(t, err, "list documents: document too large")
	})
}
