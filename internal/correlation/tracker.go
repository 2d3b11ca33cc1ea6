package correlation

import (
	"encoding/json"
	"errors"
	"sync"

	"askyourdocs-client/internal/entity"

	"github.com/google/uuid"
)

var (
	// ErrRequestInProgress rejects a second question while one is pending.
	ErrRequestInProgress = errors.New("a request is already in progress")

	// ErrNoPendingRequest marks an inbound message with nothing to answer,
	// e.g. one that arrives after a clear() superseded the request.
	ErrNoPendingRequest = errors.New("no request pending")

	// ErrMalformedAnswer marks an inbound payload that does not parse as
	// an answer message.
	ErrMalformedAnswer = errors.New("malformed answer payload")
)

// answerMessage is the wire shape of one inbound answer. The three arrays
// are positionally correlated: index i describes one citation.
type answerMessage struct {
	Answer string   `json:"answer"`
	DocIds []string `json:"doc_ids"`
	Texts  []string `json:"texts"`
	Names  []string `json:"names"`
}

// Tracker matches outbound questions to inbound answers. The protocol has
// no correlation identifiers, so matching is positional: exactly one
// request may be pending, and the next inbound message answers it.
type Tracker struct {
	mu        sync.Mutex
	pendingId string
	question  string
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// BeginRequest marks a question as awaiting its answer and returns the
// local request id.
func (t *Tracker) BeginRequest(question string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pendingId != "" {
		return "", ErrRequestInProgress
	}
	t.pendingId = uuid.NewString()
	t.question = question
	return t.pendingId, nil
}

// HandleAnswer parses a raw inbound payload and completes the pending
// request. On success it returns the assistant entry to append (id unset)
// and the completed request id. On a malformed payload the pending state
// is left untouched; the caller decides whether to cancel.
func (t *Tracker) HandleAnswer(raw []byte) (*entity.TranscriptEntry, string, error) {
	t.mu.Lock()
	pendingId := t.pendingId
	t.mu.Unlock()
	if pendingId == "" {
		return nil, "", ErrNoPendingRequest
	}

	var msgs []answerMessage
	if err := json.Unmarshal(raw, &msgs); err != nil {
		return nil, "", ErrMalformedAnswer
	}
	if len(msgs) != 1 {
		return nil, "", ErrMalformedAnswer
	}
	msg := msgs[0]

	entry := &entity.TranscriptEntry{
		Role:      entity.RoleAssistant,
		Text:      msg.Answer,
		Citations: zipCitations(msg),
	}

	t.mu.Lock()
	t.pendingId = ""
	t.question = ""
	t.mu.Unlock()

	return entry, pendingId, nil
}

// Cancel drops the pending request without producing a transcript entry.
func (t *Tracker) Cancel() {
	t.mu.Lock()
	t.pendingId = ""
	t.question = ""
	t.mu.Unlock()
}

// Pending reports whether a request awaits its answer. This is exactly the
// typing-indicator truth value.
func (t *Tracker) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pendingId != ""
}

// PendingId returns the in-flight request id, or empty.
func (t *Tracker) PendingId() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pendingId
}

// PendingQuestion returns the question text awaiting an answer.
func (t *Tracker) PendingQuestion() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.question
}

func zipCitations(msg answerMessage) []entity.Citation {
	if len(msg.DocIds) == 0 {
		return nil
	}
	citations := make([]entity.Citation, 0, len(msg.DocIds))
	for i, docId := range msg.DocIds {
		citation := entity.Citation{SourceId: docId}
		if i < len(msg.Texts) {
			citation.Excerpt = msg.Texts[i]
		}
		if i < len(msg.Names) {
			citation.Name = msg.Names[i]
		}
		citations = append(citations, citation)
	}
	return citations
}
