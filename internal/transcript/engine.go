package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"askyourdocs-client/internal/constant"
	"askyourdocs-client/internal/entity"
	"askyourdocs-client/internal/pkg/logger"
	"askyourdocs-client/internal/store"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// ErrInvalidEntry is returned when an entry id is out of range or refers
// to the greeting entry at index 0.
var ErrInvalidEntry = errors.New("invalid transcript entry")

// ChangedEvent is the payload published on the transcript.changed topic.
// The presentation layer uses it to re-render and drive auto-scroll.
type ChangedEvent struct {
	Length int `json:"length"`
}

// Engine owns the append-only conversation log. Every successful mutation
// is written through to the session store and announced on the event bus.
// Entries are immutable after creation except for Sentiment.
type Engine struct {
	mu      sync.Mutex
	entries []entity.TranscriptEntry

	store  store.Store
	pubSub *gochannel.GoChannel
	log    logger.ILogger
}

func NewEngine(st store.Store, pubSub *gochannel.GoChannel, log logger.ILogger) *Engine {
	return &Engine{
		entries: make([]entity.TranscriptEntry, 0),
		store:   st,
		pubSub:  pubSub,
		log:     log,
	}
}

// Append adds an entry to the end of the transcript and returns its id.
// The id is the entry's creation index; it never changes afterwards.
// Append never fails: a persistence error is logged and swallowed.
func (e *Engine) Append(entry entity.TranscriptEntry) int {
	e.mu.Lock()
	entry.Id = len(e.entries)
	e.entries = append(e.entries, entry.Clone())
	snapshot := e.snapshotLocked()
	e.mu.Unlock()

	e.persist(snapshot)
	e.notify(len(snapshot))
	return entry.Id
}

// SetSentiment overwrites the sentiment of an existing entry. Re-rating is
// allowed; the greeting entry at index 0 is exempt from rating.
func (e *Engine) SetSentiment(id int, sentiment entity.Sentiment) error {
	e.mu.Lock()
	if id <= 0 || id >= len(e.entries) {
		e.mu.Unlock()
		return ErrInvalidEntry
	}
	e.entries[id].Sentiment = sentiment
	snapshot := e.snapshotLocked()
	e.mu.Unlock()

	e.persist(snapshot)
	e.notify(len(snapshot))
	return nil
}

// ReplaceAll swaps the whole transcript atomically. Only restore-from-store
// and clear() use it; observers never see a partial transcript.
func (e *Engine) ReplaceAll(entries []entity.TranscriptEntry) {
	copied := make([]entity.TranscriptEntry, len(entries))
	for i, entry := range entries {
		copied[i] = entry.Clone()
	}

	e.mu.Lock()
	e.entries = copied
	snapshot := e.snapshotLocked()
	e.mu.Unlock()

	e.persist(snapshot)
	e.notify(len(snapshot))
}

// Snapshot returns a deep copy of the transcript in creation order.
func (e *Engine) Snapshot() []entity.TranscriptEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Entry returns a copy of the entry with the given id.
func (e *Engine) Entry(id int) (entity.TranscriptEntry, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if id < 0 || id >= len(e.entries) {
		return entity.TranscriptEntry{}, false
	}
	return e.entries[id].Clone(), true
}

func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.entries)
}

func (e *Engine) snapshotLocked() []entity.TranscriptEntry {
	out := make([]entity.TranscriptEntry, len(e.entries))
	for i, entry := range e.entries {
		out[i] = entry.Clone()
	}
	return out
}

// persist writes the full record through to the store. Failure never rolls
// back the in-memory transcript; a reload simply sees the last good write.
func (e *Engine) persist(snapshot []entity.TranscriptEntry) {
	session := &entity.Session{Transcript: snapshot}
	if err := e.store.Save(context.Background(), session); err != nil {
		e.log.Warn("Transcript", "Session persistence failed", map[string]interface{}{
			"error":  err.Error(),
			"length": len(snapshot),
		})
	}
}

func (e *Engine) notify(length int) {
	payload, _ := json.Marshal(ChangedEvent{Length: length})
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := e.pubSub.Publish(constant.TranscriptChangedTopic, msg); err != nil {
		e.log.Warn("Transcript", "Change notification failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
