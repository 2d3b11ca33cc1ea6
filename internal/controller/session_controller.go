package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"askyourdocs-client/internal/channel"
	"askyourdocs-client/internal/constant"
	"askyourdocs-client/internal/correlation"
	"askyourdocs-client/internal/entity"
	"askyourdocs-client/internal/gateway"
	"askyourdocs-client/internal/pkg/logger"
	"askyourdocs-client/internal/store"
	"askyourdocs-client/internal/transcript"
)

// outboundMessage is the wire shape of a question. Context carries prior
// transcript turns; simpler backends ignore it.
type outboundMessage struct {
	Data    string        `json:"data"`
	Context []contextTurn `json:"context,omitempty"`
}

type contextTurn struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// FeedbackDraft pre-fills the feedback capture flow with the rated
// question/answer pair.
type FeedbackDraft struct {
	EntryId   int
	Sentiment entity.Sentiment
	Question  string
	Answer    string
}

// CitationView is handed to the document viewer overlay.
type CitationView struct {
	URL      string
	Name     string
	Excerpts []string
}

// Options tune presentation hooks and timing. Zero values give a headless
// controller that confirms nothing and renders nowhere.
type Options struct {
	// SendContext attaches prior turns to outbound questions.
	SendContext bool

	// EasterEggDelay overrides the scripted reply delay. Tests shrink it.
	EasterEggDelay time.Duration

	// Confirm gates Clear(). Nil means never confirmed.
	Confirm func() bool

	// OnFeedbackPrompt opens the feedback capture flow after a rating.
	OnFeedbackPrompt func(draft FeedbackDraft)

	// OnCitation displays a resolved document.
	OnCitation func(view CitationView)

	// Email attached to submitted feedback records.
	Email string
}

type ISessionController interface {
	Start(ctx context.Context)
	Submit(ctx context.Context, question string) error
	Clear(ctx context.Context) bool
	Rate(ctx context.Context, entryId int, sentiment entity.Sentiment) error
	SendFeedback(ctx context.Context, draft FeedbackDraft, freeText string)
	OpenCitation(ctx context.Context, entryId int, sourceId string) error
	Typing() bool
	Transcript() []entity.TranscriptEntry
	DedupedCitations(entry entity.TranscriptEntry) []entity.Citation
	Stop()
}

type sessionController struct {
	engine      *transcript.Engine
	tracker     *correlation.Tracker
	sessions    store.Store
	newChannel  channel.Factory
	feedbackGw  gateway.IFeedbackGateway
	citationGw  gateway.ICitationGateway
	log         logger.ILogger
	opts        Options

	mu       sync.Mutex
	ch       channel.Channel
	eggTimer *time.Timer
	stopped  bool
}

func NewSessionController(
	engine *transcript.Engine,
	tracker *correlation.Tracker,
	sessions store.Store,
	newChannel channel.Factory,
	feedbackGw gateway.IFeedbackGateway,
	citationGw gateway.ICitationGateway,
	log logger.ILogger,
	opts Options,
) ISessionController {
	if opts.EasterEggDelay == 0 {
		opts.EasterEggDelay = constant.EasterEggReplyDelay
	}
	return &sessionController{
		engine:     engine,
		tracker:    tracker,
		sessions:   sessions,
		newChannel: newChannel,
		feedbackGw: feedbackGw,
		citationGw: citationGw,
		log:        log,
		opts:       opts,
	}
}

// Start restores the prior session from the store, or initializes a fresh
// transcript with the greeting entry, then opens the channel best-effort.
// The chat stays usable when the open fails; Submit retries.
func (c *sessionController) Start(ctx context.Context) {
	if session, ok := c.sessions.Load(ctx); ok {
		c.engine.ReplaceAll(session.Transcript)
		c.log.Info("Controller", "Session restored", map[string]interface{}{
			"entries": len(session.Transcript),
		})
	} else {
		c.engine.ReplaceAll([]entity.TranscriptEntry{greetingEntry()})
	}

	if _, err := c.ensureChannel(ctx); err != nil {
		c.log.Warn("Controller", "Initial channel open failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// Submit sends a question over the channel. Questions below the minimum
// length and questions submitted while another is pending are no-ops. The
// trigger phrase bypasses the backend entirely.
func (c *sessionController) Submit(ctx context.Context, question string) error {
	question = strings.TrimSpace(question)
	if utf8.RuneCountInString(question) < constant.ChatMinQuestionLength {
		c.log.Debug("Controller", "Question below minimum length, ignored", nil)
		return nil
	}
	if c.tracker.Pending() {
		c.log.Debug("Controller", "Submit ignored, request already pending", nil)
		return nil
	}

	if question == constant.EasterEggTrigger {
		c.playEasterEgg()
		return nil
	}

	priorTurns := c.contextTurns()

	if _, err := c.tracker.BeginRequest(question); err != nil {
		return err
	}
	c.engine.Append(entity.TranscriptEntry{Role: entity.RoleUser, Text: question})

	ch, err := c.ensureChannel(ctx)
	if err != nil {
		// Pending must not stay stuck: clear it so the user can retry.
		c.tracker.Cancel()
		c.log.Error("Controller", "Channel open failed on submit", map[string]interface{}{
			"error": err.Error(),
		})
		return err
	}

	msg := outboundMessage{Data: question}
	if c.opts.SendContext {
		msg.Context = priorTurns
	}
	payload, _ := json.Marshal(msg)

	if err := ch.Send(payload); err != nil {
		c.tracker.Cancel()
		c.log.Error("Controller", "Send failed", map[string]interface{}{
			"error": err.Error(),
		})
		return err
	}
	return nil
}

// playEasterEgg injects a scripted exchange after a fixed delay without
// touching the network. The typing indicator stays on for the duration.
func (c *sessionController) playEasterEgg() {
	if _, err := c.tracker.BeginRequest(constant.EasterEggUserText); err != nil {
		return
	}
	c.mu.Lock()
	c.eggTimer = time.AfterFunc(c.opts.EasterEggDelay, func() {
		c.mu.Lock()
		c.eggTimer = nil
		stopped := c.stopped
		c.mu.Unlock()
		if stopped {
			return
		}
		c.engine.Append(entity.TranscriptEntry{Role: entity.RoleUser, Text: constant.EasterEggUserText})
		c.engine.Append(entity.TranscriptEntry{Role: entity.RoleAssistant, Text: constant.EasterEggReply})
		c.tracker.Cancel()
	})
	c.mu.Unlock()
}

// stopEggTimer cancels a scripted reply still waiting on its delay, so a
// clear or shutdown in that window never resurrects the exchange.
func (c *sessionController) stopEggTimer() {
	c.mu.Lock()
	timer := c.eggTimer
	c.eggTimer = nil
	c.mu.Unlock()
	if timer != nil {
		timer.Stop()
	}
}

// Clear resets the session to a single greeting entry after interactive
// confirmation. Reports whether the clear actually happened.
func (c *sessionController) Clear(ctx context.Context) bool {
	if c.opts.Confirm == nil || !c.opts.Confirm() {
		return false
	}

	c.mu.Lock()
	ch := c.ch
	c.ch = nil
	c.mu.Unlock()
	if ch != nil {
		ch.Close()
	}

	c.stopEggTimer()
	c.tracker.Cancel()
	c.engine.ReplaceAll([]entity.TranscriptEntry{greetingEntry()})

	// Fresh channel for subsequent use; opened lazily by the next Submit.
	c.mu.Lock()
	if !c.stopped {
		c.ch = c.newChannel()
	}
	c.mu.Unlock()

	c.log.Info("Controller", "Session cleared", nil)
	return true
}

// Rate records the sentiment on a transcript entry and opens the feedback
// capture flow pre-filled with the surrounding question/answer pair.
func (c *sessionController) Rate(ctx context.Context, entryId int, sentiment entity.Sentiment) error {
	if err := c.engine.SetSentiment(entryId, sentiment); err != nil {
		return err
	}

	entry, _ := c.engine.Entry(entryId)
	draft := FeedbackDraft{
		EntryId:   entryId,
		Sentiment: sentiment,
		Question:  c.precedingQuestion(entryId),
		Answer:    entry.Text,
	}
	if c.opts.OnFeedbackPrompt != nil {
		c.opts.OnFeedbackPrompt(draft)
	}
	return nil
}

// SendFeedback fires the feedback record at the backend. Failures are
// logged, never surfaced; the chat flow is unaffected.
func (c *sessionController) SendFeedback(ctx context.Context, draft FeedbackDraft, freeText string) {
	request := gateway.FeedbackRequest{
		FeedbackType: string(draft.Sentiment),
		FeedbackText: freeText,
		FeedbackTo:   fmt.Sprintf("Q: %s\nA: %s", draft.Question, draft.Answer),
		Email:        c.opts.Email,
	}
	go func() {
		if err := c.feedbackGw.Submit(ctx, request); err != nil {
			c.log.Warn("Controller", "Feedback submission failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()
}

// OpenCitation resolves a cited document and hands it to the viewer,
// scrolled to the entry's excerpts for that source.
func (c *sessionController) OpenCitation(ctx context.Context, entryId int, sourceId string) error {
	entry, ok := c.engine.Entry(entryId)
	if !ok || entryId == 0 || entry.Role != entity.RoleAssistant {
		return transcript.ErrInvalidEntry
	}

	excerpts := make([]string, 0)
	for _, citation := range entry.Citations {
		if citation.SourceId == sourceId {
			excerpts = append(excerpts, citation.Excerpt)
		}
	}
	if len(excerpts) == 0 {
		return transcript.ErrInvalidEntry
	}

	ref, err := c.citationGw.Resolve(ctx, sourceId)
	if err != nil {
		c.log.Warn("Controller", "Citation resolution failed", map[string]interface{}{
			"source_id": sourceId,
			"error":     err.Error(),
		})
		return err
	}

	if c.opts.OnCitation != nil {
		c.opts.OnCitation(CitationView{URL: ref.URL, Name: ref.Name, Excerpts: excerpts})
	}
	return nil
}

// Typing reports whether the typing indicator should show: exactly the
// truth value of "a request is pending".
func (c *sessionController) Typing() bool {
	return c.tracker.Pending()
}

func (c *sessionController) Transcript() []entity.TranscriptEntry {
	return c.engine.Snapshot()
}

// DedupedCitations collapses repeated sources down to one affordance per
// distinct source, keyed by the first excerpt's source identifier. All
// excerpts still reach the viewer through OpenCitation.
func (c *sessionController) DedupedCitations(entry entity.TranscriptEntry) []entity.Citation {
	seen := make(map[string]bool, len(entry.Citations))
	out := make([]entity.Citation, 0, len(entry.Citations))
	for _, citation := range entry.Citations {
		if seen[citation.SourceId] {
			continue
		}
		seen[citation.SourceId] = true
		out = append(out, citation)
	}
	return out
}

// Stop tears the controller down. Pending state is dropped.
func (c *sessionController) Stop() {
	c.mu.Lock()
	c.stopped = true
	ch := c.ch
	c.ch = nil
	c.mu.Unlock()

	if ch != nil {
		ch.Close()
	}
	c.stopEggTimer()
	c.tracker.Cancel()
}

// ensureChannel returns an open channel, building a fresh instance when
// the current one is spent. Closed channels are replaced, never reused.
func (c *sessionController) ensureChannel(ctx context.Context) (channel.Channel, error) {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil, errors.New("controller stopped")
	}
	ch := c.ch
	c.mu.Unlock()

	if ch != nil && ch.State() == channel.StateOpen {
		return ch, nil
	}

	if ch == nil || ch.State() != channel.StateClosed {
		ch = c.newChannel()
	}
	if err := ch.Open(ctx); err != nil {
		if errors.Is(err, channel.ErrSpent) {
			ch = c.newChannel()
			if err := ch.Open(ctx); err != nil {
				return nil, err
			}
		} else {
			return nil, err
		}
	}

	c.mu.Lock()
	c.ch = ch
	c.mu.Unlock()

	go c.watch(ch)
	return ch, nil
}

// watch is the event loop for one channel instance. It exits when the
// channel dies.
func (c *sessionController) watch(ch channel.Channel) {
	for {
		select {
		case raw := <-ch.Messages():
			c.handleMessage(raw)
		case event := <-ch.Done():
			c.handleClosed(ch, event)
			return
		}
	}
}

func (c *sessionController) handleMessage(raw []byte) {
	entry, requestId, err := c.tracker.HandleAnswer(raw)
	switch {
	case errors.Is(err, correlation.ErrNoPendingRequest):
		// Stale answer, e.g. one superseded by clear(). Drop it.
		c.log.Debug("Controller", "Dropped message with no pending request", nil)
		return
	case errors.Is(err, correlation.ErrMalformedAnswer):
		// Keep the transcript intact but free the typing indicator.
		c.tracker.Cancel()
		c.log.Error("Controller", "Malformed answer payload", map[string]interface{}{
			"payload": string(raw),
		})
		return
	case err != nil:
		c.log.Error("Controller", "Answer handling failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	c.engine.Append(*entry)
	c.log.Info("Controller", "Answer appended", map[string]interface{}{
		"request_id": requestId,
		"citations":  len(entry.Citations),
	})
}

func (c *sessionController) handleClosed(ch channel.Channel, event channel.CloseEvent) {
	// Channel teardown clears the pending request either way.
	c.tracker.Cancel()

	if event.UserInitiated {
		return
	}

	c.mu.Lock()
	current := c.ch == ch
	stopped := c.stopped
	if current {
		c.ch = nil
	}
	c.mu.Unlock()
	if !current || stopped {
		return
	}

	// Single immediate reopen on unexpected drop, no retry loop. A failed
	// reopen leaves the session usable; Submit opens on demand.
	fresh := c.newChannel()
	if err := fresh.Open(context.Background()); err != nil {
		c.log.Warn("Controller", "Reconnect failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	c.mu.Lock()
	c.ch = fresh
	c.mu.Unlock()
	go c.watch(fresh)

	c.log.Info("Controller", "Channel reopened after drop", nil)
}

// contextTurns renders the prior transcript as wire context turns. The
// assistant role maps to "bot" on the wire.
func (c *sessionController) contextTurns() []contextTurn {
	snapshot := c.engine.Snapshot()
	turns := make([]contextTurn, 0, len(snapshot))
	for _, entry := range snapshot {
		turnType := "user"
		if entry.Role == entity.RoleAssistant {
			turnType = "bot"
		}
		turns = append(turns, contextTurn{Type: turnType, Text: entry.Text})
	}
	return turns
}

// precedingQuestion finds the user turn the rated answer responds to.
func (c *sessionController) precedingQuestion(entryId int) string {
	for id := entryId - 1; id > 0; id-- {
		entry, ok := c.engine.Entry(id)
		if !ok {
			break
		}
		if entry.Role == entity.RoleUser {
			return entry.Text
		}
	}
	return ""
}

func greetingEntry() entity.TranscriptEntry {
	return entity.TranscriptEntry{Role: entity.RoleAssistant, Text: constant.ChatGreetingMessage}
}
