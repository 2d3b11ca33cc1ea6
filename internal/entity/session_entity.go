package entity

// Session is the in-memory state persisted across reloads. At most one
// request may be awaiting an answer at a time; PendingRequestId is empty
// when none is outstanding.
type Session struct {
	Transcript       []TranscriptEntry `json:"transcript"`
	PendingRequestId string            `json:"pending_request_id,omitempty"`
}
