package channel

import "context"

// State of the transport channel. A channel instance moves strictly
// forward: Closed -> Connecting -> Open -> Closing -> Closed. A spent
// channel is never reused, only replaced.
type State string

const (
	StateClosed     State = "CLOSED"
	StateConnecting State = "CONNECTING"
	StateOpen       State = "OPEN"
	StateClosing    State = "CLOSING"
)

// CloseEvent is emitted once when a channel reaches its final Closed
// state. UserInitiated distinguishes an explicit Close() from an
// unexpected drop; Err carries the transport error on drops.
type CloseEvent struct {
	UserInitiated bool
	Err           error
}

// Channel is a reconnectable duplex message channel to the answering
// backend. Send fails when the channel is not Open; implementations never
// queue silently, the caller must Open() first.
type Channel interface {
	Open(ctx context.Context) error
	Send(payload []byte) error
	Close()
	State() State
	Messages() <-chan []byte
	Done() <-chan CloseEvent
}

// Factory builds a fresh channel instance. The controller uses it after a
// clear() or an unexpected drop, since closed channels are not reusable.
type Factory func() Channel
