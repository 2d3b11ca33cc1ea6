package constant

import "time"

const (
	ChatGreetingMessage = "Hi, start by either uploading some documents on the left or start by typing your first question below..."

	// Questions shorter than this are ignored by the controller.
	ChatMinQuestionLength = 3

	// Trigger phrase that short-circuits the backend and injects a
	// scripted reply after a fixed delay.
	EasterEggTrigger    = "do a barrel roll"
	EasterEggUserText   = "let's have some fun"
	EasterEggReply      = "a lil fun is always allowed ;)"
	EasterEggReplyDelay = 3 * time.Second

	// Store key the serialized session record lives under. The
	// authenticated user id is appended by the store.
	SessionStoreKeyPrefix = "ayd:chat:session:"

	TranscriptChangedTopic = "transcript.changed"
)
