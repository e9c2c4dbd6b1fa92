package domain

type SessionState string

const (
	SessionIdle      SessionState = "idle"
	SessionOpening   SessionState = "opening"
	SessionStreaming SessionState = "streaming"
	SessionClosing   SessionState = "closing"
)

type LiveEventKind string

const (
	LiveTranscript   LiveEventKind = "transcript"
	LiveTurnComplete LiveEventKind = "turn_complete"
	LiveError        LiveEventKind = "error"
)

// LiveEvent is one inbound message from a streaming transcription session.
type LiveEvent struct {
	Kind LiveEventKind
	Text string
	Err  error
}
