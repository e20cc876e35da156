// Package voice connects speech recognition and synthesis to the app
// service. Recognition and synthesis run in the browser; the server relays
// transcripts in and confirmations out.
package voice

import "errors"

// Source identifies the surface a listening session was started from.
type Source string

// Sources.
const (
	SourceLanding Source = "landing"
	SourcePreview Source = "preview"
)

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	return s == SourceLanding || s == SourcePreview
}

// Transcript is one recognition result.
type Transcript struct {
	Text    string `json:"text"`
	IsFinal bool   `json:"isFinal"`
}

// Transport is the speech boundary.
type Transport interface {
	// StartListening begins a session, stopping any previous one.
	StartListening(src Source)
	StopListening()
	// OnTranscript registers cb and returns a function that removes it.
	OnTranscript(cb func(Transcript)) (unsubscribe func())
	// Speak says text, cancelling anything still being spoken.
	Speak(text string)
	IsListening() bool
}

// ErrNotListening is returned when a transcript arrives outside a session.
var ErrNotListening = errors.New("voice: not listening")

// Events published by the relay.
const (
	EventListening  = "voice.listening"
	EventStopped    = "voice.stopped"
	EventTranscript = "voice.transcript"
	EventSpeak      = "voice.speak"
	EventReply      = "voice.reply"
)
