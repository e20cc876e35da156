package voice

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Publisher receives relay events. The SSE broker implements it.
type Publisher interface {
	Emit(ctx context.Context, event string, data any)
}

// ListeningEvent is the payload of voice.listening and voice.stopped.
type ListeningEvent struct {
	Source  Source `json:"source"`
	Session uint64 `json:"session"`
}

// SpeakEvent is the payload of voice.speak. Cancel tells the client to drop
// any utterance still playing before starting this one.
type SpeakEvent struct {
	Text   string `json:"text"`
	Cancel bool   `json:"cancel"`
}

// Relay is a Transport whose recognizer and synthesizer live in the client.
// Transcripts are pushed in with Push; speech goes out as voice.speak events.
type Relay struct {
	pub    Publisher
	logger *slog.Logger

	mu        sync.Mutex
	listening bool
	source    Source
	session   uint64
	subs      map[int]func(Transcript)
	nextSub   int
	utterance string
}

var _ Transport = (*Relay)(nil)

// NewRelay creates a relay publishing through pub.
func NewRelay(pub Publisher, logger *slog.Logger) *Relay {
	return &Relay{
		pub:    pub,
		logger: logger,
		subs:   make(map[int]func(Transcript)),
	}
}

// StartListening implements Transport.
func (r *Relay) StartListening(src Source) {
	r.mu.Lock()
	var stopped *ListeningEvent
	if r.listening {
		stopped = &ListeningEvent{Source: r.source, Session: r.session}
	}
	r.listening = true
	r.source = src
	r.session++
	started := ListeningEvent{Source: src, Session: r.session}
	r.mu.Unlock()

	if stopped != nil {
		r.logger.Debug("voice: previous session stopped", slog.Uint64("session", stopped.Session))
		r.pub.Emit(context.Background(), EventStopped, *stopped)
	}
	r.logger.Info("voice: listening", slog.String("source", string(src)), slog.Uint64("session", started.Session))
	r.pub.Emit(context.Background(), EventListening, started)
}

// StopListening implements Transport.
func (r *Relay) StopListening() {
	r.mu.Lock()
	if !r.listening {
		r.mu.Unlock()
		return
	}
	r.listening = false
	ev := ListeningEvent{Source: r.source, Session: r.session}
	r.mu.Unlock()

	r.logger.Info("voice: stopped", slog.Uint64("session", ev.Session))
	r.pub.Emit(context.Background(), EventStopped, ev)
}

// IsListening implements Transport.
func (r *Relay) IsListening() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listening
}

// Source returns the source of the current or last session.
func (r *Relay) Source() Source {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.source
}

// OnTranscript implements Transport.
func (r *Relay) OnTranscript(cb func(Transcript)) func() {
	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = cb
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, id)
			r.mu.Unlock()
		})
	}
}

// Push delivers a recognition result to subscribers. Interim results are
// also published for live display. Outside a session it returns
// ErrNotListening.
func (r *Relay) Push(t Transcript) error {
	r.mu.Lock()
	if !r.listening {
		r.mu.Unlock()
		return ErrNotListening
	}
	ids := make([]int, 0, len(r.subs))
	for id := range r.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	cbs := make([]func(Transcript), len(ids))
	for i, id := range ids {
		cbs[i] = r.subs[id]
	}
	r.mu.Unlock()

	if !t.IsFinal {
		r.pub.Emit(context.Background(), EventTranscript, t)
	}
	for _, cb := range cbs {
		r.deliver(cb, t)
	}
	return nil
}

func (r *Relay) deliver(cb func(Transcript), t Transcript) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("voice: transcript callback panicked", slog.String("error", fmt.Sprint(rec)))
		}
	}()
	cb(t)
}

// Speak implements Transport.
func (r *Relay) Speak(text string) {
	r.mu.Lock()
	r.utterance = text
	r.mu.Unlock()

	r.pub.Emit(context.Background(), EventSpeak, SpeakEvent{Text: text, Cancel: true})
}

// Utterance returns the most recent text passed to Speak.
func (r *Relay) Utterance() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.utterance
}
