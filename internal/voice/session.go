package voice

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/starford/astra/internal/appservice"
)

// Handler runs one cycle for a final transcript.
type Handler interface {
	Submit(ctx context.Context, appID, text, activePageID string) (*appservice.Reply, error)
}

// FailureMessage is spoken when a cycle fails for reasons other than the
// command being refused.
const FailureMessage = "Sorry, that change could not be saved."

const cycleTimeout = 30 * time.Second

// Session binds a Transport to a Handler: final transcripts become cycles
// against the bound app, and reply messages are spoken back.
type Session struct {
	transport Transport
	handler   Handler
	pub       Publisher
	logger    *slog.Logger
	speak     bool

	cycleMu sync.Mutex // one cycle at a time

	mu           sync.Mutex
	appID        string
	activePageID string
	lastReply    *appservice.Reply
	unsubscribe  func()
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSpokenReplies toggles speaking reply messages.
func WithSpokenReplies(on bool) SessionOption {
	return func(s *Session) { s.speak = on }
}

// WithReplyPublisher publishes every reply as a voice.reply event.
func WithReplyPublisher(p Publisher) SessionOption {
	return func(s *Session) { s.pub = p }
}

// NewSession subscribes to transport and routes final transcripts to h.
func NewSession(transport Transport, h Handler, logger *slog.Logger, opts ...SessionOption) *Session {
	s := &Session{
		transport: transport,
		handler:   h,
		logger:    logger,
		speak:     true,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.unsubscribe = transport.OnTranscript(s.onTranscript)
	return s
}

// Start binds the session to an app and starts listening.
func (s *Session) Start(appID string, src Source, activePageID string) {
	s.mu.Lock()
	s.appID = appID
	s.activePageID = activePageID
	s.mu.Unlock()

	s.transport.StartListening(src)
}

// Stop stops listening. The bound app is kept.
func (s *Session) Stop() {
	s.transport.StopListening()
}

// Close detaches the session from its transport.
func (s *Session) Close() {
	s.transport.StopListening()
	s.unsubscribe()
}

// State returns the bound app and active page.
func (s *Session) State() (appID, activePageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appID, s.activePageID
}

// LastReply returns the reply of the most recent completed cycle.
func (s *Session) LastReply() *appservice.Reply {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastReply
}

func (s *Session) onTranscript(t Transcript) {
	if !t.IsFinal {
		return
	}
	text := strings.TrimSpace(t.Text)
	if text == "" {
		return
	}

	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	appID, active := s.State()
	if appID == "" {
		s.logger.Warn("voice: transcript without app", slog.String("text", text))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), cycleTimeout)
	defer cancel()

	reply, err := s.handler.Submit(ctx, appID, text, active)
	if err != nil {
		s.logger.Error("voice: cycle failed",
			slog.String("app", appID),
			slog.String("text", text),
			slog.String("error", err.Error()))
		if s.speak {
			s.transport.Speak(FailureMessage)
		}
		return
	}

	s.mu.Lock()
	if s.appID == appID {
		s.activePageID = reply.ActivePageID
	}
	s.lastReply = reply
	s.mu.Unlock()

	if s.pub != nil {
		s.pub.Emit(ctx, EventReply, reply)
	}
	if s.speak && reply.Message != "" {
		s.transport.Speak(reply.Message)
	}
}
