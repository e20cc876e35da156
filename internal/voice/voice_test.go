package voice

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/astra/internal/appservice"
	"github.com/starford/astra/internal/models"
	"github.com/starford/astra/internal/testutil"
)

func newRelay() (*Relay, *appservice.MockEmitter) {
	em := &appservice.MockEmitter{}
	return NewRelay(em, testutil.DiscardLogger()), em
}

func TestRelay_StartStop(t *testing.T) {
	r, em := newRelay()
	assert.False(t, r.IsListening())

	r.StartListening(SourceLanding)
	assert.True(t, r.IsListening())
	assert.Equal(t, SourceLanding, r.Source())

	r.StopListening()
	assert.False(t, r.IsListening())
	r.StopListening()

	assert.Equal(t, []string{EventListening, EventStopped}, em.Names())
}

func TestRelay_StartStopsPreviousSession(t *testing.T) {
	r, em := newRelay()
	r.StartListening(SourceLanding)
	r.StartListening(SourcePreview)

	assert.True(t, r.IsListening())
	assert.Equal(t, []string{EventListening, EventStopped, EventListening}, em.Names())
	assert.Equal(t, ListeningEvent{Source: SourceLanding, Session: 1}, em.Events[1].Data)
	assert.Equal(t, ListeningEvent{Source: SourcePreview, Session: 2}, em.Events[2].Data)
}

func TestRelay_PushOnlyWhileListening(t *testing.T) {
	r, _ := newRelay()
	var got []Transcript
	r.OnTranscript(func(t Transcript) { got = append(got, t) })

	err := r.Push(Transcript{Text: "add page About", IsFinal: true})
	assert.ErrorIs(t, err, ErrNotListening)

	r.StartListening(SourcePreview)
	require.NoError(t, r.Push(Transcript{Text: "add page About", IsFinal: true}))
	assert.Equal(t, []Transcript{{Text: "add page About", IsFinal: true}}, got)
}

func TestRelay_InterimPublished(t *testing.T) {
	r, em := newRelay()
	r.StartListening(SourcePreview)
	require.NoError(t, r.Push(Transcript{Text: "add pa"}))
	require.NoError(t, r.Push(Transcript{Text: "add page X", IsFinal: true}))

	assert.Equal(t, []string{EventListening, EventTranscript}, em.Names())
}

func TestRelay_Unsubscribe(t *testing.T) {
	r, _ := newRelay()
	calls := 0
	unsub := r.OnTranscript(func(Transcript) { calls++ })
	r.StartListening(SourceLanding)

	require.NoError(t, r.Push(Transcript{Text: "one", IsFinal: true}))
	unsub()
	unsub()
	require.NoError(t, r.Push(Transcript{Text: "two", IsFinal: true}))
	assert.Equal(t, 1, calls)
}

func TestRelay_CallbackPanicRecovered(t *testing.T) {
	r, _ := newRelay()
	var after bool
	r.OnTranscript(func(Transcript) { panic("boom") })
	r.OnTranscript(func(Transcript) { after = true })
	r.StartListening(SourceLanding)

	assert.NotPanics(t, func() {
		_ = r.Push(Transcript{Text: "hello there", IsFinal: true})
	})
	assert.True(t, after)
}

func TestRelay_Speak(t *testing.T) {
	r, em := newRelay()
	r.Speak("first")
	r.Speak("second")

	assert.Equal(t, "second", r.Utterance())
	require.Len(t, em.Events, 2)
	assert.Equal(t, SpeakEvent{Text: "second", Cancel: true}, em.Events[1].Data)
}

// stubHandler records submissions and returns a canned reply or error.
type stubHandler struct {
	mu    sync.Mutex
	texts []string
	reply *appservice.Reply
	err   error
}

func (h *stubHandler) Submit(_ context.Context, appID, text, active string) (*appservice.Reply, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.texts = append(h.texts, appID+"|"+text+"|"+active)
	return h.reply, h.err
}

func TestSession_OnlyFinalTranscripts(t *testing.T) {
	r, _ := newRelay()
	h := &stubHandler{reply: &appservice.Reply{Applied: true, ActivePageID: "p2", Message: `Added page "X".`}}
	s := NewSession(r, h, testutil.DiscardLogger())
	defer s.Close()

	s.Start("app_1", SourcePreview, "home")
	require.NoError(t, r.Push(Transcript{Text: "add page"}))
	require.NoError(t, r.Push(Transcript{Text: "  add page X  ", IsFinal: true}))
	require.NoError(t, r.Push(Transcript{Text: "   ", IsFinal: true}))

	assert.Equal(t, []string{"app_1|add page X|home"}, h.texts)
	_, active := s.State()
	assert.Equal(t, "p2", active)
	assert.Equal(t, `Added page "X".`, r.Utterance())
	assert.Same(t, h.reply, s.LastReply())
}

func TestSession_FailureIsSpoken(t *testing.T) {
	r, _ := newRelay()
	h := &stubHandler{err: errors.New("disk full")}
	s := NewSession(r, h, testutil.DiscardLogger())
	defer s.Close()

	s.Start("app_1", SourceLanding, "")
	require.NoError(t, r.Push(Transcript{Text: "add page X", IsFinal: true}))
	assert.Equal(t, FailureMessage, r.Utterance())
	assert.Nil(t, s.LastReply())
}

func TestSession_Silent(t *testing.T) {
	r, _ := newRelay()
	h := &stubHandler{reply: &appservice.Reply{Message: "hi"}}
	s := NewSession(r, h, testutil.DiscardLogger(), WithSpokenReplies(false))
	defer s.Close()

	s.Start("app_1", SourceLanding, "")
	require.NoError(t, r.Push(Transcript{Text: "add page X", IsFinal: true}))
	assert.Empty(t, r.Utterance())
}

func TestSession_CloseStopsDelivery(t *testing.T) {
	r, _ := newRelay()
	h := &stubHandler{reply: &appservice.Reply{}}
	s := NewSession(r, h, testutil.DiscardLogger())
	s.Start("app_1", SourceLanding, "")
	s.Close()

	assert.False(t, r.IsListening())
	r.StartListening(SourceLanding)
	require.NoError(t, r.Push(Transcript{Text: "add page X", IsFinal: true}))
	assert.Empty(t, h.texts)
}

func TestSession_EndToEnd(t *testing.T) {
	store := testutil.TestStore(t)
	bp := testutil.TestApp(t, store, "Shop")
	svc := appservice.New(store, appservice.WithLogger(testutil.DiscardLogger()))

	r, em := newRelay()
	s := NewSession(r, svc, testutil.DiscardLogger(), WithReplyPublisher(em))
	defer s.Close()

	s.Start(bp.ID, SourcePreview, models.HomePageID)
	require.NoError(t, r.Push(Transcript{Text: "add page Pricing", IsFinal: true}))
	require.NoError(t, r.Push(Transcript{Text: "rename page pricing to Plans", IsFinal: true}))
	require.NoError(t, r.Push(Transcript{Text: "delete page Blog", IsFinal: true}))

	got, err := store.Get(context.Background(), bp.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Home", "Plans"}, got.PageNames())
	assert.Equal(t, `Page "Blog" not found.`, r.Utterance())

	_, active := s.State()
	assert.Equal(t, got.Pages[1].ID, active)

	replies := 0
	for _, name := range em.Names() {
		if name == EventReply {
			replies++
		}
	}
	assert.Equal(t, 3, replies)
}
