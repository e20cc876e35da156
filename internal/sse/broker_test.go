package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "voice.speak", Data: map[string]any{"text": "Added page", "cancel": true}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.HasPrefix(s, "event: voice.speak\ndata: ") {
			t.Errorf("bad framing in %q", s)
		}
		if !strings.Contains(s, `"text":"Added page"`) {
			t.Errorf("missing data in %q", s)
		}
		if !strings.HasSuffix(s, "\n\n") {
			t.Errorf("event not terminated in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

// drain collects every message currently buffered on ch.
func drain(ch chan []byte) []string {
	time.Sleep(50 * time.Millisecond)
	var out []string
	for {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func count(msgs []string, event string) int {
	n := 0
	for _, m := range msgs {
		if strings.HasPrefix(m, "event: "+event+"\n") {
			n++
		}
	}
	return n
}

func TestPublishAppEvent_ListThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// First event triggers apps.updated; the second, immediately after, does not.
	b.PublishAppEvent("created", "app_1")
	b.PublishAppEvent("updated", "app_2")

	msgs := drain(ch)
	if got := count(msgs, "app.created") + count(msgs, "app.updated"); got != 2 {
		t.Errorf("app events = %d, want 2", got)
	}
	if got := count(msgs, EventAppsUpdated); got != 1 {
		t.Errorf("apps.updated events = %d, want 1 (throttled)", got)
	}
	if !strings.Contains(msgs[0], `"id":"app_1"`) {
		t.Errorf("first event missing id: %q", msgs[0])
	}
}

func TestPublishAppEvent_ThrottleWindowReopens(t *testing.T) {
	b := NewBroker(50 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishAppEvent("updated", "app_1")
	time.Sleep(100 * time.Millisecond)
	b.PublishAppEvent("updated", "app_1")

	if got := count(drain(ch), EventAppsUpdated); got != 2 {
		t.Errorf("apps.updated events = %d, want 2", got)
	}
}

func TestEmit_RoutesAppEvents(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Emit(context.Background(), "app.deleted", map[string]string{"id": "app_9"})
	b.Emit(context.Background(), "voice.listening", map[string]string{"source": "preview"})

	msgs := drain(ch)
	if count(msgs, "app.deleted") != 1 {
		t.Errorf("missing app.deleted in %q", msgs)
	}
	if count(msgs, "voice.listening") != 1 {
		t.Errorf("missing voice.listening in %q", msgs)
	}
	if count(msgs, EventAppsUpdated) != 1 {
		t.Errorf("app event did not trigger apps.updated: %q", msgs)
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	// Give handler time to subscribe.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.PublishAppEvent("updated", "app_1")
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}
	body := w.Body.String()
	if !strings.Contains(body, "event: app.updated") {
		t.Errorf("handler output missing event: %q", body)
	}

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Subscriber buffer holds 64; the rest must be dropped, not block.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	defer goleak.VerifyNone(t)

	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	// No-ops after close.
	b.Publish(Event{Type: "app.updated", Data: map[string]string{"id": "x"}})
	b.PublishAppEvent("updated", "x")
	b.Emit(context.Background(), "app.updated", nil)
	b.Close()
}
