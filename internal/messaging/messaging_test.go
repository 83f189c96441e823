package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/pixil98/go-clocktower/internal/events"
	"github.com/pixil98/go-clocktower/internal/narration"
	"github.com/pixil98/go-testutil"
)

func startServer(t *testing.T) *NatsServer {
	t.Helper()
	s, err := NewNatsServer(WithPort(-1), WithStartTimeout(5*time.Second), WithClientName("test-storyteller"))
	if err != nil {
		t.Fatalf("creating server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	select {
	case <-s.Ready():
	case err := <-done:
		t.Fatalf("server stopped: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server never became ready")
	}
	return s
}

func TestNatsServer_NotStarted(t *testing.T) {
	s, err := NewNatsServer(WithPort(-1))
	if err != nil {
		t.Fatal(err)
	}

	err = s.Publish("x", nil)
	testutil.AssertEqual(t, "publish", errors.Is(err, ErrNotStarted), true)
	_, err = s.Subscribe("x", func(string, []byte) {})
	testutil.AssertEqual(t, "subscribe", errors.Is(err, ErrNotStarted), true)
	_, err = s.Request(context.Background(), "x", nil)
	testutil.AssertEqual(t, "request", errors.Is(err, ErrNotStarted), true)
}

func TestEventPublisher(t *testing.T) {
	s := startServer(t)

	got := make(chan events.Event, 1)
	subjects := make(chan string, 1)
	unsub, err := s.Subscribe(EventSubjectPrefix+".>", func(subject string, data []byte) {
		var e events.Event
		if err := json.Unmarshal(data, &e); err != nil {
			t.Errorf("decoding event: %v", err)
			return
		}
		subjects <- subject
		got <- e
	})
	if err != nil {
		t.Fatal(err)
	}
	defer unsub()

	pub := NewEventPublisher(s, "")
	e := events.Event{Type: events.PlayerDied, GameID: "g1", Data: map[string]any{"player": "Ann"}}
	if err := pub.Emit(context.Background(), e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case subject := <-subjects:
		testutil.AssertEqual(t, "subject", subject, "clocktower.game.g1.player_died")
		ev := <-got
		testutil.AssertEqual(t, "type", ev.Type, events.PlayerDied)
		testutil.AssertEqual(t, "data", ev.Data["player"], any("Ann"))
	case <-time.After(5 * time.Second):
		t.Fatal("event never arrived")
	}
}

func TestRequest_Narration(t *testing.T) {
	s := startServer(t)
	ctx := context.Background()

	local, err := narration.NewTemplateNarrator(nil)
	if err != nil {
		t.Fatal(err)
	}
	unsub, err := s.Respond(ctx, narration.SubjectPrefix+".*", narration.Responder{Narrator: local}.Handle)
	if err != nil {
		t.Fatal(err)
	}
	defer unsub()

	remote := narration.NewNatsNarrator(s, "")
	rctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	text, err := remote.Generate(rctx, narration.KindExecution, map[string]any{"Player": "Bob"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "text", text, "Bob has been executed.")
}

func TestRequest_NoResponder(t *testing.T) {
	s := startServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err := narration.NewNatsNarrator(s, "").Generate(ctx, narration.KindDawn, nil)
	if err == nil {
		t.Fatal("expected an error with nobody listening")
	}
}
