package storyteller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pixil98/go-clocktower/internal/events"
	"github.com/pixil98/go-clocktower/internal/game"
	"github.com/pixil98/go-testutil"
)

func TestRun_GoodWins(t *testing.T) {
	pio := newFakeIO()
	pio.choices["Pat"] = []string{"Cy"}
	pio.commands = []string{"status", "nominate Cy Ivy"}
	pio.votes = func(_ game.Nomination, eligible []string) []string { return eligible }

	st, rec := newGame(t, loadCatalog(t, nil), pio, game.PhaseFirstNight,
		"Ivy:Imp", "Pat:Poisoner", "Cy:Chef", "Em:Empath", "Wa:Washerwoman")

	out, err := st.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	testutil.AssertEqual(t, "ended", out.Ended, true)
	testutil.AssertEqual(t, "winner", out.Winner, game.TeamGood)
	testutil.AssertEqual(t, "reason", out.Reason, "The demon is dead.")

	s := st.Snapshot()
	testutil.AssertEqual(t, "phase", s.Phase, game.PhaseGameOver)
	testutil.AssertEqual(t, "day", s.Day, 1)
	testutil.AssertEqual(t, "chef poisoned", s.PlayerByName("Cy").Poisoned, true)

	// Woken, told, sent back to sleep.
	for _, name := range []string{"Cy", "Em", "Wa"} {
		testutil.AssertEqual(t, name+" messages", len(pio.Private(name)), 3)
	}
	testutil.AssertEqual(t, "abilities", len(rec.OfType(events.AbilityResolved)), 4)
	testutil.AssertEqual(t, "game over", len(rec.OfType(events.GameOver)), 1)
	testutil.AssertEqual(t, "disclosed facts", len(st.Ledger().Facts()) > 0, true)
}

func TestRun_Cancelled(t *testing.T) {
	pio := newFakeIO()
	pio.listening = make(chan struct{})
	listening := pio.listening

	st, _ := newGame(t, loadCatalog(t, nil), pio, game.PhaseDay, sevenPlayers...)
	st.cfg.DiscussionTimeout = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := st.Run(ctx)
		done <- err
	}()

	select {
	case <-listening:
	case <-time.After(5 * time.Second):
		t.Fatal("storyteller never listened for commands")
	}
	cancel()

	select {
	case err := <-done:
		testutil.AssertEqual(t, "cancelled", errors.Is(err, context.Canceled), true)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancellation")
	}

	s := st.Snapshot()
	testutil.AssertEqual(t, "phase kept", s.Phase, game.PhaseDay)
	testutil.AssertEqual(t, "nobody died", s.AliveCount(), 7)
}

func TestRun_NotSetUp(t *testing.T) {
	st, err := New(Config{}, loadCatalog(t, nil), newFakeIO())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = st.Run(context.Background())
	testutil.AssertEqual(t, "not set up", errors.Is(err, ErrNotSetUp), true)
	testutil.AssertEqual(t, "snapshot", st.Snapshot() == nil, true)
}

func TestRun_AlreadyOver(t *testing.T) {
	st, _ := newGame(t, loadCatalog(t, nil), newFakeIO(), game.PhaseGameOver, "Ivy:Imp", "Ann:Chef")
	st.mu.Lock()
	st.state.Winner = game.TeamEvil
	st.state.WinReason = "Only two players remain."
	st.mu.Unlock()

	out, err := st.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "winner", out.Winner, game.TeamEvil)
}
