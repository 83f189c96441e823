package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/pixil98/go-clocktower/internal/events"
	"github.com/pixil98/go-clocktower/internal/game"
	"github.com/pixil98/go-testutil"
)

func openJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("opening journal: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func newState(id string, phase game.Phase) *game.State {
	s := game.NewState(id, "trouble-brewing", 42)
	s.Phase = phase
	s.Day = 2
	s.Players = []*game.Player{
		{ID: "p0", Name: "Ann", Seat: 0, Role: "Imp", Type: game.TypeDemon, Team: game.TeamEvil},
		{ID: "p1", Name: "Bob", Seat: 1, Role: "Chef", Type: game.TypeTownsfolk, Team: game.TeamGood, Status: game.StatusDead},
	}
	s.Bluffs = []string{"Monk", "Saint"}
	return s
}

func TestOpen(t *testing.T) {
	tests := map[string]struct {
		path   string
		expErr string
	}{
		"memory": {path: ":memory:"},
		"blank":  {path: " ", expErr: "journal path is required"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			j, err := Open(tt.path)
			if tt.expErr != "" {
				testutil.AssertErrorContains(t, err, tt.expErr)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "close", j.Close(), nil)
		})
	}
}

func TestJournal_Snapshots(t *testing.T) {
	ctx := context.Background()
	j := openJournal(t)

	s := newState("g1", game.PhaseDay)
	if err := j.SaveSnapshot(ctx, s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := j.LoadSnapshot(ctx, "g1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "phase", got.Phase, game.PhaseDay)
	testutil.AssertEqual(t, "players", len(got.Players), 2)
	testutil.AssertEqual(t, "dead", got.Players[1].IsAlive(), false)
	testutil.AssertEqual(t, "bluffs", got.Bluffs, []string{"Monk", "Saint"})

	// Saving again replaces the snapshot.
	s.Phase = game.PhaseGameOver
	s.Winner = game.TeamGood
	if err := j.SaveSnapshot(ctx, s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err = j.LoadSnapshot(ctx, "g1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "winner", got.Winner, game.TeamGood)

	_, err = j.LoadSnapshot(ctx, "missing")
	testutil.AssertEqual(t, "not found", errors.Is(err, ErrNotFound), true)

	testutil.AssertErrorContains(t, j.SaveSnapshot(ctx, &game.State{}), "needs a game id")
}

func TestJournal_ListGames(t *testing.T) {
	ctx := context.Background()
	j := openJournal(t)

	for _, s := range []*game.State{
		newState("over", game.PhaseGameOver),
		newState("running", game.PhaseNight),
	} {
		if err := j.SaveSnapshot(ctx, s); err != nil {
			t.Fatal(err)
		}
	}

	open, err := j.ListGames(ctx, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "open games", len(open), 1)
	testutil.AssertEqual(t, "id", open[0].ID, "running")
	testutil.AssertEqual(t, "phase", open[0].Phase, game.PhaseNight)
	testutil.AssertEqual(t, "day", open[0].Day, 2)

	all, err := j.ListGames(ctx, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "all games", len(all), 2)
}

func TestJournal_Events(t *testing.T) {
	ctx := context.Background()
	j := openJournal(t)

	var sink events.Sink = j
	now := time.Now()
	for i, e := range []events.Event{
		{Type: events.GameCreated, GameID: "g1", Timestamp: now},
		{Type: events.PlayerDied, GameID: "g2", Data: map[string]any{"player": "Cy"}},
		{Type: events.PlayerDied, GameID: "g1", Data: map[string]any{"player": "Bob", "night": 2}, Timestamp: now},
	} {
		if err := sink.Emit(ctx, e); err != nil {
			t.Fatalf("event %d: %v", i, err)
		}
	}

	got, err := j.Events(ctx, "g1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "count", len(got), 2)
	testutil.AssertEqual(t, "first", got[0].Type, events.GameCreated)
	testutil.AssertEqual(t, "player", got[1].Data["player"], any("Bob"))
	// Numbers come back as JSON numbers.
	testutil.AssertEqual(t, "night", got[1].Data["night"], any(float64(2)))

	none, err := j.Events(ctx, "g3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "none", len(none), 0)
}
