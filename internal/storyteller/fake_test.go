package storyteller

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pixil98/go-clocktower/internal/abilities"
	"github.com/pixil98/go-clocktower/internal/events"
	"github.com/pixil98/go-clocktower/internal/game"
	"github.com/pixil98/go-clocktower/internal/script"
	"github.com/pixil98/go-clocktower/internal/storage"
)

const troubleBrewing = "trouble-brewing"

// fakeIO is a scripted table.
type fakeIO struct {
	mu        sync.Mutex
	public    []string
	private   map[string][]string
	commands  []string
	choices   map[string][]string
	votes     func(nom game.Nomination, eligible []string) []string
	listening chan struct{}
}

func newFakeIO() *fakeIO {
	return &fakeIO{
		private: map[string][]string{},
		choices: map[string][]string{},
	}
}

func (f *fakeIO) Speak(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.public = append(f.public, text)
	return nil
}

func (f *fakeIO) SpeakToPlayer(_ context.Context, player, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.private[player] = append(f.private[player], text)
	return nil
}

func (f *fakeIO) ListenForCommand(ctx context.Context, _ []string) (string, error) {
	f.mu.Lock()
	if len(f.commands) > 0 {
		cmd := f.commands[0]
		f.commands = f.commands[1:]
		f.mu.Unlock()
		return cmd, nil
	}
	listening := f.listening
	f.listening = nil
	f.mu.Unlock()

	if listening != nil {
		close(listening)
	}
	<-ctx.Done()
	return "", ctx.Err()
}

func (f *fakeIO) CollectVotes(_ context.Context, nom game.Nomination, eligible []string) ([]string, error) {
	if f.votes == nil {
		return nil, nil
	}
	return f.votes(nom, eligible), nil
}

func (f *fakeIO) ParseNomination(text string) (string, string, error) {
	fields := strings.Fields(text)
	if len(fields) != 3 {
		return "", "", fmt.Errorf("could not understand %q", text)
	}
	return fields[1], fields[2], nil
}

func (f *fakeIO) ChoosePlayers(_ context.Context, player, _ string, _ int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.choices[player]
	if !ok {
		return nil, errors.New("no choice scripted")
	}
	return c, nil
}

func (f *fakeIO) Public() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.public)
}

func (f *fakeIO) Private(player string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.private[player])
}

func (f *fakeIO) heard(text string) bool {
	return slices.Contains(f.Public(), text)
}

// votesFrom raises the hands of the named players.
func votesFrom(names ...string) func(game.Nomination, []string) []string {
	return func(game.Nomination, []string) []string { return names }
}

func loadCatalog(t *testing.T, reg *abilities.Registry) *script.Catalog {
	t.Helper()
	roles, err := storage.NewFileStore[*script.Role]("../../assets/roles")
	if err != nil {
		t.Fatalf("loading roles: %v", err)
	}
	scripts, err := storage.NewFileStore[*script.Script]("../../assets/scripts")
	if err != nil {
		t.Fatalf("loading scripts: %v", err)
	}
	if reg == nil {
		reg = abilities.NewTroubleBrewingRegistry()
	}
	c, err := script.NewCatalog(roles, scripts, reg)
	if err != nil {
		t.Fatalf("building catalog: %v", err)
	}
	return c
}

// newGame resumes a hand-built grimoire. Seats are "Name:Role".
func newGame(t *testing.T, p Provider, pio PlayerIO, phase game.Phase, seats ...string) (*Storyteller, *events.Recorder) {
	t.Helper()
	return resumeGame(t, p, pio, grimoire(t, phase, seats...))
}

func grimoire(t *testing.T, phase game.Phase, seats ...string) *game.State {
	t.Helper()

	cat := loadCatalog(t, nil)
	state := game.NewState("test-game", troubleBrewing, 42)
	state.Phase = phase
	switch phase {
	case game.PhaseDay, game.PhaseNight:
		state.Day, state.Night = 1, 1
	}

	for i, seat := range seats {
		name, role, ok := strings.Cut(seat, ":")
		if !ok {
			t.Fatalf("bad seat %q", seat)
		}
		typ := cat.TypeOf(role)
		if typ == game.TypeUnknown {
			t.Fatalf("unknown role %q", role)
		}
		state.Players = append(state.Players, &game.Player{
			ID:     fmt.Sprintf("p%d", i),
			Name:   name,
			Seat:   i,
			Role:   role,
			Type:   typ,
			Team:   typ.Team(),
			Status: game.StatusAlive,
		})
	}
	return state
}

func resumeGame(t *testing.T, p Provider, pio PlayerIO, state *game.State, opts ...Option) (*Storyteller, *events.Recorder) {
	t.Helper()

	var rec events.Recorder
	st, err := New(Config{
		GameID:            "test-game",
		Seed:              42,
		DiscussionTimeout: 50 * time.Millisecond,
	}, p, pio, append([]Option{WithEventSink(&rec)}, opts...)...)
	if err != nil {
		t.Fatalf("creating storyteller: %v", err)
	}
	if err := st.Resume(state); err != nil {
		t.Fatalf("resuming: %v", err)
	}
	return st, &rec
}

// cancellingIO cancels the game as soon as player is asked to choose.
type cancellingIO struct {
	*fakeIO
	player string
	cancel context.CancelFunc
}

func (c cancellingIO) ChoosePlayers(ctx context.Context, player, prompt string, n int) ([]string, error) {
	if player == c.player {
		c.cancel()
		return nil, ctx.Err()
	}
	return c.fakeIO.ChoosePlayers(ctx, player, prompt, n)
}

// player returns the live player by name for inspection.
func player(st *Storyteller, name string) *game.Player {
	return st.Snapshot().PlayerByName(name)
}
