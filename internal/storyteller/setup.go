package storyteller

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/pixil98/go-clocktower/internal/abilities"
	"github.com/pixil98/go-clocktower/internal/events"
	"github.com/pixil98/go-clocktower/internal/game"
	"github.com/pixil98/go-clocktower/internal/narration"
	"golang.org/x/text/cases"
)

var fold = cases.Fold()

// Setup seats the players, deals characters and prepares the first night.
// The same seed and names always produce the same grimoire.
func (st *Storyteller) Setup(ctx context.Context, names []string, scriptID string) error {
	st.mu.Lock()
	started := st.state != nil
	st.mu.Unlock()
	if started {
		return &ConfigError{Err: ErrAlreadySetUp}
	}

	names, err := cleanNames(names)
	if err != nil {
		return &ConfigError{Err: err}
	}

	opts, err := st.provider.Options(scriptID)
	if err != nil {
		return &ConfigError{Err: err}
	}
	book, err := st.provider.RoleBook(scriptID)
	if err != nil {
		return &ConfigError{Err: err}
	}

	state, err := st.deal(names, scriptID)
	if err != nil {
		return &ConfigError{Err: err}
	}

	state.Phase = game.PhaseFirstNight
	if err := state.Validate(); err != nil {
		return &ConfigError{Err: err}
	}

	st.mu.Lock()
	st.state = state
	st.opts = opts
	st.book = book
	created := st.event(events.GameCreated, map[string]any{
		"script":  scriptID,
		"seed":    state.Seed,
		"players": playerNames(state.Players),
	})
	changed := st.setPhase(game.PhaseFirstNight)
	st.mu.Unlock()

	st.log.InfoContext(ctx, "game set up", "script", scriptID, "players", len(names), "seed", state.Seed)
	st.emit(ctx, created, changed)

	st.announce(ctx, narration.KindWelcome, map[string]any{
		"Script":  scriptID,
		"Players": names,
	})
	for _, p := range state.Players {
		st.tell(ctx, p.Name, fmt.Sprintf("You are the %s (%s).", p.Role, p.Type))
	}

	return nil
}

// Resume takes over a game restored from a snapshot.
func (st *Storyteller) Resume(state *game.State) error {
	if state == nil {
		return &ConfigError{Err: fmt.Errorf("state must be set")}
	}
	if state.Phase == game.PhaseSetup {
		return &ConfigError{Err: fmt.Errorf("%w: game was never set up", ErrWrongPhase)}
	}
	if err := state.Validate(); err != nil {
		return &ConfigError{Err: err}
	}

	opts, err := st.provider.Options(state.Script)
	if err != nil {
		return &ConfigError{Err: err}
	}
	book, err := st.provider.RoleBook(state.Script)
	if err != nil {
		return &ConfigError{Err: err}
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.state != nil {
		return &ConfigError{Err: ErrAlreadySetUp}
	}
	st.cfg.GameID = state.ID
	st.log = st.baseLog.With("game", state.ID)
	st.rng.Seed(abilities.Seed(state.Seed, state.Night, "resume"))
	ledger := abilities.NewLedger()
	ledger.Record(state.Disclosed...)
	st.distorter = abilities.NewDistorter(ledger)
	st.state = state
	st.opts = opts
	st.book = book
	return nil
}

func cleanNames(names []string) ([]string, error) {
	out := make([]string, 0, len(names))
	seen := map[string]bool{}
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			return nil, fmt.Errorf("player names cannot be empty")
		}
		key := fold.String(n)
		if seen[key] {
			return nil, fmt.Errorf("player name %q is used twice", n)
		}
		seen[key] = true
		out = append(out, n)
	}
	return out, nil
}

func (st *Storyteller) deal(names []string, scriptID string) (*game.State, error) {
	roles, err := st.provider.GetDistribution(len(names), scriptID, st.rng)
	if err != nil {
		return nil, err
	}
	st.rng.Shuffle(len(roles), func(i, j int) { roles[i], roles[j] = roles[j], roles[i] })

	state := game.NewState(st.cfg.GameID, scriptID, st.cfg.Seed)
	inPlay := slices.Clone(roles)

	for i, name := range names {
		r, err := st.provider.Role(roles[i])
		if err != nil {
			return nil, err
		}

		id, err := uuid.NewRandomFromReader(st.rng)
		if err != nil {
			return nil, fmt.Errorf("generating player id: %w", err)
		}

		p := &game.Player{
			ID:     id.String(),
			Name:   name,
			Seat:   i,
			Role:   r.Name,
			Type:   r.Type,
			Team:   r.Type.Team(),
			Status: game.StatusAlive,
		}

		if r.MasksAs != game.TypeUnknown {
			fakes, err := st.provider.NotInPlay(r.MasksAs, inPlay, scriptID)
			if err != nil {
				return nil, err
			}
			if len(fakes) == 0 {
				return nil, fmt.Errorf("no %s left for the %s to believe in", r.MasksAs, r.Name)
			}
			fake := fakes[st.rng.Intn(len(fakes))]
			inPlay = append(inPlay, fake)

			p.AddReminder(game.TokenDrunk, r.Name, fake)
			p.Role = fake
			p.Type = r.MasksAs
			p.Team = r.MasksAs.Team()
			p.Drunk = true
		}

		state.Players = append(state.Players, p)
	}

	for _, ft := range state.PlayersWithRole(abilities.RoleFortuneTeller) {
		var good []*game.Player
		for _, p := range state.Players {
			if !p.IsEvil() {
				good = append(good, p)
			}
		}
		herring := good[st.rng.Intn(len(good))]
		herring.AddReminder(game.TokenRedHerring, ft.Role, ft.ID)
	}

	state.Bluffs, err = st.provider.GetDemonBluffs(inPlay, scriptID, st.rng)
	if err != nil {
		return nil, err
	}

	return state, nil
}
