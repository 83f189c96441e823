// Package storyteller runs a game from setup to game over. It owns the game
// state, drives the phase state machine and delegates player communication,
// narration and event delivery to its collaborators.
package storyteller

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pixil98/go-clocktower/internal/abilities"
	"github.com/pixil98/go-clocktower/internal/events"
	"github.com/pixil98/go-clocktower/internal/game"
	"github.com/pixil98/go-clocktower/internal/narration"
	"github.com/pixil98/go-clocktower/internal/rules"
	"github.com/pixil98/go-clocktower/internal/script"
)

// Provider answers questions about roles and scripts.
type Provider interface {
	Role(name string) (*script.Role, error)
	GetAbilityHandler(role string) (abilities.Handler, error)
	GetDistribution(n int, scriptID string, rng *rand.Rand) ([]string, error)
	GetDemonBluffs(inPlay []string, scriptID string, rng *rand.Rand) ([]string, error)
	NotInPlay(t game.CharacterType, inPlay []string, scriptID string) ([]string, error)
	FirstNightOrder(scriptID string) ([]string, error)
	OtherNightOrder(scriptID string) ([]string, error)
	Options(scriptID string) (rules.Options, error)
	RoleBook(scriptID string) (abilities.RoleBook, error)
}

var _ Provider = (*script.Catalog)(nil)

// PlayerIO is how the storyteller talks to the table.
type PlayerIO interface {
	// Speak addresses everyone.
	Speak(ctx context.Context, text string) error
	// SpeakToPlayer addresses one player privately.
	SpeakToPlayer(ctx context.Context, player, text string) error
	// ListenForCommand blocks until a command starting with one of verbs,
	// or a nomination, is heard.
	ListenForCommand(ctx context.Context, verbs []string) (string, error)
	// CollectVotes returns the names of the players raising a hand.
	CollectVotes(ctx context.Context, nom game.Nomination, eligible []string) ([]string, error)
	// ParseNomination extracts the two player names from a command such as
	// "nominate Alice Bob" or "Alice nominates Bob".
	ParseNomination(text string) (first, second string, err error)
	// ChoosePlayers asks a player to name n players.
	ChoosePlayers(ctx context.Context, player, prompt string, n int) ([]string, error)
}

// Config tunes a game.
type Config struct {
	// GameID identifies the game; a random one is used when empty.
	GameID string
	// Seed makes setup and every random decision reproducible. Zero picks
	// a seed from the clock.
	Seed int64

	DiscussionTimeout time.Duration
	NarrationTimeout  time.Duration
	// MaxPromptTries bounds re-prompts before a choice is made at random.
	MaxPromptTries int
}

func (c Config) withDefaults() Config {
	if c.GameID == "" {
		c.GameID = uuid.NewString()
	}
	if c.Seed == 0 {
		c.Seed = time.Now().UnixNano()
	}
	if c.DiscussionTimeout <= 0 {
		c.DiscussionTimeout = 5 * time.Minute
	}
	if c.NarrationTimeout <= 0 {
		c.NarrationTimeout = 10 * time.Second
	}
	if c.MaxPromptTries <= 0 {
		c.MaxPromptTries = 3
	}
	return c
}

type Option func(*Storyteller)

// WithNarrator sets the narration gateway. Without one the built-in
// templates are used.
func WithNarrator(n narration.Narrator) Option {
	return func(s *Storyteller) {
		s.narrator = n
	}
}

// WithEventSink sets where state-change events are sent.
func WithEventSink(sink events.Sink) Option {
	return func(s *Storyteller) {
		s.sink = sink
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Storyteller) {
		s.log = l
	}
}

// Storyteller runs one game. Only the goroutine calling Run, Setup,
// Nominate, Vote and Slay mutates state; Snapshot is safe from anywhere.
type Storyteller struct {
	cfg      Config
	provider Provider
	io       PlayerIO
	narrator narration.Narrator
	sink     events.Sink
	baseLog  *slog.Logger
	log      *slog.Logger

	rng       *rand.Rand
	distorter *abilities.Distorter

	mu     sync.Mutex
	state  *game.State
	opts   rules.Options
	book   abilities.RoleBook
	passed *demonPass
}

// New creates a storyteller for a single game.
func New(cfg Config, provider Provider, pio PlayerIO, opts ...Option) (*Storyteller, error) {
	if provider == nil {
		return nil, &ConfigError{Err: fmt.Errorf("role provider must be set")}
	}
	if pio == nil {
		return nil, &ConfigError{Err: fmt.Errorf("player io must be set")}
	}

	cfg = cfg.withDefaults()
	st := &Storyteller{
		cfg:       cfg,
		provider:  provider,
		io:        pio,
		rng:       rand.New(rand.NewSource(cfg.Seed)),
		distorter: abilities.NewDistorter(abilities.NewLedger()),
	}

	for _, opt := range opts {
		opt(st)
	}

	if st.narrator == nil {
		st.narrator = narration.NarratorFunc(func(_ context.Context, kind narration.Kind, data map[string]any) (string, error) {
			return narration.Fallback(kind, data), nil
		})
	}
	if st.sink == nil {
		st.sink = events.Discard
	}
	if st.log == nil {
		st.log = slog.Default()
	}
	st.baseLog = st.log
	st.log = st.baseLog.With("game", cfg.GameID)

	return st, nil
}

// ID returns the game's identifier.
func (st *Storyteller) ID() string {
	return st.cfg.GameID
}

// Snapshot returns a copy of the current state, or nil before setup.
func (st *Storyteller) Snapshot() *game.State {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.state == nil {
		return nil
	}
	return st.state.Snapshot()
}

// Outcome reports how the game ended, if it has.
func (st *Storyteller) Outcome() rules.Outcome {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.state == nil || st.state.Phase != game.PhaseGameOver {
		return rules.Outcome{}
	}
	return rules.Outcome{Ended: true, Winner: st.state.Winner, Reason: st.state.WinReason}
}

// Ledger returns the facts disclosed to players so far.
func (st *Storyteller) Ledger() *abilities.Ledger {
	return st.distorter.Ledger()
}

// Run advances the game phase by phase until it ends or ctx is cancelled.
// On cancellation the state is left as of the last completed step.
func (st *Storyteller) Run(ctx context.Context) (rules.Outcome, error) {
	for {
		if err := ctx.Err(); err != nil {
			return rules.Outcome{}, err
		}

		phase, err := st.phase()
		if err != nil {
			return rules.Outcome{}, err
		}

		switch phase {
		case game.PhaseFirstNight:
			err = st.runNight(ctx, true)
		case game.PhaseNight:
			err = st.runNight(ctx, false)
		case game.PhaseDay:
			err = st.runDay(ctx)
		case game.PhaseGameOver:
			return st.Outcome(), nil
		default:
			return rules.Outcome{}, fmt.Errorf("%w: cannot run from %s", ErrWrongPhase, phase)
		}

		if err != nil {
			st.log.WarnContext(ctx, "game stopped", "phase", phase, "error", err)
			return rules.Outcome{}, err
		}
	}
}

func (st *Storyteller) phase() (game.Phase, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.state == nil {
		return game.PhaseSetup, ErrNotSetUp
	}
	return st.state.Phase, nil
}

// setPhase must be called with mu held.
func (st *Storyteller) setPhase(p game.Phase) events.Event {
	st.state.Phase = p
	st.state.Touch()
	return st.event(events.PhaseChanged, map[string]any{
		"phase": p.String(),
		"day":   st.state.Day,
		"night": st.state.Night,
	})
}

// endGame must be called without mu held.
func (st *Storyteller) endGame(ctx context.Context, out rules.Outcome) {
	st.mu.Lock()
	st.state.Winner = out.Winner
	st.state.WinReason = out.Reason
	changed := st.setPhase(game.PhaseGameOver)
	st.mu.Unlock()

	st.log.InfoContext(ctx, "game over", "winner", out.Winner, "reason", out.Reason)
	st.emit(ctx, changed, st.event(events.GameOver, map[string]any{
		"winner": out.Winner.String(),
		"reason": out.Reason,
	}))
	st.announce(ctx, narration.KindGameOver, map[string]any{
		"Winner": out.Winner.String(),
		"Reason": out.Reason,
	})
}

func (st *Storyteller) event(t events.Type, data map[string]any) events.Event {
	return events.Event{
		Type:      t,
		GameID:    st.cfg.GameID,
		Data:      data,
		Timestamp: time.Now(),
	}
}

// emit delivers events to the sink. Sink failures never stop the game.
func (st *Storyteller) emit(ctx context.Context, evs ...events.Event) {
	for _, e := range evs {
		if err := st.sink.Emit(ctx, e); err != nil {
			st.log.WarnContext(ctx, "emitting event", "type", e.Type, "error", err)
		}
	}
}

// announce narrates a moment to the whole table. When the narrator fails or
// times out the built-in line is used.
func (st *Storyteller) announce(ctx context.Context, kind narration.Kind, data map[string]any) {
	nctx, cancel := context.WithTimeout(ctx, st.cfg.NarrationTimeout)
	text, err := st.narrator.Generate(nctx, kind, data)
	cancel()
	if err != nil || strings.TrimSpace(text) == "" {
		st.log.WarnContext(ctx, "narration failed, using fallback", "kind", kind, "error", err)
		text = narration.Fallback(kind, data)
	}

	st.emit(ctx, st.event(events.Narration, map[string]any{"kind": string(kind), "text": text}))
	st.speak(ctx, text)
}

func (st *Storyteller) speak(ctx context.Context, text string) {
	if err := st.io.Speak(ctx, text); err != nil {
		st.log.WarnContext(ctx, "speaking", "error", err)
	}
}

func (st *Storyteller) tell(ctx context.Context, player, text string) {
	if err := st.io.SpeakToPlayer(ctx, player, text); err != nil {
		st.log.WarnContext(ctx, "speaking to player", "player", player, "error", err)
	}
}

func playerNames(players []*game.Player) []string {
	out := make([]string, 0, len(players))
	for _, p := range players {
		out = append(out, p.Name)
	}
	return out
}
