// Package session connects terminals to games. The first terminal to connect
// hosts: it sets up the table and drives the day. Later terminals take a
// seat as one of the players.
package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pixil98/go-clocktower/internal"
	"github.com/pixil98/go-clocktower/internal/console"
	"github.com/pixil98/go-clocktower/internal/events"
	"github.com/pixil98/go-clocktower/internal/game"
	"github.com/pixil98/go-clocktower/internal/journal"
	"github.com/pixil98/go-clocktower/internal/listener"
	"github.com/pixil98/go-clocktower/internal/narration"
	"github.com/pixil98/go-clocktower/internal/script"
	"github.com/pixil98/go-clocktower/internal/setup"
	"github.com/pixil98/go-clocktower/internal/storage"
	"github.com/pixil98/go-clocktower/internal/storyteller"
)

// ExtTemplates is the setup extension key holding narration template
// overrides keyed by kind.
const ExtTemplates = "templates"

// Journal stores snapshots of running games.
type Journal interface {
	SaveSnapshot(ctx context.Context, s *game.State) error
	LoadSnapshot(ctx context.Context, id string) (*game.State, error)
	ListGames(ctx context.Context, includeOver bool) ([]journal.Summary, error)
}

// Config tunes every game the manager hosts.
type Config struct {
	Width             int
	DiscussionTimeout time.Duration
	NarrationTimeout  time.Duration
	MaxPromptTries    int
}

type ManagerOpt func(*Manager)

// WithSetups lets hosts load and save tables.
func WithSetups(s storage.Storer[*setup.Record]) ManagerOpt {
	return func(m *Manager) {
		m.setups = s
	}
}

// WithPreset skips the setup questions and always uses r.
func WithPreset(r *setup.Record) ManagerOpt {
	return func(m *Manager) {
		m.preset = r
	}
}

// WithJournal snapshots running games on every tick and offers unfinished
// games to the next host.
func WithJournal(j Journal) ManagerOpt {
	return func(m *Manager) {
		m.journal = j
	}
}

// WithEventSink sends every game's events to sink.
func WithEventSink(sink events.Sink) ManagerOpt {
	return func(m *Manager) {
		m.sink = sink
	}
}

// WithRequester enables the nats narrator for tables that ask for it.
func WithRequester(r narration.Requester) ManagerOpt {
	return func(m *Manager) {
		m.requester = r
	}
}

type Manager struct {
	catalog   *script.Catalog
	cfg       Config
	setups    storage.Storer[*setup.Record]
	preset    *setup.Record
	journal   Journal
	sink      events.Sink
	requester narration.Requester

	mu      sync.Mutex
	hosting bool
	table   *console.Table
	game    *storyteller.Storyteller
	done    chan struct{}
}

func NewManager(catalog *script.Catalog, cfg Config, opts ...ManagerOpt) *Manager {
	m := &Manager{
		catalog: catalog,
		cfg:     cfg,
		sink:    events.Discard,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start waits for shutdown and takes a last snapshot of a running game.
func (m *Manager) Start(ctx context.Context) error {
	<-ctx.Done()
	return m.Tick(context.WithoutCancel(ctx))
}

// Tick snapshots the running game.
func (m *Manager) Tick(ctx context.Context) error {
	if m.journal == nil {
		return nil
	}

	m.mu.Lock()
	st := m.game
	m.mu.Unlock()
	if st == nil {
		return nil
	}

	s := st.Snapshot()
	if s == nil {
		return nil
	}
	if err := m.journal.SaveSnapshot(ctx, s); err != nil {
		slog.WarnContext(ctx, "saving snapshot", "game", s.ID, "error", err)
	}
	return nil
}

// AcceptConnection serves one terminal until it disconnects or its game
// ends.
func (m *Manager) AcceptConnection(ctx context.Context, rw io.ReadWriter) error {
	c := console.NewConn(ctx, rw, m.cfg.Width)

	m.mu.Lock()
	switch {
	case !m.hosting:
		m.hosting = true
		m.mu.Unlock()
		defer m.release()
		return m.host(ctx, c)
	case m.table == nil:
		m.mu.Unlock()
		return c.WriteLine("The host is still setting up the table. Try again shortly.")
	default:
		table, done := m.table, m.done
		m.mu.Unlock()
		return m.join(ctx, c, table, done)
	}
}

func (m *Manager) release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hosting = false
	m.table = nil
	m.game = nil
	if m.done != nil {
		close(m.done)
		m.done = nil
	}
}

func (m *Manager) host(ctx context.Context, c *console.Conn) error {
	state, err := m.resumable(ctx, c)
	if err != nil {
		return err
	}

	var rec *setup.Record
	switch {
	case state != nil:
		rec = &setup.Record{Name: state.ID, Script: state.Script, Seed: state.Seed}
		for _, p := range state.Players {
			rec.Players = append(rec.Players, p.Name)
		}
	case m.preset != nil:
		rec = m.preset
	default:
		flow := &console.SetupFlow{Scripts: m.catalog.Scripts(), Setups: m.setups}
		if rec, err = flow.Run(ctx, c); err != nil {
			return fmt.Errorf("setting up table: %w", err)
		}
	}

	narrator, err := m.narrator(rec)
	if err != nil {
		return err
	}

	table := console.NewTable(c, rec.Players)
	st, err := storyteller.New(storyteller.Config{
		Seed:              rec.Seed,
		DiscussionTimeout: m.cfg.DiscussionTimeout,
		NarrationTimeout:  m.cfg.NarrationTimeout,
		MaxPromptTries:    m.cfg.MaxPromptTries,
	}, m.catalog, table,
		storyteller.WithNarrator(narrator),
		storyteller.WithEventSink(m.sink),
		storyteller.WithLogger(slog.Default()),
	)
	if err != nil {
		return fmt.Errorf("creating storyteller: %w", err)
	}

	if state != nil {
		err = st.Resume(state)
	} else {
		err = st.Setup(ctx, rec.Players, rec.Script)
	}
	if err != nil {
		return fmt.Errorf("starting game: %w", err)
	}

	m.mu.Lock()
	m.table, m.game, m.done = table, st, make(chan struct{})
	m.mu.Unlock()

	slog.InfoContext(ctx, "game started", "game", st.ID(), "players", len(rec.Players), "script", rec.Script)

	out, err := st.Run(ctx)
	if tickErr := m.Tick(context.WithoutCancel(ctx)); tickErr != nil {
		slog.WarnContext(ctx, "final snapshot", "error", tickErr)
	}
	if err != nil {
		return fmt.Errorf("running game %s: %w", st.ID(), err)
	}

	slog.InfoContext(ctx, "game over", "game", st.ID(), "winner", out.Winner, "reason", out.Reason)
	return nil
}

// resumable offers the most recent unfinished game to the host.
func (m *Manager) resumable(ctx context.Context, c *console.Conn) (*game.State, error) {
	if m.journal == nil {
		return nil, nil
	}
	games, err := m.journal.ListGames(ctx, false)
	if err != nil {
		slog.WarnContext(ctx, "listing unfinished games", "error", err)
		return nil, nil
	}
	if len(games) == 0 {
		return nil, nil
	}

	g := games[0]
	ok, err := internal.PromptYN(ctx, c, c, fmt.Sprintf("Resume the %s game from day %d (Y/N)? ", g.Script, g.Day))
	if err != nil || !ok {
		return nil, err
	}
	return m.journal.LoadSnapshot(ctx, g.ID)
}

func (m *Manager) narrator(rec *setup.Record) (narration.Narrator, error) {
	overrides, _, err := storage.Extension[map[narration.Kind]string](rec.Extensions, ExtTemplates)
	if err != nil {
		return nil, err
	}
	local, err := narration.NewTemplateNarrator(overrides)
	if err != nil {
		return nil, fmt.Errorf("narration templates: %w", err)
	}

	var n narration.Narrator = local
	if rec.Narrator == setup.NarratorNats {
		if m.requester == nil {
			slog.Warn("nats narrator requested but messaging is disabled, using templates")
		} else {
			n = narration.NewNatsNarrator(m.requester, "")
		}
	}
	return narration.WithVoice(n, rec.Voice, rec.Model), nil
}

// join seats a player at the table and keeps them there until the game ends
// or they disconnect.
func (m *Manager) join(ctx context.Context, c *console.Conn, table *console.Table, done <-chan struct{}) error {
	name := listener.User(ctx)
	if !containsFold(table.Roster(), name) {
		var err error
		name, err = internal.Prompt(ctx, c, c, "Which player are you? ", internal.WithMaxTries(3), internal.WithValidator(func(s string) (bool, string) {
			if !containsFold(table.Roster(), s) {
				return false, fmt.Sprintf("Players are %s.\n", strings.Join(table.Roster(), ", "))
			}
			return true, ""
		}))
		if err != nil {
			return err
		}
	}

	name, err := table.Join(name, c)
	if err != nil {
		return c.WriteLine(err.Error())
	}
	defer table.Leave(name)

	if err := c.WriteLine(fmt.Sprintf("Welcome, %s. Private information and night choices will come here.", name)); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
	case <-done:
	case <-c.Done():
	}
	return nil
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, strings.TrimSpace(s)) {
			return true
		}
	}
	return false
}
