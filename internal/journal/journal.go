// Package journal keeps game snapshots and the event log in SQLite so an
// interrupted game can be resumed and a finished one replayed.
package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/pixil98/go-clocktower/internal/events"
	"github.com/pixil98/go-clocktower/internal/game"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// ErrNotFound is returned when no snapshot exists for a game.
var ErrNotFound = errors.New("game not found")

// Summary describes a stored game.
type Summary struct {
	ID        string
	Script    string
	Phase     game.Phase
	Day       int
	Winner    game.Team
	UpdatedAt time.Time
}

// Journal is a SQLite-backed snapshot store and event sink.
type Journal struct {
	db *sql.DB
}

var _ events.Sink = (*Journal)(nil)

// Open opens or creates the journal at path. ":memory:" keeps it in memory.
func Open(path string) (*Journal, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("journal path is required")
	}

	dsn := ":memory:"
	if path != dsn {
		dsn = filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// One connection serialises writers and keeps an in-memory db alive.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// SaveSnapshot stores the latest state of a game, replacing any earlier one.
func (j *Journal) SaveSnapshot(ctx context.Context, s *game.State) error {
	if s == nil || s.ID == "" {
		return fmt.Errorf("snapshot needs a game id")
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshalling game %s: %w", s.ID, err)
	}

	_, err = j.db.ExecContext(ctx,
		`INSERT INTO games (id, script, phase, day, winner, state, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   script = excluded.script,
		   phase = excluded.phase,
		   day = excluded.day,
		   winner = excluded.winner,
		   state = excluded.state,
		   updated_at = excluded.updated_at`,
		s.ID, s.Script, s.Phase.String(), s.Day, s.Winner.String(), string(data), time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("saving game %s: %w", s.ID, err)
	}
	return nil
}

// LoadSnapshot returns the stored state of a game.
func (j *Journal) LoadSnapshot(ctx context.Context, id string) (*game.State, error) {
	var data string
	err := j.db.QueryRowContext(ctx, `SELECT state FROM games WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading game %s: %w", id, err)
	}

	var s game.State
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, fmt.Errorf("unmarshalling game %s: %w", id, err)
	}
	return &s, nil
}

// ListGames returns stored games, most recently updated first. Finished
// games are skipped unless includeOver is set.
func (j *Journal) ListGames(ctx context.Context, includeOver bool) ([]Summary, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, script, phase, day, winner, updated_at FROM games ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("listing games: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sum     Summary
			phase   string
			winner  string
			updated int64
		)
		if err := rows.Scan(&sum.ID, &sum.Script, &phase, &sum.Day, &winner, &updated); err != nil {
			return nil, fmt.Errorf("scanning game: %w", err)
		}
		if err := sum.Phase.UnmarshalText([]byte(phase)); err != nil {
			return nil, fmt.Errorf("game %s: %w", sum.ID, err)
		}
		if sum.Phase == game.PhaseGameOver && !includeOver {
			continue
		}
		if err := sum.Winner.UnmarshalText([]byte(winner)); err != nil {
			return nil, fmt.Errorf("game %s: %w", sum.ID, err)
		}
		sum.UpdatedAt = time.UnixMilli(updated).UTC()
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Emit appends an event to the log.
func (j *Journal) Emit(ctx context.Context, e events.Event) error {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return fmt.Errorf("marshalling %s event: %w", e.Type, err)
	}
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err = j.db.ExecContext(ctx,
		`INSERT INTO events (game_id, type, data, created_at) VALUES (?, ?, ?, ?)`,
		e.GameID, string(e.Type), string(data), ts.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("appending %s event: %w", e.Type, err)
	}
	return nil
}

// Events returns a game's events in the order they were emitted.
func (j *Journal) Events(ctx context.Context, gameID string) ([]events.Event, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT type, data, created_at FROM events WHERE game_id = ? ORDER BY seq`, gameID)
	if err != nil {
		return nil, fmt.Errorf("loading events for %s: %w", gameID, err)
	}
	defer rows.Close()

	var out []events.Event
	for rows.Next() {
		var (
			typ  string
			data string
			ts   int64
		)
		if err := rows.Scan(&typ, &data, &ts); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		e := events.Event{Type: events.Type(typ), GameID: gameID, Timestamp: time.UnixMilli(ts).UTC()}
		if err := json.Unmarshal([]byte(data), &e.Data); err != nil {
			return nil, fmt.Errorf("unmarshalling %s event: %w", typ, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
