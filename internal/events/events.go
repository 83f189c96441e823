// Package events defines the state-change records the storyteller emits and
// the sinks that receive them.
package events

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/pixil98/go-errors"
)

// Type names a kind of event.
type Type string

const (
	GameCreated        Type = "game_created"
	PhaseChanged       Type = "phase_changed"
	PlayerWoken        Type = "player_woken"
	AbilityResolved    Type = "ability_resolved"
	PlayerDied         Type = "player_died"
	PlayerSurvived     Type = "player_survived"
	NominationMade     Type = "nomination_made"
	NominationRejected Type = "nomination_rejected"
	VoteTallied        Type = "vote_tallied"
	PlayerExecuted     Type = "player_executed"
	DemonPassed        Type = "demon_passed"
	Narration          Type = "narration"
	GameOver           Type = "game_over"
)

// Event is a plain record of something that happened in a game. Consumers
// never acknowledge events.
type Event struct {
	Type      Type           `json:"type"`
	GameID    string         `json:"game_id"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Sink receives events.
type Sink interface {
	Emit(ctx context.Context, e Event) error
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(ctx context.Context, e Event) error

func (f SinkFunc) Emit(ctx context.Context, e Event) error {
	return f(ctx, e)
}

// Multi delivers each event to every sink and reports all failures.
type Multi []Sink

func (m Multi) Emit(ctx context.Context, e Event) error {
	el := errors.NewErrorList()
	for _, s := range m {
		el.Add(s.Emit(ctx, e))
	}
	return el.Err()
}

type discard struct{}

func (discard) Emit(context.Context, Event) error { return nil }

// Discard drops every event.
var Discard Sink = discard{}

// Log writes every event to a logger at debug level.
type Log struct {
	Logger *slog.Logger
}

func (l Log) Emit(ctx context.Context, e Event) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.DebugContext(ctx, "game event", "type", e.Type, "game", e.GameID, "data", e.Data)
	return nil
}

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

// OfType returns the recorded events of type t.
func (r *Recorder) OfType(t Type) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
