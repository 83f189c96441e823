package storyteller

import (
	"errors"
	"fmt"
)

var (
	ErrNotSetUp     = errors.New("game has not been set up")
	ErrAlreadySetUp = errors.New("game is already set up")
	ErrWrongPhase   = errors.New("not allowed in the current phase")
)

// ConfigError reports a game that cannot be started as configured.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid game configuration: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// InvariantError reports game state that broke a rule it must always keep.
// The game cannot continue.
type InvariantError struct {
	Err error
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("game invariant violated: %v", e.Err)
}

func (e *InvariantError) Unwrap() error {
	return e.Err
}
