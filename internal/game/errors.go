package game

import "errors"

var (
	ErrPlayerNotFound = errors.New("player not found")
	ErrNoDemon        = errors.New("no demon in play")
	ErrMultipleDemons = errors.New("more than one demon in play")
	ErrInvariant      = errors.New("game state invariant violated")
)
