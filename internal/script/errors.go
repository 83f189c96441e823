package script

import "errors"

var (
	ErrUnknownScript  = errors.New("unknown script")
	ErrUnknownRole    = errors.New("unknown role")
	ErrPlayerCount    = errors.New("unsupported player count")
	ErrNotEnoughRoles = errors.New("not enough roles in script")
)
