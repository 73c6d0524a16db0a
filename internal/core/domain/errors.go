package domain

import "errors"

var (
	ErrUnrecognizedCommand = errors.New("unrecognized command")
	ErrPrivilegeDenied     = errors.New("insufficient privilege")
	ErrBlocked             = errors.New("user is blocked")
	ErrOnCooldown          = errors.New("on cooldown")
	ErrUnknownGame         = errors.New("unknown game")
	ErrNoActiveGame        = errors.New("no active game")
	ErrUnsupportedButton   = errors.New("unsupported button")
	ErrSnapshotNotFound    = errors.New("snapshot not found")
	ErrCorruptSnapshot     = errors.New("corrupt snapshot")
	ErrDeviceClosed        = errors.New("device closed")
)
