package vcp

import "errors"

var (
	// ErrToolFailed means the tool could not be spawned or exited non-zero.
	ErrToolFailed = errors.New("vcp tool failed")

	// ErrUnreadable means the tool ran but reported no value we could parse.
	// It is not the same as reading zero.
	ErrUnreadable = errors.New("register value unreadable")
)
