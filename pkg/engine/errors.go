package engine

import "errors"

var (
	// ErrToolsUnavailable is returned before any side effect when the
	// external tools are missing.
	ErrToolsUnavailable = errors.New("calibration tools not available")

	// ErrWriteFailed means the tool rejected every write attempt.
	ErrWriteFailed = errors.New("register write failed")

	// ErrVerificationMismatch means the register read back a different
	// value after the last attempt.
	ErrVerificationMismatch = errors.New("register read back a different value")

	// ErrUnverified means the last read-back was unreadable and the policy
	// does not assume success.
	ErrUnverified = errors.New("register value could not be verified")

	// ErrNotReady means DDC/CI did not become readable before the timeout.
	ErrNotReady = errors.New("display not readable before timeout")

	// ErrNotStable means the register did not settle on the target value
	// within the stabilization window.
	ErrNotStable = errors.New("register did not stabilize")
)
