package repositories

import (
	"errors"
	"fmt"
)

// ErrPermissionDenied means microphone access was refused. Nothing was
// acquired, so no teardown is needed.
var ErrPermissionDenied = errors.New("microphone access denied")

// ErrCredentialMissing means no API credential is available. It is surfaced
// before any resource acquisition or connection attempt.
var ErrCredentialMissing = errors.New("api credential missing")

// ConnectionError wraps a channel failure: the channel could not be opened or
// dropped mid-session. It is fatal to the session and is surfaced only after
// all local resources have been released.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("live connection %s failed", e.Op)
	}
	return fmt.Sprintf("live connection %s failed: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}
