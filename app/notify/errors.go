package notify

import (
	"errors"
	"fmt"
)

var (
	ErrNoReceiver = errors.New("no receiver attached")
	ErrHubClosed  = errors.New("hub closed")
)

// NotifyError reports a count that could not be delivered. It is logged and
// never affects the counters.
type NotifyError struct {
	Count int
	Err   error
}

func (e *NotifyError) Error() string {
	return fmt.Sprintf("failed to deliver count %d: %v", e.Count, e.Err)
}

func (e *NotifyError) Unwrap() error {
	return e.Err
}
