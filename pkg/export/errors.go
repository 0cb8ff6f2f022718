package export

import (
	"errors"
	"fmt"
)

// Reason strings carried in error response bodies and logs.
const (
	ReasonInvalidTarget       = "InvalidTarget"
	ReasonInvalidParameter    = "InvalidParameter"
	ReasonUpstreamUnavailable = "UpstreamUnavailable"
	ReasonStreamInterrupted   = "StreamInterrupted"
)

var (
	// ErrInvalidTarget reports a missing or malformed 'target' parameter.
	ErrInvalidTarget = errors.New("missing or invalid 'target' parameter: must be an absolute URL with a scheme")

	// ErrInvalidParameter reports a malformed 'last' parameter.
	ErrInvalidParameter = errors.New("invalid 'last' parameter: must be a non-negative number of seconds")

	// ErrStreamInterrupted reports an upstream body cut off mid-transfer
	// after forwarding already began.
	ErrStreamInterrupted = errors.New("upstream stream interrupted mid-transfer")
)

// UpstreamError reports a failed attempt against the upstream server:
// connect, DNS or timeout failures, or a non-2xx response. StatusCode is
// zero when the exchange never produced a response. A single attempt is
// made per export; there are no retries to aggregate.
type UpstreamError struct {
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream unavailable: status %d", e.StatusCode)
	}
	return fmt.Sprintf("upstream unavailable: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
