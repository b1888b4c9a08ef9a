package hive

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedTime   = errors.New("malformed time of day, want HH:MM")
	ErrInvalidTemp     = errors.New("invalid target temperature")
	ErrUnauthenticated = errors.New("no hive token available")
	// ErrAuthenticationFailed means the API rejected a freshly renewed token.
	ErrAuthenticationFailed   = errors.New("hive rejected the session token")
	ErrUnknownNode            = errors.New("unknown heating node")
	ErrUpstreamTimeout        = errors.New("hive api timed out")
	ErrCannotPreserveSchedule = errors.New("cannot read the current schedule; refusing a partial write")
	ErrScheduleNotFound       = errors.New("no schedule in hive response")
	ErrMalformedSchedule      = errors.New("malformed schedule in hive response")
	// ErrDuplicateDay is a week naming the same day twice, e.g. "Monday" and "monday".
	ErrDuplicateDay = errors.New("day given more than once")
)

// UpstreamError is any other non-2xx answer from the API.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("hive api returned %d", e.Status)
	}
	return fmt.Sprintf("hive api returned %d: %s", e.Status, e.Body)
}
