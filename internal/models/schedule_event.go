package models

import "time"

// Event types recorded in the schedule event log.
const (
	EventDaySet         = "DAY_SET"
	EventWeekSet        = "WEEK_SET"
	EventScheduleError  = "SCHEDULE_ERROR"
	EventLogin          = "LOGIN"
	EventMfaRequired    = "MFA_REQUIRED"
	EventMfaVerified    = "MFA_VERIFIED"
	EventTokenRefreshed = "TOKEN_REFRESHED"
	EventAuthError      = "AUTH_ERROR"
)

// ScheduleEvent is a single log entry.
type ScheduleEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"` // DAY_SET | WEEK_SET | SCHEDULE_ERROR | LOGIN | ...
	NodeID      string    `json:"node_id,omitempty"`
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}
