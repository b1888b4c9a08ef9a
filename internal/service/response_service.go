package service

import (
	"time"

	"hive_schedule/internal/models"
)

// ProfileCustom means "use the supplied entries".
const ProfileCustom = "custom"

// DayParams describes a single-day write. Either Entries or a named Profile.
type DayParams struct {
	NodeID  string
	Day     string
	Entries models.DaySchedule
	Profile string // "", "custom" or a configured profile name
}

// LogFilter supports history filtering by time range, type and node.
type LogFilter struct {
	From   time.Time // inclusive; zero means no lower bound
	To     time.Time // inclusive; zero means no upper bound
	Type   string    // "", "DAY_SET", "WEEK_SET", "SCHEDULE_ERROR", "LOGIN", ...
	NodeID string
}
