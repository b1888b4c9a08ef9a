package models

import (
	"fmt"
	"strings"
)

// Day is a lower-case weekday name as used on the wire.
type Day string

const (
	Monday    Day = "monday"
	Tuesday   Day = "tuesday"
	Wednesday Day = "wednesday"
	Thursday  Day = "thursday"
	Friday    Day = "friday"
	Saturday  Day = "saturday"
	Sunday    Day = "sunday"
)

// Days lists the week in wire order.
var Days = []Day{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// ParseDay accepts a weekday name in any case.
func ParseDay(s string) (Day, error) {
	d := Day(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Days {
		if d == known {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown day %q", s)
}

// ScheduleEntry switches the target temperature at Time (HH:MM).
type ScheduleEntry struct {
	Time string  `json:"time" yaml:"time" mapstructure:"time"`
	Temp float64 `json:"temp" yaml:"temp" mapstructure:"temp"` // °C
}

// DaySchedule keeps entries in caller order.
type DaySchedule []ScheduleEntry

// WeekSchedule maps each day to its program.
type WeekSchedule map[Day]DaySchedule

// DefaultDay is used for days a full-week write does not mention.
func DefaultDay() DaySchedule {
	return DaySchedule{{Time: "00:00", Temp: 16.0}}
}
