package hive

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"hive_schedule/internal/models"
)

const minutesPerDay = 24 * 60

// WireEntry is one switch point as the API expects it.
type WireEntry struct {
	Value WireValue `json:"value"`
	Start int       `json:"start"` // minutes after midnight
}

type WireValue struct {
	Target float64 `json:"target"`
}

// BuildEntry converts "HH:MM" and a temperature into a wire entry.
func BuildEntry(timeOfDay string, temp float64) (WireEntry, error) {
	minutes, err := parseMinutes(timeOfDay)
	if err != nil {
		return WireEntry{}, err
	}
	if math.IsNaN(temp) || math.IsInf(temp, 0) {
		return WireEntry{}, fmt.Errorf("%w: %v", ErrInvalidTemp, temp)
	}
	return WireEntry{Value: WireValue{Target: temp}, Start: minutes}, nil
}

// BuildDay converts a day program, keeping the caller's order.
func BuildDay(day models.DaySchedule) ([]WireEntry, error) {
	out := make([]WireEntry, 0, len(day))
	for i, e := range day {
		w, err := BuildEntry(e.Time, e.Temp)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		out = append(out, w)
	}
	return out, nil
}

func parseMinutes(s string) (int, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok || strings.Contains(mm, ":") {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTime, s)
	}
	h, errH := atoiDigits(hh)
	m, errM := atoiDigits(mm)
	if errH != nil || errM != nil || h > 23 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTime, s)
	}
	return h*60 + m, nil
}

func atoiDigits(s string) (int, error) {
	if s == "" || len(s) > 2 {
		return 0, strconv.ErrSyntax
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, strconv.ErrSyntax
		}
	}
	return strconv.Atoi(s)
}

// toModel renders a wire entry back as HH:MM.
func (w WireEntry) toModel() (models.ScheduleEntry, error) {
	if w.Start < 0 || w.Start >= minutesPerDay {
		return models.ScheduleEntry{}, fmt.Errorf("start %d outside 0..%d", w.Start, minutesPerDay-1)
	}
	return models.ScheduleEntry{
		Time: fmt.Sprintf("%02d:%02d", w.Start/60, w.Start%60),
		Temp: w.Value.Target,
	}, nil
}
