package hive

import (
	"bytes"
	"encoding/json"
	"fmt"

	"hive_schedule/internal/models"
)

// rawWeek keeps each day exactly as the API returned it.
type rawWeek map[models.Day]json.RawMessage

type nodeObject struct {
	ID         string                     `json:"id"`
	Schedule   json.RawMessage            `json:"schedule"`
	Attributes map[string]json.RawMessage `json:"attributes"`
}

// extractWeek locates the schedule of nodeID in any of the response
// shapes the API has been seen to return.
func extractWeek(body []byte, nodeID string) (rawWeek, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, ErrScheduleNotFound
	}

	if body[0] == '[' {
		var nodes []json.RawMessage
		if err := json.Unmarshal(body, &nodes); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrScheduleNotFound, err)
		}
		return weekFromNodes(nodes, nodeID)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScheduleNotFound, err)
	}

	if s, ok := obj["schedule"]; ok {
		return parseWeek(s)
	}
	if n, ok := obj["nodes"]; ok {
		var nodes []json.RawMessage
		if err := json.Unmarshal(n, &nodes); err == nil {
			return weekFromNodes(nodes, nodeID)
		}
	}
	if n, ok := obj[nodeID]; ok {
		return weekFromNode(n)
	}
	// a single node object, as returned for /nodes/heating/{id}
	var n nodeObject
	if err := json.Unmarshal(body, &n); err == nil && (n.ID == "" || n.ID == nodeID) {
		if week, err := weekFromNode(body); err == nil {
			return week, nil
		}
	}
	return parseWeek(body)
}

func weekFromNodes(nodes []json.RawMessage, nodeID string) (rawWeek, error) {
	for _, raw := range nodes {
		var n nodeObject
		if err := json.Unmarshal(raw, &n); err != nil {
			continue
		}
		if n.ID == nodeID || (len(nodes) == 1 && n.ID == "") {
			return weekFromNode(raw)
		}
	}
	return nil, ErrScheduleNotFound
}

func weekFromNode(raw json.RawMessage) (rawWeek, error) {
	var n nodeObject
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScheduleNotFound, err)
	}
	if s, ok := n.Attributes["schedule"]; ok {
		return parseWeek(s)
	}
	if len(n.Schedule) > 0 {
		return parseWeek(n.Schedule)
	}
	return parseWeek(raw)
}

// parseWeek accepts a week object, optionally wrapped in reportedValue or targetValue.
func parseWeek(raw json.RawMessage) (rawWeek, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScheduleNotFound, err)
	}
	for _, wrapper := range []string{"reportedValue", "targetValue"} {
		if inner, ok := obj[wrapper]; ok && !isNull(inner) {
			return parseWeek(inner)
		}
	}

	week := rawWeek{}
	for _, d := range models.Days {
		if v, ok := obj[string(d)]; ok && !isNull(v) {
			week[d] = v
		}
	}
	if len(week) == 0 {
		return nil, ErrScheduleNotFound
	}
	return week, nil
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null"
}

// missing lists the days other than except that are absent.
func (w rawWeek) missing(except models.Day) []models.Day {
	var out []models.Day
	for _, d := range models.Days {
		if d == except {
			continue
		}
		if _, ok := w[d]; !ok {
			out = append(out, d)
		}
	}
	return out
}

func (w rawWeek) toModel() (models.WeekSchedule, error) {
	out := make(models.WeekSchedule, len(w))
	for d, raw := range w {
		var entries []WireEntry
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedSchedule, d, err)
		}
		day := make(models.DaySchedule, 0, len(entries))
		for i, e := range entries {
			entry, err := e.toModel()
			if err != nil {
				return nil, fmt.Errorf("%w: %s entry %d: %v", ErrMalformedSchedule, d, i, err)
			}
			day = append(day, entry)
		}
		out[d] = day
	}
	return out, nil
}
