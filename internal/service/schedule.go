package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"hive_schedule/internal/logger"
	"hive_schedule/internal/models"
	"hive_schedule/internal/repository"

	"github.com/google/uuid"
)

var (
	ErrInvalidParams  = errors.New("invalid parameters")
	ErrUnknownDay     = errors.New("unknown day")
	ErrUnknownProfile = errors.New("unknown profile")
)

type ScheduleService struct {
	hive      ScheduleClient
	eventRepo repository.EventRepo
	profiles  map[string]models.DaySchedule
	log       *logger.Logger
}

func NewScheduleService(hive ScheduleClient, eventRepo repository.EventRepo, profiles map[string]models.DaySchedule, log *logger.Logger) *ScheduleService {
	norm := make(map[string]models.DaySchedule, len(profiles))
	for name, day := range profiles {
		norm[strings.ToLower(strings.TrimSpace(name))] = day
	}
	return &ScheduleService{hive: hive, eventRepo: eventRepo, profiles: norm, log: log}
}

// SetDaySchedule replaces one day, keeping the rest of the week as stored on Hive.
func (s *ScheduleService) SetDaySchedule(ctx context.Context, p DayParams) error {
	nodeID := strings.TrimSpace(p.NodeID)
	if nodeID == "" {
		return fmt.Errorf("%w: node_id is required", ErrInvalidParams)
	}
	day, err := models.ParseDay(p.Day)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrUnknownDay, p.Day)
	}
	entries, profile, err := s.resolveEntries(p)
	if err != nil {
		return err
	}

	err = s.hive.SetDay(ctx, nodeID, day, entries)
	meta := map[string]any{"day": string(day), "entries": len(entries)}
	if profile != "" {
		meta["profile"] = profile
	}
	if err != nil {
		s.recordFailure(ctx, nodeID, fmt.Sprintf("setting %s failed", day), meta, err)
		return err
	}
	s.record(ctx, models.ScheduleEvent{
		Type:        models.EventDaySet,
		NodeID:      nodeID,
		Description: fmt.Sprintf("%s schedule updated", day),
		Metadata:    meta,
	})
	return nil
}

// SetHeatingSchedule writes the whole week; missing days get the default program.
func (s *ScheduleService) SetHeatingSchedule(ctx context.Context, nodeID string, week models.WeekSchedule) error {
	nodeID = strings.TrimSpace(nodeID)
	if nodeID == "" {
		return fmt.Errorf("%w: node_id is required", ErrInvalidParams)
	}
	canonical := make(models.WeekSchedule, len(week))
	for d, entries := range week {
		day, err := models.ParseDay(string(d))
		if err != nil {
			return fmt.Errorf("%w: %q", ErrUnknownDay, d)
		}
		if _, dup := canonical[day]; dup {
			return fmt.Errorf("%w: %s given more than once", ErrInvalidParams, day)
		}
		canonical[day] = entries
	}
	week = canonical

	days := make([]string, 0, len(week))
	for d := range week {
		days = append(days, string(d))
	}
	sort.Strings(days)
	meta := map[string]any{"days": days}

	if err := s.hive.SetFullWeek(ctx, nodeID, week); err != nil {
		s.recordFailure(ctx, nodeID, "weekly schedule write failed", meta, err)
		return err
	}
	s.record(ctx, models.ScheduleEvent{
		Type:        models.EventWeekSet,
		NodeID:      nodeID,
		Description: "weekly schedule replaced",
		Metadata:    meta,
	})
	return nil
}

func (s *ScheduleService) GetSchedule(ctx context.Context, nodeID string) (models.WeekSchedule, error) {
	nodeID = strings.TrimSpace(nodeID)
	if nodeID == "" {
		return nil, fmt.Errorf("%w: node_id is required", ErrInvalidParams)
	}
	return s.hive.GetSchedule(ctx, nodeID)
}

// Profiles returns a copy of the configured day programs.
func (s *ScheduleService) Profiles() map[string]models.DaySchedule {
	out := make(map[string]models.DaySchedule, len(s.profiles))
	for name, day := range s.profiles {
		out[name] = append(models.DaySchedule(nil), day...)
	}
	return out
}

func (s *ScheduleService) resolveEntries(p DayParams) (models.DaySchedule, string, error) {
	name := strings.ToLower(strings.TrimSpace(p.Profile))
	if name == "" || name == ProfileCustom {
		if len(p.Entries) == 0 {
			return nil, "", fmt.Errorf("%w: schedule must contain at least one entry", ErrInvalidParams)
		}
		return p.Entries, name, nil
	}
	if len(p.Entries) > 0 {
		return nil, "", fmt.Errorf("%w: give either a profile or a schedule", ErrInvalidParams)
	}
	day, ok := s.profiles[name]
	if !ok {
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownProfile, p.Profile)
	}
	return day, name, nil
}

func (s *ScheduleService) recordFailure(ctx context.Context, nodeID, desc string, meta map[string]any, cause error) {
	if errors.Is(cause, context.Canceled) {
		return
	}
	s.log.Errorw("schedule_write_failed", "node_id", nodeID, "err", cause)
	m := map[string]any{"error": cause.Error()}
	for k, v := range meta {
		m[k] = v
	}
	s.record(ctx, models.ScheduleEvent{
		Type:        models.EventScheduleError,
		NodeID:      nodeID,
		Description: desc,
		Metadata:    m,
	})
}

// record never fails the caller; the Hive write already happened.
func (s *ScheduleService) record(ctx context.Context, ev models.ScheduleEvent) {
	ev.EventID = uuid.NewString()
	ev.OccurredAt = time.Now().UTC()
	if err := s.eventRepo.Append(ctx, ev); err != nil {
		s.log.Warnw("event_append_failed", "type", ev.Type, "err", err)
	}
}
