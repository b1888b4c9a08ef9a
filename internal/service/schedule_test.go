package service

import (
	"context"
	"errors"
	"testing"

	"hive_schedule/internal/logger"
	"hive_schedule/internal/models"
)

type setDayCall struct {
	nodeID  string
	day     models.Day
	entries models.DaySchedule
}

type fakeScheduleClient struct {
	setDayErr  error
	setWeekErr error
	getResp    models.WeekSchedule
	getErr     error

	setDayCalls  []setDayCall
	setWeekCalls []models.WeekSchedule
}

func (f *fakeScheduleClient) GetSchedule(ctx context.Context, nodeID string) (models.WeekSchedule, error) {
	return f.getResp, f.getErr
}

func (f *fakeScheduleClient) SetDay(ctx context.Context, nodeID string, day models.Day, entries models.DaySchedule) error {
	f.setDayCalls = append(f.setDayCalls, setDayCall{nodeID: nodeID, day: day, entries: entries})
	return f.setDayErr
}

func (f *fakeScheduleClient) SetFullWeek(ctx context.Context, nodeID string, week models.WeekSchedule) error {
	f.setWeekCalls = append(f.setWeekCalls, week)
	return f.setWeekErr
}

var testProfiles = map[string]models.DaySchedule{
	"Weekday": {{Time: "06:30", Temp: 18}, {Time: "21:30", Temp: 16}},
	"holiday": {{Time: "00:00", Temp: 12}},
}

func newTestScheduleService(hive *fakeScheduleClient, events *fakeEventRepo) *ScheduleService {
	return NewScheduleService(hive, events, testProfiles, logger.NewNop())
}

func TestScheduleService_SetDaySchedule_CustomEntries(t *testing.T) {
	hive := &fakeScheduleClient{}
	events := &fakeEventRepo{}
	svc := newTestScheduleService(hive, events)

	entries := models.DaySchedule{{Time: "07:00", Temp: 19}}
	err := svc.SetDaySchedule(context.Background(), DayParams{NodeID: " node-1 ", Day: "Monday", Entries: entries, Profile: "custom"})
	if err != nil {
		t.Fatalf("SetDaySchedule: %v", err)
	}
	if len(hive.setDayCalls) != 1 {
		t.Fatalf("expected 1 SetDay call, got %d", len(hive.setDayCalls))
	}
	call := hive.setDayCalls[0]
	if call.nodeID != "node-1" || call.day != models.Monday || len(call.entries) != 1 {
		t.Fatalf("unexpected call %+v", call)
	}
	if len(events.appended) != 1 || events.appended[0].Type != models.EventDaySet || events.appended[0].NodeID != "node-1" {
		t.Fatalf("expected DAY_SET event, got %+v", events.appended)
	}
	if events.appended[0].EventID == "" || events.appended[0].OccurredAt.IsZero() {
		t.Fatalf("event id and time must be set")
	}
}

func TestScheduleService_SetDaySchedule_Profile(t *testing.T) {
	hive := &fakeScheduleClient{}
	svc := newTestScheduleService(hive, &fakeEventRepo{})

	if err := svc.SetDaySchedule(context.Background(), DayParams{NodeID: "n", Day: "saturday", Profile: "WEEKDAY"}); err != nil {
		t.Fatalf("SetDaySchedule: %v", err)
	}
	if got := hive.setDayCalls[0].entries; len(got) != 2 || got[0].Time != "06:30" {
		t.Fatalf("profile entries not used: %+v", got)
	}
}

func TestScheduleService_SetDaySchedule_Validation(t *testing.T) {
	cases := []struct {
		name string
		p    DayParams
		want error
	}{
		{"missing node", DayParams{Day: "monday", Entries: models.DaySchedule{{Time: "06:00", Temp: 18}}}, ErrInvalidParams},
		{"unknown day", DayParams{NodeID: "n", Day: "funday", Entries: models.DaySchedule{{Time: "06:00", Temp: 18}}}, ErrUnknownDay},
		{"empty custom", DayParams{NodeID: "n", Day: "monday"}, ErrInvalidParams},
		{"unknown profile", DayParams{NodeID: "n", Day: "monday", Profile: "party"}, ErrUnknownProfile},
		{"profile and entries", DayParams{NodeID: "n", Day: "monday", Profile: "holiday", Entries: models.DaySchedule{{Time: "06:00", Temp: 18}}}, ErrInvalidParams},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hive := &fakeScheduleClient{}
			events := &fakeEventRepo{}
			svc := newTestScheduleService(hive, events)

			if err := svc.SetDaySchedule(context.Background(), tc.p); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if len(hive.setDayCalls) != 0 || len(events.appended) != 0 {
				t.Fatalf("validation failure must not call hive or log events")
			}
		})
	}
}

func TestScheduleService_SetDaySchedule_FailureIsLogged(t *testing.T) {
	upstream := errors.New("cannot preserve")
	hive := &fakeScheduleClient{setDayErr: upstream}
	events := &fakeEventRepo{}
	svc := newTestScheduleService(hive, events)

	err := svc.SetDaySchedule(context.Background(), DayParams{NodeID: "n", Day: "monday", Profile: "holiday"})
	if !errors.Is(err, upstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if len(events.appended) != 1 || events.appended[0].Type != models.EventScheduleError {
		t.Fatalf("expected SCHEDULE_ERROR event, got %+v", events.appended)
	}
	meta := events.appended[0].Metadata.(map[string]any)
	if meta["error"] != "cannot preserve" || meta["profile"] != "holiday" {
		t.Fatalf("unexpected metadata %+v", meta)
	}
}

func TestScheduleService_SetDaySchedule_CancelledIsNotLogged(t *testing.T) {
	hive := &fakeScheduleClient{setDayErr: context.Canceled}
	events := &fakeEventRepo{}
	svc := newTestScheduleService(hive, events)

	_ = svc.SetDaySchedule(context.Background(), DayParams{NodeID: "n", Day: "monday", Profile: "holiday"})
	if len(events.appended) != 0 {
		t.Fatalf("shutdown must not produce error events")
	}
}

func TestScheduleService_EventAppendFailureDoesNotFailWrite(t *testing.T) {
	svc := newTestScheduleService(&fakeScheduleClient{}, &fakeEventRepo{appendErr: errors.New("disk full")})
	if err := svc.SetDaySchedule(context.Background(), DayParams{NodeID: "n", Day: "monday", Profile: "holiday"}); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestScheduleService_SetHeatingSchedule(t *testing.T) {
	hive := &fakeScheduleClient{}
	events := &fakeEventRepo{}
	svc := newTestScheduleService(hive, events)

	week := models.WeekSchedule{models.Sunday: {{Time: "09:00", Temp: 20}}}
	if err := svc.SetHeatingSchedule(context.Background(), "node-1", week); err != nil {
		t.Fatalf("SetHeatingSchedule: %v", err)
	}
	if len(hive.setWeekCalls) != 1 {
		t.Fatalf("expected SetFullWeek call")
	}
	if len(events.appended) != 1 || events.appended[0].Type != models.EventWeekSet {
		t.Fatalf("expected WEEK_SET event, got %+v", events.appended)
	}

	bad := models.WeekSchedule{models.Day("someday"): {{Time: "09:00", Temp: 20}}}
	if err := svc.SetHeatingSchedule(context.Background(), "node-1", bad); !errors.Is(err, ErrUnknownDay) {
		t.Fatalf("expected ErrUnknownDay, got %v", err)
	}
	if len(hive.setWeekCalls) != 1 {
		t.Fatalf("invalid week must not reach hive")
	}
}

func TestScheduleService_SetHeatingSchedule_DayNamesCanonical(t *testing.T) {
	hive := &fakeScheduleClient{}
	events := &fakeEventRepo{}
	svc := newTestScheduleService(hive, events)

	week := models.WeekSchedule{
		models.Day("Monday"): {{Time: "06:00", Temp: 19}},
		models.Day("SUNDAY"): {{Time: "09:00", Temp: 20}},
	}
	if err := svc.SetHeatingSchedule(context.Background(), "node-1", week); err != nil {
		t.Fatalf("SetHeatingSchedule: %v", err)
	}
	sent := hive.setWeekCalls[0]
	if len(sent) != 2 || len(sent[models.Monday]) != 1 || len(sent[models.Sunday]) != 1 {
		t.Fatalf("expected lower-case keys, got %v", sent)
	}
	meta, _ := events.appended[0].Metadata.(map[string]any)
	days, _ := meta["days"].([]string)
	if len(days) != 2 || days[0] != "monday" || days[1] != "sunday" {
		t.Fatalf("unexpected days metadata %v", events.appended[0].Metadata)
	}

	dup := models.WeekSchedule{
		models.Monday:        {{Time: "06:00", Temp: 19}},
		models.Day("Monday"): {{Time: "07:00", Temp: 20}},
	}
	if err := svc.SetHeatingSchedule(context.Background(), "node-1", dup); !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("expected ErrInvalidParams, got %v", err)
	}
	if len(hive.setWeekCalls) != 1 {
		t.Fatalf("duplicate days must not reach hive")
	}
}

func TestScheduleService_Profiles_ReturnsCopy(t *testing.T) {
	svc := newTestScheduleService(&fakeScheduleClient{}, &fakeEventRepo{})

	p := svc.Profiles()
	if _, ok := p["weekday"]; !ok {
		t.Fatalf("profile names must be normalized, got %v", p)
	}
	p["weekday"][0].Temp = 99
	if svc.Profiles()["weekday"][0].Temp != 18 {
		t.Fatalf("Profiles must return a copy")
	}
}
