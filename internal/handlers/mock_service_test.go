package handlers

import (
	"context"
	"net/http"
	"time"

	"hive_schedule/internal/models"
	"hive_schedule/internal/service"
	"hive_schedule/internal/session"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastInvitedBy      int
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(ctx context.Context, username, password string, invitedBy int) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	m.lastInvitedBy = invitedBy
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(ctx context.Context, username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockSchedule struct {
	week     models.WeekSchedule
	getErr   error
	dayErr   error
	weekErr  error
	profiles map[string]models.DaySchedule

	lastDay     service.DayParams
	lastNode    string
	lastWeek    models.WeekSchedule
	dayCalls    int
	weekCalls   int
	getNodeSeen string
}

func (m *mockSchedule) SetDaySchedule(ctx context.Context, p service.DayParams) error {
	m.dayCalls++
	m.lastDay = p
	return m.dayErr
}
func (m *mockSchedule) SetHeatingSchedule(ctx context.Context, nodeID string, week models.WeekSchedule) error {
	m.weekCalls++
	m.lastNode = nodeID
	m.lastWeek = week
	return m.weekErr
}
func (m *mockSchedule) GetSchedule(ctx context.Context, nodeID string) (models.WeekSchedule, error) {
	m.getNodeSeen = nodeID
	return m.week, m.getErr
}
func (m *mockSchedule) Profiles() map[string]models.DaySchedule {
	return m.profiles
}

type mockSession struct {
	outcome    session.Outcome
	loginErr   error
	verifyErr  error
	refreshErr error
	status     models.SessionStatus

	lastCred     *models.Credential
	lastCode     string
	loginCalls   int
	refreshCalls int
}

func (m *mockSession) Login(ctx context.Context, cred *models.Credential) (session.Outcome, error) {
	m.loginCalls++
	m.lastCred = cred
	return m.outcome, m.loginErr
}
func (m *mockSession) VerifyMFACode(ctx context.Context, code string) error {
	m.lastCode = code
	return m.verifyErr
}
func (m *mockSession) RefreshToken(ctx context.Context) error {
	m.refreshCalls++
	return m.refreshErr
}
func (m *mockSession) Status() models.SessionStatus {
	return m.status
}

type mockEventLog struct {
	resp     []models.ScheduleEvent
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastType string
	lastNode string
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.ScheduleEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	m.lastNode = f.NodeID
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
