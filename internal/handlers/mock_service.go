package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"greenhouse_control/internal/command"
	"greenhouse_control/internal/models"
	"greenhouse_control/internal/service"

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
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(_ context.Context, username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}

func (m *mockAuth) GenerateToken(_ context.Context, username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}

func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type powerCall struct {
	device models.Device
	on     bool
	source string
}

type mockDevices struct {
	statuses    []models.DeviceStatus
	statusesErr error
	setErr      error
	calls       []powerCall
}

func (m *mockDevices) SetPower(_ context.Context, d models.Device, on bool, source string) error {
	m.calls = append(m.calls, powerCall{d, on, source})
	return m.setErr
}

func (m *mockDevices) SetAutoMode(_ context.Context, d models.Device, on bool, source string) error {
	return m.setErr
}

func (m *mockDevices) Statuses(context.Context) ([]models.DeviceStatus, error) {
	return m.statuses, m.statusesErr
}

type mockSchedules struct {
	set models.ScheduleSet
	err error
}

func (m *mockSchedules) Save(_ context.Context, kind models.ScheduleKind, times []string, duration int) (models.Schedule, error) {
	return models.Schedule{Enabled: true, Times: times, Duration: duration}, m.err
}

func (m *mockSchedules) All(context.Context) (models.ScheduleSet, error) {
	return m.set, m.err
}

type mockScheduler struct {
	pending []models.PendingShutoff
}

func (m *mockScheduler) Tick(context.Context, time.Time) error { return nil }
func (m *mockScheduler) Start(context.Context) error { return nil }
func (m *mockScheduler) Stop() {}
func (m *mockScheduler) Pending() []models.PendingShutoff { return m.pending }

type mockDispatcher struct {
	reply string
	err   error
	got   []command.Command
}

func (m *mockDispatcher) Dispatch(_ context.Context, cmd command.Command) (string, error) {
	m.got = append(m.got, cmd)
	return m.reply, m.err
}

type mockEventLog struct {
	resp       []models.Event
	err        error
	lastFilter service.LogFilter
}

func (m *mockEventLog) List(_ context.Context, f service.LogFilter) ([]models.Event, error) {
	m.lastFilter = f
	return m.resp, m.err
}

type sentMessage struct {
	to, body string
}

type mockSender struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (m *mockSender) Send(_ context.Context, to, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMessage{to, body})
	return m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	return newTestRouterWithSender(s, &mockSender{})
}

func newTestRouterWithSender(s *service.Service, sender *mockSender) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewHandler(s, sender, nil).InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

func withAuth(req *http.Request) *http.Request {
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	return req
}
