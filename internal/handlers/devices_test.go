package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"greenhouse_control/internal/models"
	"greenhouse_control/internal/service"
)

func TestDeviceHandlers_ListAndSet(t *testing.T) {
	auto := true
	devices := &mockDevices{statuses: []models.DeviceStatus{
		{Device: models.DeviceWater, On: true},
		{Device: models.DeviceFertilizer},
		{Device: models.DeviceCooler, AutoMode: &auto},
	}}
	s := &service.Service{Authorization: &mockAuth{parseID: 7}, Devices: devices}
	r := newTestRouter(s)

	// requires auth
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/devices", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without auth, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, withAuth(httptest.NewRequest(http.MethodGet, "/api/v1/devices", nil)))
	if w.Code != http.StatusOK {
		t.Fatalf("list status=%d, body=%s", w.Code, w.Body.String())
	}
	var st []models.DeviceStatus
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(st) != 3 || !st[0].On || st[2].AutoMode == nil || !*st[2].AutoMode {
		t.Fatalf("unexpected statuses: %+v", st)
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/devices/Cooler", bytes.NewBufferString(`{"on":true}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, withAuth(req))
	if w.Code != http.StatusOK {
		t.Fatalf("set status=%d, body=%s", w.Code, w.Body.String())
	}
	if len(devices.calls) != 1 || devices.calls[0] != (powerCall{models.DeviceCooler, true, models.SourceAPI}) {
		t.Fatalf("unexpected SetPower calls: %+v", devices.calls)
	}

	// explicit false is a valid body
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/devices/water", bytes.NewBufferString(`{"on":false}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, withAuth(req))
	if w.Code != http.StatusOK || devices.calls[1].on {
		t.Fatalf("set false status=%d calls=%+v", w.Code, devices.calls)
	}
}

func TestDeviceHandlers_SetValidation(t *testing.T) {
	devices := &mockDevices{}
	s := &service.Service{Authorization: &mockAuth{}, Devices: devices}
	r := newTestRouter(s)

	cases := []struct {
		name string
		path string
		body string
	}{
		{"unknown device", "/api/v1/devices/heater", `{"on":true}`},
		{"missing on", "/api/v1/devices/water", `{}`},
		{"wrong type", "/api/v1/devices/water", `{"on":"yes"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, tc.path, bytes.NewBufferString(tc.body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, withAuth(req))
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d (%s)", w.Code, w.Body.String())
			}
		})
	}
	if len(devices.calls) != 0 {
		t.Fatalf("invalid requests must not switch devices: %+v", devices.calls)
	}
}

func TestDeviceHandlers_StoreFailure(t *testing.T) {
	devices := &mockDevices{setErr: errors.New("store down"), statusesErr: errors.New("store down")}
	s := &service.Service{Authorization: &mockAuth{}, Devices: devices}
	r := newTestRouter(s)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/devices/water", bytes.NewBufferString(`{"on":true}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, withAuth(req))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, withAuth(httptest.NewRequest(http.MethodGet, "/api/v1/devices", nil)))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestScheduleHandlers(t *testing.T) {
	fireAt := time.Date(2025, 3, 1, 6, 5, 0, 0, time.UTC)
	s := &service.Service{
		Authorization: &mockAuth{},
		Schedules: &mockSchedules{set: models.ScheduleSet{
			Watering: &models.Schedule{Enabled: true, Times: []string{"06:00", "18:00"}, Duration: 10},
		}},
		Scheduler: &mockScheduler{pending: []models.PendingShutoff{
			{ID: 1, Device: models.DeviceWater, FireAt: fireAt, Duration: 5 * time.Minute},
		}},
	}
	r := newTestRouter(s)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, withAuth(httptest.NewRequest(http.MethodGet, "/api/v1/schedules", nil)))
	if w.Code != http.StatusOK {
		t.Fatalf("schedules status=%d", w.Code)
	}
	var set models.ScheduleSet
	_ = json.Unmarshal(w.Body.Bytes(), &set)
	if set.Watering == nil || set.Watering.Duration != 10 || set.Fertilizing != nil {
		t.Fatalf("unexpected schedules: %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, withAuth(httptest.NewRequest(http.MethodGet, "/api/v1/shutoffs", nil)))
	if w.Code != http.StatusOK {
		t.Fatalf("shutoffs status=%d", w.Code)
	}
	var out struct {
		Count    int                     `json:"count"`
		Shutoffs []models.PendingShutoff `json:"shutoffs"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if out.Count != 1 || out.Shutoffs[0].Device != models.DeviceWater || !out.Shutoffs[0].FireAt.Equal(fireAt) {
		t.Fatalf("unexpected shutoffs: %+v", out)
	}
}

func TestHealth(t *testing.T) {
	r := newTestRouter(&service.Service{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK || w.Body.String() != `{"status":"ok"}` {
		t.Fatalf("health: %d %s", w.Code, w.Body.String())
	}
}
