package service

import (
	"context"
	"time"

	"greenhouse_control/internal/command"
	"greenhouse_control/internal/logger"
	"greenhouse_control/internal/models"
	"greenhouse_control/internal/repository"
)

type Authorization interface {
	SignUp(ctx context.Context, username, password string) (int, error)
	GenerateToken(ctx context.Context, username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Devices applies on/off and auto-mode writes and reads them back.
type Devices interface {
	SetPower(ctx context.Context, device models.Device, on bool, source string) error
	SetAutoMode(ctx context.Context, device models.Device, on bool, source string) error
	Statuses(ctx context.Context) ([]models.DeviceStatus, error)
}

// Schedules overwrites and reads schedule records.
type Schedules interface {
	Save(ctx context.Context, kind models.ScheduleKind, times []string, duration int) (models.Schedule, error)
	All(ctx context.Context) (models.ScheduleSet, error)
}

// Sensors reads (and, for the MQTT ingest path, writes) the sensor snapshot.
type Sensors interface {
	Snapshot(ctx context.Context) (*models.SensorSnapshot, error)
	Ingest(ctx context.Context, snap models.SensorSnapshot) error
}

// Dispatcher executes one parsed command and returns the reply text.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd command.Command) (string, error)
}

// Scheduler is the once-a-minute schedule matcher.
type Scheduler interface {
	Tick(ctx context.Context, now time.Time) error
	Start(ctx context.Context) error
	Stop()
	Pending() []models.PendingShutoff
}

// EventLog exposes the append-only audit log with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.Event, error)
}

// Conversation is the remote text-completion fallback.
type Conversation interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// DeviceNotifier mirrors device status changes to field controllers.
type DeviceNotifier interface {
	PublishDeviceStatus(device models.Device, on bool) error
}

type Service struct {
	Devices
	Schedules
	Sensors
	Dispatcher
	Scheduler
	EventLog
	Authorization
}

// Deps are the collaborators that do not live in the repository layer.
type Deps struct {
	Fallback   Conversation   // nil: unrecognized text gets the generic failure reply
	Notifier   DeviceNotifier // nil: no mirroring
	Clock      Clock          // nil: system clock
	Location   *time.Location // nil: time.Local
	SigningKey string
	TokenTTL   time.Duration
	Log        *logger.Logger
}

func NewService(repos *repository.Repository, deps Deps) *Service {
	log := deps.Log
	if log == nil {
		log = logger.NewNop()
	}

	devices := NewDeviceService(repos.Store, repos.EventRepo, deps.Notifier, log)
	schedules := NewScheduleService(repos.Store, repos.EventRepo, log)
	sensors := NewSensorService(repos.Store)

	return &Service{
		Devices:       devices,
		Schedules:     schedules,
		Sensors:       sensors,
		Dispatcher:    NewDispatchService(devices, schedules, sensors, deps.Fallback, log),
		Scheduler:     NewScheduleRunner(repos.Store, devices, deps.Clock, deps.Location, log),
		EventLog:      NewEventLogService(repos.EventRepo),
		Authorization: NewAuthService(repos.Auth, deps.SigningKey, deps.TokenTTL),
	}
}
