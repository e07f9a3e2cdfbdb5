package service

import (
	"context"
	"errors"
	"fmt"

	"greenhouse_control/internal/command"
	"greenhouse_control/internal/fallback"
	"greenhouse_control/internal/logger"
	"greenhouse_control/internal/models"
)

var (
	// ErrUnhandledCommand means a Command variant reached the dispatcher without a case.
	ErrUnhandledCommand = errors.New("unhandled command")

	errFallbackUnavailable = errors.New("fallback service not configured")
)

// DispatchService applies at most one state mutation per command and waits
// for the store to acknowledge it before composing the reply.
type DispatchService struct {
	devices   Devices
	schedules Schedules
	sensors   Sensors
	fallback  Conversation
	composer  Composer
	log       *logger.Logger
}

func NewDispatchService(devices Devices, schedules Schedules, sensors Sensors, fb Conversation, log *logger.Logger) *DispatchService {
	if log == nil {
		log = logger.NewNop()
	}
	return &DispatchService{
		devices:   devices,
		schedules: schedules,
		sensors:   sensors,
		fallback:  fb,
		log:       log,
	}
}

// Dispatch returns the reply for cmd. Errors are reserved for failures the
// user cannot be told about meaningfully (store unreachable, unknown variant).
func (s *DispatchService) Dispatch(ctx context.Context, cmd command.Command) (string, error) {
	var out Outcome

	switch c := cmd.(type) {
	case command.Greeting, command.MenuRequest:
		// static text

	case command.DeviceToggle:
		if err := s.devices.SetPower(ctx, c.Device, c.On, models.SourceChat); err != nil {
			return "", err
		}

	case command.AutoModeToggle:
		if err := s.devices.SetAutoMode(ctx, c.Device, c.On, models.SourceChat); err != nil {
			return "", err
		}

	case command.ScheduleDefinition:
		if _, err := s.schedules.Save(ctx, c.Kind, c.Times, c.Duration); err != nil {
			return "", err
		}

	case command.SensorQuery:
		snap, err := s.sensors.Snapshot(ctx)
		if err != nil {
			return "", err
		}
		out.Sensor = snap

	case command.Unrecognized:
		if !c.FormatError {
			out.Completion, out.FallbackErr = s.ask(ctx, c.RawText)
		}

	default:
		return "", fmt.Errorf("%w: %T", ErrUnhandledCommand, cmd)
	}

	return s.composer.Compose(cmd, out), nil
}

// ask forwards text to the fallback service. Failures are logged and handed
// to the composer, never returned to the caller.
func (s *DispatchService) ask(ctx context.Context, text string) (string, error) {
	if s.fallback == nil {
		return "", errFallbackUnavailable
	}
	completion, err := s.fallback.Complete(ctx, text)
	switch {
	case errors.Is(err, fallback.ErrQuotaExceeded):
		s.log.Warnw("fallback_quota_exceeded", "err", err)
	case err != nil:
		s.log.Errorw("fallback_request_failed", "err", err)
	default:
		s.log.Debugw("fallback_reply", "chars", len(completion))
	}
	return completion, err
}
