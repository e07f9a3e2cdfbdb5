package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"greenhouse_control/internal/models"
	"greenhouse_control/internal/repository"
)

type EventLogService struct {
	eventRepo repository.EventRepo
}

func NewEventLogService(eventRepo repository.EventRepo) *EventLogService {
	return &EventLogService{eventRepo: eventRepo}
}

var (
	ErrInvalidTimeRange = errors.New("invalid time range: from must be <= to")
	ErrInvalidEventType = errors.New("unknown event type")
)

var eventTypes = map[string]struct{}{
	models.EventDeviceOn:      {},
	models.EventDeviceOff:     {},
	models.EventAutoMode:      {},
	models.EventScheduleSaved: {},
}

func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

// normalizeFilter converts bounds to UTC and canonicalizes type and device.
func normalizeFilter(f LogFilter) (LogFilter, error) {
	out := LogFilter{
		From: normalizeToUTC(f.From),
		To:   normalizeToUTC(f.To),
		Type: strings.ToUpper(strings.TrimSpace(f.Type)),
	}
	if !out.From.IsZero() && !out.To.IsZero() && out.From.After(out.To) {
		return LogFilter{}, ErrInvalidTimeRange
	}
	if out.Type != "" {
		if _, ok := eventTypes[out.Type]; !ok {
			return LogFilter{}, ErrInvalidEventType
		}
	}
	if strings.TrimSpace(f.Device) != "" {
		d, err := models.ParseDevice(f.Device)
		if err != nil {
			return LogFilter{}, err
		}
		out.Device = string(d)
	}
	return out, nil
}

func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.Event, error) {
	nf, err := normalizeFilter(f)
	if err != nil {
		return nil, err
	}
	return s.eventRepo.List(ctx, nf.From, nf.To, nf.Type, nf.Device)
}
