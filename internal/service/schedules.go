package service

import (
	"context"
	"fmt"
	"slices"

	"greenhouse_control/internal/logger"
	"greenhouse_control/internal/models"
	"greenhouse_control/internal/repository"
)

type ScheduleService struct {
	store  repository.StateStore
	events repository.EventRepo
	log    *logger.Logger
}

func NewScheduleService(store repository.StateStore, events repository.EventRepo, log *logger.Logger) *ScheduleService {
	if log == nil {
		log = logger.NewNop()
	}
	return &ScheduleService{store: store, events: events, log: log}
}

// Save overwrites schedules/<kind> in full and enables it.
func (s *ScheduleService) Save(ctx context.Context, kind models.ScheduleKind, times []string, duration int) (models.Schedule, error) {
	sch := models.Schedule{
		Enabled:  true,
		Times:    slices.Clone(times),
		Duration: duration,
	}
	if err := s.store.Set(ctx, models.SchedulePath(kind), sch); err != nil {
		return models.Schedule{}, fmt.Errorf("save %s schedule: %w", kind, err)
	}

	if s.events != nil {
		err := s.events.Append(ctx, models.Event{
			Type:        models.EventScheduleSaved,
			Description: fmt.Sprintf("%s schedule saved", kind),
			Metadata: map[string]any{
				"kind":     string(kind),
				"times":    sch.Times,
				"duration": sch.Duration,
			},
		})
		if err != nil {
			s.log.Warnw("event_append_failed", "type", models.EventScheduleSaved, "kind", kind, "err", err)
		}
	}
	return sch, nil
}

// All reads both schedules as one snapshot.
func (s *ScheduleService) All(ctx context.Context) (models.ScheduleSet, error) {
	var set models.ScheduleSet
	if _, err := s.store.Get(ctx, models.PathSchedules, &set); err != nil {
		return models.ScheduleSet{}, fmt.Errorf("read schedules: %w", err)
	}
	return set, nil
}
