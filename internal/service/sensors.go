package service

import (
	"context"
	"fmt"

	"greenhouse_control/internal/models"
	"greenhouse_control/internal/repository"
)

type SensorService struct {
	store repository.StateStore
}

func NewSensorService(store repository.StateStore) *SensorService {
	return &SensorService{store: store}
}

// Snapshot returns nil when no sensor data has been written yet.
func (s *SensorService) Snapshot(ctx context.Context) (*models.SensorSnapshot, error) {
	var snap models.SensorSnapshot
	ok, err := s.store.Get(ctx, models.PathSensorData, &snap)
	if err != nil {
		return nil, fmt.Errorf("read sensor data: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

// Ingest replaces sensor/data with a fresh reading.
func (s *SensorService) Ingest(ctx context.Context, snap models.SensorSnapshot) error {
	if err := s.store.Set(ctx, models.PathSensorData, snap); err != nil {
		return fmt.Errorf("write sensor data: %w", err)
	}
	return nil
}
