package service

import (
	"context"
	"fmt"
	"time"

	"greenhouse_control/internal/logger"
	"greenhouse_control/internal/models"
	"greenhouse_control/internal/repository"
)

// ----------- Simulation constants -----------
const (
	AmbientC             = 30.0 // greenhouse air without cooling, °C
	AmbientHumidity      = 65.0 // %
	BaselineSoilMoisture = 50.0 // %

	DriftCPerMin        = 0.5 // °C per minute toward ambient
	CoolerCPerMin       = 1.5 // °C per minute while the cooler runs
	CoolerHumidPerMin   = 2.0 // % per minute added by evaporative cooling
	HumidityDriftPerMin = 1.0 // % per minute toward ambient humidity
	SoilDryPerMin       = 0.2 // % per minute lost to evaporation
	WaterWetPerMin      = 4.0 // % per minute while the water pump runs
	FertilizerWetPerMin = 1.0 // % per minute while the fertilizer pump runs

	// The automatic cooler loop switches on above AutoCoolerOnC and off below
	// AutoCoolerOffC while no manual override is set.
	AutoCoolerOnC  = 34.0
	AutoCoolerOffC = 31.0
)

// SimulatorService stands in for the field controllers during development:
// it evolves sensor/data from the current device states and runs the
// automatic cooler loop against status/mode_manual/cooler.
type SimulatorService struct {
	store   repository.StateStore
	devices Devices
	sensors Sensors
	log     *logger.Logger

	last time.Time
}

func NewSimulatorService(store repository.StateStore, devices Devices, sensors Sensors, log *logger.Logger) *SimulatorService {
	if log == nil {
		log = logger.NewNop()
	}
	return &SimulatorService{store: store, devices: devices, sensors: sensors, log: log}
}

// Run steps the simulation at the given interval until ctx is canceled.
func (s *SimulatorService) Run(ctx context.Context, tick time.Duration) {
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if err := s.Step(ctx, now); err != nil {
				s.log.Warnw("simulator_step_failed", "err", err)
			}
		}
	}
}

// Step advances the simulation to now.
func (s *SimulatorService) Step(ctx context.Context, now time.Time) error {
	snap, err := s.sensors.Snapshot(ctx)
	if err != nil {
		return err
	}
	if snap == nil {
		s.last = now
		return s.sensors.Ingest(ctx, baselineSnapshot())
	}

	elapsed := now.Sub(s.last).Minutes()
	if s.last.IsZero() || elapsed <= 0 {
		s.last = now
		return nil
	}
	s.last = now

	var doc statusDocument
	if _, err := s.store.Get(ctx, "status", &doc); err != nil {
		return fmt.Errorf("read device status: %w", err)
	}
	on := func(d models.Device) bool { return doc.Devices[string(d)] }

	next := evolve(fill(*snap), elapsed, on(models.DeviceWater), on(models.DeviceFertilizer), on(models.DeviceCooler))
	if err := s.sensors.Ingest(ctx, next); err != nil {
		return err
	}

	if doc.ModeManual[string(models.DeviceCooler)] {
		return nil
	}
	return s.autoCooler(ctx, *next.Temperature, on(models.DeviceCooler))
}

// autoCooler applies the threshold policy with hysteresis.
func (s *SimulatorService) autoCooler(ctx context.Context, tempC float64, coolerOn bool) error {
	switch {
	case !coolerOn && tempC > AutoCoolerOnC:
		s.log.Infow("auto_cooler_on", "temperature", tempC)
		return s.devices.SetPower(ctx, models.DeviceCooler, true, models.SourceAuto)
	case coolerOn && tempC < AutoCoolerOffC:
		s.log.Infow("auto_cooler_off", "temperature", tempC)
		return s.devices.SetPower(ctx, models.DeviceCooler, false, models.SourceAuto)
	}
	return nil
}

func baselineSnapshot() models.SensorSnapshot {
	return fill(models.SensorSnapshot{})
}

// fill replaces missing readings with baseline values.
func fill(snap models.SensorSnapshot) models.SensorSnapshot {
	if snap.Temperature == nil {
		v := AmbientC
		snap.Temperature = &v
	}
	if snap.Humidity == nil {
		v := AmbientHumidity
		snap.Humidity = &v
	}
	if snap.SoilMoisture == nil {
		v := BaselineSoilMoisture
		snap.SoilMoisture = &v
	}
	return snap
}

// evolve returns the snapshot after elapsed minutes. snap must be filled.
func evolve(snap models.SensorSnapshot, elapsed float64, water, fertilizer, cooler bool) models.SensorSnapshot {
	temp := driftToward(*snap.Temperature, AmbientC, DriftCPerMin*elapsed)
	humidity := driftToward(*snap.Humidity, AmbientHumidity, HumidityDriftPerMin*elapsed)
	soil := *snap.SoilMoisture - SoilDryPerMin*elapsed

	if cooler {
		temp -= CoolerCPerMin * elapsed
		humidity += CoolerHumidPerMin * elapsed
	}
	if water {
		soil += WaterWetPerMin * elapsed
	}
	if fertilizer {
		soil += FertilizerWetPerMin * elapsed
	}

	humidity = clamp(humidity, 0, 100)
	soil = clamp(soil, 0, 100)
	return models.SensorSnapshot{Temperature: &temp, Humidity: &humidity, SoilMoisture: &soil}
}

// driftToward moves v toward target by at most step.
func driftToward(v, target, step float64) float64 {
	switch {
	case v > target:
		return maxFloat(v-step, target)
	case v < target:
		return minFloat(v+step, target)
	}
	return v
}

// helpers
func clamp(v, lo, hi float64) float64 {
	return maxFloat(lo, minFloat(v, hi))
}

func maxFloat(a, b float64) float64 {
	if a >= b {
		return a
	}
	return b
}

func minFloat(a, b float64) float64 {
	if a <= b {
		return a
	}
	return b
}
