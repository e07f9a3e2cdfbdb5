package service

import (
	"context"
	"math"
	"testing"
	"time"

	"greenhouse_control/internal/models"
)

type simFixture struct {
	store *memStore
	svc   *SimulatorService
}

func newSimFixture() *simFixture {
	store := newMemStore()
	devices := NewDeviceService(store, nil, nil, nil)
	return &simFixture{
		store: store,
		svc:   NewSimulatorService(store, devices, NewSensorService(store), nil),
	}
}

func (f *simFixture) snapshot(t *testing.T) models.SensorSnapshot {
	t.Helper()
	var snap models.SensorSnapshot
	if ok, err := f.store.Get(context.Background(), models.PathSensorData, &snap); !ok || err != nil {
		t.Fatalf("no sensor data: ok=%v err=%v", ok, err)
	}
	return snap
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestDriftToward(t *testing.T) {
	cases := []struct {
		v, target, step, want float64
	}{
		{40, 30, 2, 38},
		{31, 30, 2, 30},
		{20, 30, 5, 25},
		{29, 30, 5, 30},
		{30, 30, 5, 30},
	}
	for _, tc := range cases {
		if got := driftToward(tc.v, tc.target, tc.step); !approx(got, tc.want) {
			t.Fatalf("driftToward(%v,%v,%v)=%v, want %v", tc.v, tc.target, tc.step, got, tc.want)
		}
	}
}

func TestEvolve_DevicesAffectReadings(t *testing.T) {
	start := fill(models.SensorSnapshot{SoilMoisture: floatPtr(99)})

	idle := evolve(start, 10, false, false, false)
	if !approx(*idle.Temperature, AmbientC) || !approx(*idle.SoilMoisture, 99-SoilDryPerMin*10) {
		t.Fatalf("unexpected idle readings: t=%v soil=%v", *idle.Temperature, *idle.SoilMoisture)
	}

	watered := evolve(start, 10, true, false, false)
	if *watered.SoilMoisture != 100 {
		t.Fatalf("soil moisture should clamp at 100, got %v", *watered.SoilMoisture)
	}

	cooled := evolve(start, 2, false, false, true)
	if !approx(*cooled.Temperature, AmbientC-CoolerCPerMin*2) {
		t.Fatalf("cooler should lower temperature, got %v", *cooled.Temperature)
	}
	if *cooled.Humidity <= AmbientHumidity {
		t.Fatalf("cooler should raise humidity, got %v", *cooled.Humidity)
	}
}

func TestStep_SeedsBaselineThenEvolves(t *testing.T) {
	f := newSimFixture()
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := f.svc.Step(ctx, now); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if snap := f.snapshot(t); !approx(*snap.Temperature, AmbientC) || !approx(*snap.SoilMoisture, BaselineSoilMoisture) {
		t.Fatalf("unexpected baseline: %+v", snap)
	}

	_ = f.store.Set(ctx, "status/devices/water", true)
	if err := f.svc.Step(ctx, now.Add(5*time.Minute)); err != nil {
		t.Fatalf("Step: %v", err)
	}
	want := BaselineSoilMoisture + (WaterWetPerMin-SoilDryPerMin)*5
	if snap := f.snapshot(t); !approx(*snap.SoilMoisture, want) {
		t.Fatalf("soil=%v, want %v", *snap.SoilMoisture, want)
	}
}

func TestStep_AutoCoolerFollowsThresholds(t *testing.T) {
	f := newSimFixture()
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC)

	_ = f.store.Set(ctx, models.PathSensorData, models.SensorSnapshot{Temperature: floatPtr(40)})
	f.svc.last = now

	if err := f.svc.Step(ctx, now.Add(time.Minute)); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if !f.store.bool("status/devices/cooler") {
		t.Fatalf("cooler should switch on above %v°C", AutoCoolerOnC)
	}

	_ = f.store.Set(ctx, models.PathSensorData, models.SensorSnapshot{Temperature: floatPtr(30)})
	if err := f.svc.Step(ctx, now.Add(2*time.Minute)); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if f.store.bool("status/devices/cooler") {
		t.Fatalf("cooler should switch off below %v°C", AutoCoolerOffC)
	}
}

func TestStep_ManualOverrideSuppressesAutoCooler(t *testing.T) {
	f := newSimFixture()
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC)

	_ = f.store.Set(ctx, models.PathSensorData, models.SensorSnapshot{Temperature: floatPtr(40)})
	_ = f.store.Set(ctx, "status/mode_manual/cooler", true)
	f.svc.last = now

	if err := f.svc.Step(ctx, now.Add(time.Minute)); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if f.store.bool("status/devices/cooler") {
		t.Fatalf("manual override must keep the cooler untouched")
	}
}

func TestSimulatorRun_StopsOnCancel(t *testing.T) {
	f := newSimFixture()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.svc.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after cancel")
	}
	f.snapshot(t)
}
