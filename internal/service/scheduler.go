package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"greenhouse_control/internal/logger"
	"greenhouse_control/internal/models"
	"greenhouse_control/internal/repository"

	"github.com/robfig/cron/v3"
)

const (
	// tickSpec fires at second zero of every minute.
	tickSpec = "* * * * *"

	tickTimeout    = 50 * time.Second
	shutoffTimeout = 30 * time.Second

	clockLayout = "15:04"
)

// ScheduleRunner matches the current minute against the stored schedules
// and actuates devices. A minute that is not observed by a tick is lost;
// there is no catch-up.
type ScheduleRunner struct {
	store    repository.StateStore
	devices  Devices
	shutoffs *ShutoffTimers
	clock    Clock
	loc      *time.Location
	log      *logger.Logger

	cron *cron.Cron
}

func NewScheduleRunner(store repository.StateStore, devices Devices, clock Clock, loc *time.Location, log *logger.Logger) *ScheduleRunner {
	if clock == nil {
		clock = SystemClock()
	}
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = logger.NewNop()
	}
	r := &ScheduleRunner{
		store:   store,
		devices: devices,
		clock:   clock,
		loc:     loc,
		log:     log,
	}
	r.shutoffs = NewShutoffTimers(clock, r.shutoff)
	return r
}

// Tick runs one match pass for now. Each kind is handled independently; the
// returned error joins every kind that failed.
func (r *ScheduleRunner) Tick(ctx context.Context, now time.Time) error {
	current := now.In(r.loc).Format(clockLayout)

	var set models.ScheduleSet
	if _, err := r.store.Get(ctx, models.PathSchedules, &set); err != nil {
		return fmt.Errorf("read schedules: %w", err)
	}

	var errs []error
	for _, kind := range models.ScheduleKinds() {
		sch := set.Get(kind)
		if sch == nil || !sch.Matches(current) {
			continue
		}
		if err := r.actuate(ctx, kind, *sch, current); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *ScheduleRunner) actuate(ctx context.Context, kind models.ScheduleKind, sch models.Schedule, current string) error {
	device := kind.Device()
	if err := r.devices.SetPower(ctx, device, true, models.SourceSchedule); err != nil {
		return fmt.Errorf("%s at %s: %w", kind, current, err)
	}
	p := r.shutoffs.Schedule(device, time.Duration(sch.EffectiveDuration())*time.Minute)
	r.log.Infow("schedule_fired",
		"kind", kind,
		"device", device,
		"time", current,
		"shutoff_id", p.ID,
		"shutoff_at", p.FireAt,
	)
	return nil
}

func (r *ScheduleRunner) shutoff(device models.Device) {
	ctx, cancel := context.WithTimeout(context.Background(), shutoffTimeout)
	defer cancel()
	if err := r.devices.SetPower(ctx, device, false, models.SourceShutoff); err != nil {
		r.log.Errorw("scheduled_shutoff_failed", "device", device, "err", err)
		return
	}
	r.log.Infow("scheduled_shutoff", "device", device)
}

// Pending lists shutoffs that have not fired yet.
func (r *ScheduleRunner) Pending() []models.PendingShutoff {
	return r.shutoffs.Pending()
}

// Start schedules Tick every minute until Stop or ctx is done. Ticks never
// overlap: a tick still running when the next minute starts makes that
// minute's tick skip.
func (r *ScheduleRunner) Start(ctx context.Context) error {
	cl := cronLogger{log: r.log}
	r.cron = cron.New(
		cron.WithLocation(r.loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := r.cron.AddFunc(tickSpec, func() { r.runTick(ctx) }); err != nil {
		return fmt.Errorf("register schedule tick: %w", err)
	}
	r.cron.Start()
	r.log.Infow("scheduler_started", "timezone", r.loc.String())

	go func() {
		<-ctx.Done()
		r.Stop()
	}()
	return nil
}

// Stop halts the ticker and waits for a running tick to finish. Pending
// shutoffs are left to fire.
func (r *ScheduleRunner) Stop() {
	if r.cron == nil {
		return
	}
	<-r.cron.Stop().Done()
}

func (r *ScheduleRunner) runTick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	tickCtx, cancel := context.WithTimeout(ctx, tickTimeout)
	defer cancel()
	if err := r.Tick(tickCtx, r.clock.Now()); err != nil {
		r.log.Errorw("schedule_tick_failed", "err", err)
	}
}

// cronLogger routes robfig/cron's logging onto zap.
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw("cron_"+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw("cron_"+msg, append(keysAndValues, "err", err)...)
}
