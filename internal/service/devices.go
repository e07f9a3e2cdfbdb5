package service

import (
	"context"
	"errors"
	"fmt"

	"greenhouse_control/internal/logger"
	"greenhouse_control/internal/models"
	"greenhouse_control/internal/repository"
)

var errAutoModeUnsupported = errors.New("device has no automatic control loop")

// DeviceService writes device status and manual-override flags.
type DeviceService struct {
	store    repository.StateStore
	events   repository.EventRepo
	notifier DeviceNotifier
	log      *logger.Logger
}

func NewDeviceService(store repository.StateStore, events repository.EventRepo, notifier DeviceNotifier, log *logger.Logger) *DeviceService {
	if log == nil {
		log = logger.NewNop()
	}
	return &DeviceService{store: store, events: events, notifier: notifier, log: log}
}

// SetPower writes status/devices/<device>. Writing the current value again
// is not an error; every call writes.
func (s *DeviceService) SetPower(ctx context.Context, device models.Device, on bool, source string) error {
	if err := s.store.Set(ctx, models.DevicePath(device), on); err != nil {
		return fmt.Errorf("set %s status: %w", device, err)
	}

	typ, word := models.EventDeviceOff, "off"
	if on {
		typ, word = models.EventDeviceOn, "on"
	}
	s.record(ctx, models.Event{
		Type:        typ,
		Device:      string(device),
		Description: fmt.Sprintf("%s switched %s", device, word),
		Metadata:    map[string]any{"source": source},
	})

	if s.notifier != nil {
		if err := s.notifier.PublishDeviceStatus(device, on); err != nil {
			s.log.Warnw("device_status_publish_failed", "device", device, "on", on, "err", err)
		}
	}
	return nil
}

// SetAutoMode stores the inverse of on as the manual-override flag read by
// the external temperature loop.
func (s *DeviceService) SetAutoMode(ctx context.Context, device models.Device, on bool, source string) error {
	if !device.SupportsAutoMode() {
		return fmt.Errorf("%s: %w", device, errAutoModeUnsupported)
	}
	if err := s.store.Set(ctx, models.ManualModePath(device), !on); err != nil {
		return fmt.Errorf("set %s manual mode: %w", device, err)
	}

	word := "disabled"
	if on {
		word = "enabled"
	}
	s.record(ctx, models.Event{
		Type:        models.EventAutoMode,
		Device:      string(device),
		Description: fmt.Sprintf("%s automatic mode %s", device, word),
		Metadata:    map[string]any{"source": source, "manual_override": !on},
	})
	return nil
}

// statusDocument mirrors the "status" subtree.
type statusDocument struct {
	Devices    map[string]bool `json:"devices"`
	ModeManual map[string]bool `json:"mode_manual"`
}

// Statuses reads the whole status subtree once. Missing devices read as off;
// a missing override flag reads as automatic mode.
func (s *DeviceService) Statuses(ctx context.Context) ([]models.DeviceStatus, error) {
	var doc statusDocument
	if _, err := s.store.Get(ctx, "status", &doc); err != nil {
		return nil, fmt.Errorf("read device status: %w", err)
	}

	out := make([]models.DeviceStatus, 0, len(models.Devices()))
	for _, d := range models.Devices() {
		st := models.DeviceStatus{Device: d, On: doc.Devices[string(d)]}
		if d.SupportsAutoMode() {
			auto := !doc.ModeManual[string(d)]
			st.AutoMode = &auto
		}
		out = append(out, st)
	}
	return out, nil
}

// record appends an audit event; the store write already succeeded, so a
// failure here is only logged.
func (s *DeviceService) record(ctx context.Context, e models.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Append(ctx, e); err != nil {
		s.log.Warnw("event_append_failed", "type", e.Type, "device", e.Device, "err", err)
	}
}
