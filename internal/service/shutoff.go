package service

import (
	"slices"
	"sync"
	"time"

	"greenhouse_control/internal/models"

	"github.com/jonboulle/clockwork"
)

// ShutoffTimers owns every pending "device off" created by a schedule
// firing. Entries live in memory only: a restart forgets them. An entry
// fires regardless of manual toggles made in the meantime.
type ShutoffTimers struct {
	clock Clock
	fire  func(models.Device)

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]*shutoffEntry
}

type shutoffEntry struct {
	info  models.PendingShutoff
	timer clockwork.Timer
}

func NewShutoffTimers(clock Clock, fire func(models.Device)) *ShutoffTimers {
	if clock == nil {
		clock = SystemClock()
	}
	return &ShutoffTimers{
		clock:   clock,
		fire:    fire,
		pending: make(map[uint64]*shutoffEntry),
	}
}

// Schedule registers a shutoff of device after d.
func (t *ShutoffTimers) Schedule(device models.Device, d time.Duration) models.PendingShutoff {
	t.mu.Lock()
	t.nextID++
	id := t.nextID
	entry := &shutoffEntry{info: models.PendingShutoff{
		ID:       id,
		Device:   device,
		FireAt:   t.clock.Now().Add(d),
		Duration: d,
	}}
	t.pending[id] = entry
	t.mu.Unlock()

	timer := t.clock.AfterFunc(d, func() { t.expire(id) })

	t.mu.Lock()
	if e, ok := t.pending[id]; ok {
		e.timer = timer
	}
	t.mu.Unlock()

	return entry.info
}

// Cancel drops a pending shutoff. It reports false if id already fired or
// never existed.
func (t *ShutoffTimers) Cancel(id uint64) bool {
	t.mu.Lock()
	entry, ok := t.pending[id]
	delete(t.pending, id)
	t.mu.Unlock()

	if ok && entry.timer != nil {
		entry.timer.Stop()
	}
	return ok
}

// Pending lists outstanding shutoffs ordered by fire time.
func (t *ShutoffTimers) Pending() []models.PendingShutoff {
	t.mu.Lock()
	out := make([]models.PendingShutoff, 0, len(t.pending))
	for _, e := range t.pending {
		out = append(out, e.info)
	}
	t.mu.Unlock()

	slices.SortFunc(out, func(a, b models.PendingShutoff) int {
		if c := a.FireAt.Compare(b.FireAt); c != 0 {
			return c
		}
		return int(a.ID) - int(b.ID)
	})
	return out
}

func (t *ShutoffTimers) expire(id uint64) {
	t.mu.Lock()
	entry, ok := t.pending[id]
	delete(t.pending, id)
	t.mu.Unlock()

	if ok && t.fire != nil {
		t.fire(entry.info.Device)
	}
}
