package service

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"greenhouse_control/internal/models"

	"github.com/jonboulle/clockwork"
)

// memStore is an in-memory StateStore with the same path semantics as the
// SQLite store: values nest by path segment and Set replaces a subtree.
type memStore struct {
	mu      sync.Mutex
	root    map[string]any
	sets    []string
	failSet error
	failGet error
}

func newMemStore() *memStore {
	return &memStore{root: map[string]any{}}
}

func (m *memStore) Set(_ context.Context, path string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSet != nil {
		return m.failSet
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	segs := strings.Split(strings.Trim(path, "/"), "/")
	node := m.root
	for _, s := range segs[:len(segs)-1] {
		next, ok := node[s].(map[string]any)
		if !ok {
			next = map[string]any{}
			node[s] = next
		}
		node = next
	}
	node[segs[len(segs)-1]] = v
	m.sets = append(m.sets, path)
	return nil
}

func (m *memStore) Get(_ context.Context, path string, dst any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet != nil {
		return false, m.failGet
	}
	var cur any = m.root
	for _, s := range strings.Split(strings.Trim(path, "/"), "/") {
		node, ok := cur.(map[string]any)
		if !ok {
			return false, nil
		}
		if cur, ok = node[s]; !ok {
			return false, nil
		}
	}
	raw, err := json.Marshal(cur)
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(raw, dst)
}

// bool reads a boolean leaf; missing reads as false.
func (m *memStore) bool(path string) bool {
	var v bool
	_, _ = m.Get(context.Background(), path, &v)
	return v
}

func (m *memStore) writes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.sets)
}

type fakeEventRepo struct {
	mu       sync.Mutex
	appended []models.Event
	appendFn func(models.Event) error

	gotFrom   time.Time
	gotTo     time.Time
	gotType   string
	gotDevice string
	events    []models.Event
	err       error
	calls     int
}

func (f *fakeEventRepo) Append(_ context.Context, e models.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendFn != nil {
		if err := f.appendFn(e); err != nil {
			return err
		}
	}
	f.appended = append(f.appended, e)
	return nil
}

func (f *fakeEventRepo) List(_ context.Context, from, to time.Time, typ, device string) ([]models.Event, error) {
	f.calls++
	f.gotFrom, f.gotTo, f.gotType, f.gotDevice = from, to, typ, device
	return f.events, f.err
}

func (f *fakeEventRepo) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.appended))
	for _, e := range f.appended {
		out = append(out, e.Type)
	}
	return out
}

type publishedStatus struct {
	device models.Device
	on     bool
}

type fakeNotifier struct {
	mu        sync.Mutex
	published []publishedStatus
	err       error
}

func (n *fakeNotifier) PublishDeviceStatus(device models.Device, on bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.published = append(n.published, publishedStatus{device, on})
	return n.err
}

// testClock is the part of clockwork's fake clock the tests drive.
type testClock interface {
	Clock
	Advance(d time.Duration)
}

func newFakeClock(now time.Time) testClock {
	return clockwork.NewFakeClockAt(now)
}

// waitFor polls cond; clockwork runs AfterFunc callbacks on their own goroutine.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

type fakeConversation struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeConversation) Complete(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

var errStoreDown = errors.New("store unreachable")

func floatPtr(v float64) *float64 { return &v }
