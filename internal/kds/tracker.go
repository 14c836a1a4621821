package kds

import (
	"context"
	"sync"
	"time"

	"github.com/appetiteclub/apt"
)

// ReadyMemoryStore persists the ready memory across restarts.
type ReadyMemoryStore interface {
	Load(ctx context.Context) (ReadyMemory, error)
	Save(ctx context.Context, memory ReadyMemory) error
}

// Notifier delivers table-ready signals downstream (sound, toast, POS).
type Notifier interface {
	NotifyTableReady(ctx context.Context, ready TableReady) error
}

// ReadinessTracker keeps the per-table ready memory and turns readiness edges
// into notifications.
type ReadinessTracker struct {
	mu        sync.Mutex
	memory    ReadyMemory
	revision  uint64
	loaded    bool
	store     ReadyMemoryStore
	notifiers []Notifier
	logger    apt.Logger
}

func NewReadinessTracker(store ReadyMemoryStore, logger apt.Logger, notifiers ...Notifier) *ReadinessTracker {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &ReadinessTracker{
		memory:    make(ReadyMemory),
		store:     store,
		notifiers: notifiers,
		logger:    logger,
	}
}

// AddNotifier registers an extra notifier after construction.
func (t *ReadinessTracker) AddNotifier(n Notifier) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.notifiers = append(t.notifiers, n)
}

// Observe evaluates statuses against the memory and notifies tables that just turned ready.
func (t *ReadinessTracker) Observe(ctx context.Context, statuses []TableStatus, now time.Time) []TableReady {
	return t.observe(ctx, 0, statuses, now)
}

// ObserveRevision is Observe for statuses derived from view revision rev.
// Revisions at or below the last observed one are stale and ignored, so the
// memory always follows the newest view.
func (t *ReadinessTracker) ObserveRevision(ctx context.Context, rev uint64, statuses []TableStatus, now time.Time) []TableReady {
	return t.observe(ctx, rev, statuses, now)
}

// Revision returns the last view revision applied to the memory.
func (t *ReadinessTracker) Revision() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.revision
}

func (t *ReadinessTracker) observe(ctx context.Context, rev uint64, statuses []TableStatus, now time.Time) []TableReady {
	t.mu.Lock()
	if rev > 0 {
		if last := t.revision; rev <= last {
			t.mu.Unlock()
			t.logger.Debug("ignoring stale table statuses", "revision", rev, "last", last)
			return nil
		}
		t.revision = rev
	}
	if !t.loaded && t.store != nil {
		memory, err := t.store.Load(ctx)
		if err != nil {
			t.logger.Error("cannot load ready memory, starting empty", "error", err)
		} else if memory != nil {
			t.memory = memory
		}
	}
	t.loaded = true

	next, fired := DetectReady(t.memory, statuses, now)
	changed := !sameMemory(t.memory, next)
	t.memory = next

	if changed && t.store != nil {
		if err := t.store.Save(ctx, next); err != nil {
			t.logger.Error("cannot persist ready memory", "error", err)
		}
	}
	notifiers := append([]Notifier(nil), t.notifiers...)
	t.mu.Unlock()

	for _, ready := range fired {
		t.logger.Info("table ready", "table_id", ready.TableID, "table_name", ready.TableName)
		for _, n := range notifiers {
			if err := n.NotifyTableReady(ctx, ready); err != nil {
				t.logger.Error("cannot deliver table ready notification", "table_id", ready.TableID, "error", err)
			}
		}
	}
	return fired
}

// Memory returns a copy of the current ready memory.
func (t *ReadinessTracker) Memory() ReadyMemory {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(ReadyMemory, len(t.memory))
	for k, v := range t.memory {
		out[k] = v
	}
	return out
}

func sameMemory(a, b ReadyMemory) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
}
