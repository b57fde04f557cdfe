package memory

import (
	"context"
	"sync"
	"time"

	"github.com/talkflow/webhookq/internal/queue"
	"github.com/talkflow/webhookq/internal/queue/store"
)

// Ensure *MemoryStore implements store.Store at compile time.
var _ store.Store = (*MemoryStore)(nil)

// MemoryStore keeps the queue in process memory. It exists for tests and
// local runs without Postgres; a mutex around every operation gives it the
// same claim exclusivity the SQL store gets from its conditional update.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*queue.Entry
	byDedup map[string]string
	order   []string
}

func New() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*queue.Entry),
		byDedup: make(map[string]string),
	}
}

func (m *MemoryStore) Insert(_ context.Context, e queue.Entry) (queue.Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e.DedupKey != nil {
		if _, dup := m.byDedup[*e.DedupKey]; dup {
			return e, false, nil
		}
		m.byDedup[*e.DedupKey] = e.ID
	}
	e.CreatedAt = time.Now().UTC()
	stored := e
	m.entries[e.ID] = &stored
	m.order = append(m.order, e.ID)
	return e, true, nil
}

func (m *MemoryStore) Claim(_ context.Context, opts queue.ClaimOptions) ([]queue.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	var out []queue.Entry
	for _, id := range m.order {
		if len(out) >= opts.Limit {
			break
		}
		e := m.entries[id]
		if e.Status != queue.StatusPending || e.Attempts >= opts.MaxAttempts {
			continue
		}
		e.Status = queue.StatusProcessing
		e.Attempts++
		started := now
		e.StartedAt = &started
		out = append(out, *e)
	}
	return out, nil
}

func (m *MemoryStore) MarkDone(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[id]; ok && e.Status == queue.StatusProcessing {
		e.Status = queue.StatusDone
		done := time.Now().UTC()
		e.CompletedAt = &done
	}
	return nil
}

func (m *MemoryStore) MarkRetry(_ context.Context, id string, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[id]; ok && e.Status == queue.StatusProcessing {
		e.Status = queue.StatusPending
		e.ErrorMessage = &errMsg
		e.StartedAt = nil
	}
	return nil
}

func (m *MemoryStore) MarkFailed(_ context.Context, id string, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[id]; ok && e.Status == queue.StatusProcessing {
		e.Status = queue.StatusFailed
		e.ErrorMessage = &errMsg
		done := time.Now().UTC()
		e.CompletedAt = &done
	}
	return nil
}

func (m *MemoryStore) Sweep(_ context.Context, olderThan time.Duration, maxAttempts int) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().UTC().Add(-olderThan)
	var requeued, failed int
	for _, e := range m.entries {
		if e.Status != queue.StatusProcessing || e.StartedAt == nil || !e.StartedAt.Before(cutoff) {
			continue
		}
		if e.Attempts < maxAttempts {
			e.Status = queue.StatusPending
			e.StartedAt = nil
			requeued++
		} else {
			e.Status = queue.StatusFailed
			msg := "claim expired: handler did not complete in time"
			e.ErrorMessage = &msg
			done := time.Now().UTC()
			e.CompletedAt = &done
			failed++
		}
	}
	return requeued, failed, nil
}

// Get returns a copy of an entry, for tests and debugging.
func (m *MemoryStore) Get(id string) (queue.Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return queue.Entry{}, false
	}
	return *e, true
}

// Snapshot returns copies of all entries in insertion order.
func (m *MemoryStore) Snapshot() []queue.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]queue.Entry, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.entries[id])
	}
	return out
}
