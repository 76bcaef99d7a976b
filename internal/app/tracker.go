package app

import (
	"sync"
	"sync/atomic"

	"github.com/okian/statscout/pkg/metrics"
)

// Tracker accounts for submissions across every mounted handle.
type Tracker struct {
	inFlight  atomic.Int64
	total     atomic.Int64
	succeeded atomic.Int64
	rejected  atomic.Int64

	mu       sync.Mutex
	failures map[string]int64
	pending  map[string]struct{}
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		failures: make(map[string]int64),
		pending:  make(map[string]struct{}),
	}
}

// acquire marks key as having a pending submission. It fails when one is
// already pending.
func (t *Tracker) acquire(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, busy := t.pending[key]; busy {
		return false
	}
	t.pending[key] = struct{}{}
	return true
}

func (t *Tracker) release(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pending, key)
}

// Pending reports whether key has a submission outstanding.
func (t *Tracker) Pending(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, busy := t.pending[key]
	return busy
}

// begin marks a submission as outstanding. The returned func must be called
// exactly once with the submission's outcome ("" for success).
func (t *Tracker) begin() func(outcome string) {
	t.total.Add(1)
	metrics.UpdateSubmissionsInFlight(int(t.inFlight.Add(1)))

	var once sync.Once
	return func(outcome string) {
		once.Do(func() {
			metrics.UpdateSubmissionsInFlight(int(t.inFlight.Add(-1)))
			if outcome == "" {
				t.succeeded.Add(1)
				return
			}
			t.mu.Lock()
			t.failures[outcome]++
			t.mu.Unlock()
		})
	}
}

func (t *Tracker) reject() {
	t.rejected.Add(1)
	metrics.RecordSubmissionRejected()
}

// InFlight returns the number of outstanding submissions.
func (t *Tracker) InFlight() int {
	return int(t.inFlight.Load())
}

// Failures returns a copy of the failure counts by kind.
func (t *Tracker) Failures() map[string]int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]int64, len(t.failures))
	for k, v := range t.failures {
		out[k] = v
	}
	return out
}

// GetStats returns tracker statistics for monitoring.
func (t *Tracker) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"inFlight":  t.InFlight(),
		"total":     t.total.Load(),
		"succeeded": t.succeeded.Load(),
		"rejected":  t.rejected.Load(),
		"failures":  t.Failures(),
	}
}
