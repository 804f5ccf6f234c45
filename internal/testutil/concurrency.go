package testutil

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vk/wrapgrid/internal/core"
	"github.com/vk/wrapgrid/internal/plugin"
)

// ExecutionRecord holds the start and end times of one call.
type ExecutionRecord struct {
	Start time.Time
	End   time.Time
}

// SleeperModule is a shared, self-contained plugin for concurrency tests.
// Its "sleep" method records the execution window of every call and tracks
// how many calls overlapped.
type SleeperModule struct {
	URI            string
	ExecutionTimes map[string]*ExecutionRecord

	mu            sync.Mutex
	sleepDuration time.Duration
	inFlight      atomic.Int64
	peak          atomic.Int64
}

// NewSleeperModule creates a sleeper plugin published at u.
func NewSleeperModule(u string, sleep time.Duration) *SleeperModule {
	return &SleeperModule{
		URI:            u,
		ExecutionTimes: make(map[string]*ExecutionRecord),
		sleepDuration:  sleep,
	}
}

type sleeperInput struct {
	ID string `wrap:"id"`
}

// Register registers the "sleep" method.
func (m *SleeperModule) Register(r *plugin.Registry) {
	r.Register(&plugin.Package{URI: m.URI, Methods: map[string]*plugin.Method{
		"sleep": {
			NewInput: func() any { return new(sleeperInput) },
			Fn: func(ctx context.Context, _ core.Invoker, input *sleeperInput) (string, error) {
				n := m.inFlight.Add(1)
				defer m.inFlight.Add(-1)
				for {
					peak := m.peak.Load()
					if n <= peak || m.peak.CompareAndSwap(peak, n) {
						break
					}
				}

				start := time.Now()
				select {
				case <-time.After(m.sleepDuration):
				case <-ctx.Done():
					return "", ctx.Err()
				}
				end := time.Now()

				m.mu.Lock()
				m.ExecutionTimes[input.ID] = &ExecutionRecord{Start: start, End: end}
				m.mu.Unlock()
				return input.ID, nil
			},
		},
	}})
}

// Peak returns the largest number of calls that ran at the same time.
func (m *SleeperModule) Peak() int64 {
	return m.peak.Load()
}
