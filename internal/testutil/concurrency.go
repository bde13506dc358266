// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/vk/gridscript/internal/registry"
)

// ExecutionRecord holds the start and end times of a single sleep call.
type ExecutionRecord struct {
	Start time.Time
	End   time.Time
}

// MockSleeperModule is a shared, self-contained module for concurrency tests.
// Its `sleep(id)` function records when each call ran.
type MockSleeperModule struct {
	ExecutionTimes map[string]*ExecutionRecord
	mu             sync.Mutex
	sleepDuration  time.Duration
	completionChan chan<- string
}

// NewMockSleeperModule creates a new sleeper module for testing.
func NewMockSleeperModule(completionChan chan<- string, sleep time.Duration) *MockSleeperModule {
	return &MockSleeperModule{
		ExecutionTimes: make(map[string]*ExecutionRecord),
		sleepDuration:  sleep,
		completionChan: completionChan,
	}
}

// Register registers the "sleep" function.
func (m *MockSleeperModule) Register(r *registry.Registry) {
	r.RegisterFn("sleep", func(ctx context.Context, id string) error {
		startTime := time.Now()
		select {
		case <-time.After(m.sleepDuration):
		case <-ctx.Done():
			return ctx.Err()
		}
		endTime := time.Now()

		m.mu.Lock()
		m.ExecutionTimes[id] = &ExecutionRecord{Start: startTime, End: endTime}
		m.mu.Unlock()

		if m.completionChan != nil {
			m.completionChan <- id
		}
		return nil
	})
}

// Record returns the execution record of id.
func (m *MockSleeperModule) Record(id string) (*ExecutionRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.ExecutionTimes[id]
	return r, ok
}
