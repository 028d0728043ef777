// Package scheduler abstracts delayed one-shot tasks so the deletion grace
// period is testable without real time delays.
package scheduler

import (
	"sync"
	"time"
)

// Handle controls a scheduled task.
type Handle interface {
	// Cancel stops the task if it has not fired yet and reports whether it
	// did. The engine exposes cancellation for a future reopen path; today
	// nothing calls it outside tests.
	Cancel() bool
}

// Scheduler runs a function once after a delay.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Handle
}

type timerScheduler struct{}

// NewTimerScheduler returns the wall-clock implementation.
func NewTimerScheduler() Scheduler {
	return timerScheduler{}
}

type timerHandle struct {
	timer *time.Timer
}

func (h timerHandle) Cancel() bool {
	return h.timer.Stop()
}

func (timerScheduler) AfterFunc(d time.Duration, fn func()) Handle {
	return timerHandle{timer: time.AfterFunc(d, fn)}
}

// Manual is a test scheduler: tasks queue until fired explicitly.
type Manual struct {
	mu    sync.Mutex
	tasks []*manualTask
}

type manualTask struct {
	owner     *Manual
	fn        func()
	cancelled bool
	fired     bool
}

// NewManual returns an empty manual scheduler.
func NewManual() *Manual {
	return &Manual{}
}

func (m *Manual) AfterFunc(d time.Duration, fn func()) Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	task := &manualTask{owner: m, fn: fn}
	m.tasks = append(m.tasks, task)
	return task
}

func (t *manualTask) Cancel() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	if t.fired || t.cancelled {
		return false
	}
	t.cancelled = true
	return true
}

// Pending reports queued, unfired, uncancelled tasks.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, task := range m.tasks {
		if !task.fired && !task.cancelled {
			count++
		}
	}
	return count
}

// Fire runs every pending task and reports how many ran.
func (m *Manual) Fire() int {
	m.mu.Lock()
	var ready []*manualTask
	for _, task := range m.tasks {
		if !task.fired && !task.cancelled {
			task.fired = true
			ready = append(ready, task)
		}
	}
	m.mu.Unlock()

	for _, task := range ready {
		task.fn()
	}
	return len(ready)
}
