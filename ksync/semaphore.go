package ksync

import (
	"sync"

	"sylvos/sched"
)

/// Semaphore is a counting semaphore: Up increments and wakes one waiter
/// if the result is ≤ 0; Down decrements and blocks if the result is < 0.
/// Invariant maintained: len(waiters) == max(0, -count).
type Semaphore struct {
	mu      sync.Mutex
	count   int
	waiters []*sched.Task_t
}

/// NewSemaphore creates a semaphore with resCount initial instances.
func NewSemaphore(resCount int) *Semaphore {
	return &Semaphore{count: resCount}
}

/// Up increments the count; if the result is ≤ 0 it wakes the head
/// waiter.
func (s *Semaphore) Up(rt *Runtime) {
	s.mu.Lock()
	s.count++
	var waking *sched.Task_t
	if s.count <= 0 && len(s.waiters) > 0 {
		waking = s.waiters[0]
		s.waiters = s.waiters[1:]
	}
	s.mu.Unlock()
	if waking != nil {
		rt.Sched.WakeupTask(waking)
	}
}

/// Down decrements the count; if the result is < 0 the caller blocks.
func (s *Semaphore) Down(rt *Runtime) {
	s.mu.Lock()
	s.count--
	block := s.count < 0
	if block {
		s.waiters = append(s.waiters, rt.Sched.Current())
	}
	s.mu.Unlock()
	if block {
		rt.Sched.BlockCurrentAndRunNext()
	}
}
