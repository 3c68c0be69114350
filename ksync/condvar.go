package ksync

import (
	"sync"

	"sylvos/sched"
)

/// Condvar holds a FIFO queue of blocked waiters. No spurious wakeups
/// are ever emitted: a waiter only returns from Wait after a matching
/// Signal popped it.
type Condvar struct {
	mu      sync.Mutex
	waiters []*sched.Task_t
}

/// NewCondvar creates an empty condition variable.
func NewCondvar() *Condvar { return &Condvar{} }

/// Wait releases m, blocks the caller, and upon being woken reacquires m
/// before returning.
func (c *Condvar) Wait(rt *Runtime, tid int, m Mutex) {
	c.mu.Lock()
	c.waiters = append(c.waiters, rt.Sched.Current())
	c.mu.Unlock()

	m.Unlock(rt, tid)
	rt.Sched.BlockCurrentAndRunNext()
	m.Lock(rt, tid)
}

/// Signal wakes one waiter if present; a no-op otherwise.
func (c *Condvar) Signal(rt *Runtime) {
	c.mu.Lock()
	var waking *sched.Task_t
	if len(c.waiters) > 0 {
		waking = c.waiters[0]
		c.waiters = c.waiters[1:]
	}
	c.mu.Unlock()
	if waking != nil {
		rt.Sched.WakeupTask(waking)
	}
}
