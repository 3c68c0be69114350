// Package ksync implements the in-kernel synchronization primitives —
// spin mutex, blocking mutex, counting semaphore, condition variable —
// and the per-process append-mostly tables that hold them. Each
// process's slots are Go slices of an interface type rather than a
// fixed array, and semaphore contention is never rejected by a bare
// id-range check — see deadlock.Matrices for the real banker's check
// that guards it.
package ksync

import (
	"sync"

	"sylvos/defs"
	"sylvos/sched"
)

/// Mutex is satisfied by both SpinMutex and BlockingMutex.
type Mutex interface {
	Lock(rt *Runtime, tid int) defs.Err_t
	Unlock(rt *Runtime, tid int)
}

/// SpinMutex polls via repeated suspend/retry, never blocking.
type SpinMutex struct {
	mu     sync.Mutex
	locked bool
}

/// Lock spins until the mutex is free. Before yielding it sets the
/// caller's deadlocked flag; if the caller has deadlock detection
/// enabled it does not yield at all and instead returns -0xDEAD
/// immediately.
func (m *SpinMutex) Lock(rt *Runtime, tid int) defs.Err_t {
	for {
		m.mu.Lock()
		if !m.locked {
			m.locked = true
			m.mu.Unlock()
			return 0
		}
		m.mu.Unlock()

		cur := rt.Sched.Current()
		cur.Deadlocked = true
		if cur.EnableDeadlockDetect {
			return defs.EDEADLK
		}
		rt.Sched.SuspendCurrentAndRunNext()
	}
}

/// Unlock clears the lock and the caller's deadlocked flag.
func (m *SpinMutex) Unlock(rt *Runtime, tid int) {
	m.mu.Lock()
	m.locked = false
	m.mu.Unlock()
	rt.Sched.Current().Deadlocked = false
}

/// BlockingMutex queues waiters and transfers ownership directly to the
/// head of its wait queue on unlock, rather than clearing locked and
/// letting contenders race.
type BlockingMutex struct {
	mu      sync.Mutex
	locked  bool
	waiters []*sched.Task_t
}

/// Lock blocks if the mutex is held. Same -0xDEAD short-circuit as
/// SpinMutex when detection is enabled at contention time.
func (m *BlockingMutex) Lock(rt *Runtime, tid int) defs.Err_t {
	m.mu.Lock()
	if !m.locked {
		m.locked = true
		m.mu.Unlock()
		return 0
	}

	cur := rt.Sched.Current()
	cur.Deadlocked = true
	if cur.EnableDeadlockDetect {
		m.mu.Unlock()
		return defs.EDEADLK
	}
	m.waiters = append(m.waiters, cur)
	m.mu.Unlock()
	rt.Sched.BlockCurrentAndRunNext()
	return 0
}

/// Unlock asserts the mutex is held; if waiters are queued it pops the
/// head and wakes it with ownership transferred (locked stays true),
/// otherwise it clears locked.
func (m *BlockingMutex) Unlock(rt *Runtime, tid int) {
	m.mu.Lock()
	if !m.locked {
		panic("unlock of unlocked BlockingMutex")
	}
	rt.Sched.Current().Deadlocked = false
	var waking *sched.Task_t
	if len(m.waiters) > 0 {
		waking = m.waiters[0]
		m.waiters = m.waiters[1:]
	} else {
		m.locked = false
	}
	m.mu.Unlock()
	if waking != nil {
		rt.Sched.WakeupTask(waking)
	}
}
