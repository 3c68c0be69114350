package ksync

import (
	"sylvos/defs"
	"sylvos/deadlock"
	"sylvos/sched"
)

/// Table is the per-process append-mostly set of mutex/semaphore/condvar
/// slots, indexed by small integers with empty slots reused, paired
/// with the banker's-algorithm resource matrices that back deadlock
/// detection for it.
//
// Division of labor: mutexes gate contention with the literal
// deadlocked-flag/-0xDEAD short-circuit on SpinMutex/BlockingMutex;
// semaphores have no such flag, so their sole deadlock gate is the
// banker's check below, replacing a bare id-range check with the
// genuine safety algorithm. Every acquisition of either kind still
// updates Matrices, so the resource accounting itself stays exact
// regardless of which gate fired.
type Table struct {
	mu *sched.Cell

	Matrices *deadlock.Matrices

	mutexes    []Mutex
	mutexResID []int

	semaphores []*Semaphore
	semResID   []int

	condvars []*Condvar
}

/// NewTable builds an empty table with its own resource matrices, locked
/// by a sched.Cell bound to sch: every slot-table critical section below
/// releases mu before delegating to a primitive's own contention path, so
/// holding it across a suspend would be a bug the Cell catches.
func NewTable(sch *sched.Scheduler) *Table {
	return &Table{mu: sched.NewCell(sch), Matrices: deadlock.NewMatrices()}
}

/// AddThread registers tid as a zero row in the resource matrices, to
/// be called once when a task first touches synchronization.
func (t *Table) AddThread(tid int) { t.Matrices.AddThread(tid) }

/// RemoveThread drops tid's row, releasing anything it still held.
func (t *Table) RemoveThread(tid int) { t.Matrices.RemoveThread(tid) }

func firstEmpty[T any](slots []T, isEmpty func(T) bool) (int, bool) {
	for i, s := range slots {
		if isEmpty(s) {
			return i, true
		}
	}
	return 0, false
}

/// CreateMutex installs a new spin or blocking mutex (per the blocking
/// flag) at the lowest unused slot and returns its id.
func (t *Table) CreateMutex(blocking bool) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	var m Mutex
	if blocking {
		m = &BlockingMutex{}
	} else {
		m = &SpinMutex{}
	}
	resID := t.Matrices.AddResourceType(1)

	if i, ok := firstEmpty(t.mutexes, func(m Mutex) bool { return m == nil }); ok {
		t.mutexes[i] = m
		t.mutexResID[i] = resID
		return i
	}
	t.mutexes = append(t.mutexes, m)
	t.mutexResID = append(t.mutexResID, resID)
	return len(t.mutexes) - 1
}

/// MutexLock delegates to the mutex's own contention mechanics, then
/// records the acquisition in the resource matrices on success.
func (t *Table) MutexLock(rt *Runtime, tid, id int) defs.Err_t {
	t.mu.Lock()
	m, resID := t.mutexes[id], t.mutexResID[id]
	t.mu.Unlock()

	err := m.Lock(rt, tid)
	if err != 0 {
		return err
	}
	t.Matrices.Acquire(tid, resID)
	return 0
}

/// MutexUnlock releases the matrices row before delegating to the
/// mutex's own unlock/wake mechanics.
func (t *Table) MutexUnlock(rt *Runtime, tid, id int) {
	t.mu.Lock()
	m, resID := t.mutexes[id], t.mutexResID[id]
	t.mu.Unlock()

	t.Matrices.Release(tid, resID)
	m.Unlock(rt, tid)
}

/// CreateSemaphore installs a new counting semaphore with resCount
/// initial instances at the lowest unused slot.
func (t *Table) CreateSemaphore(resCount int) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := NewSemaphore(resCount)
	resID := t.Matrices.AddResourceType(resCount)

	if i, ok := firstEmpty(t.semaphores, func(s *Semaphore) bool { return s == nil }); ok {
		t.semaphores[i] = s
		t.semResID[i] = resID
		return i
	}
	t.semaphores = append(t.semaphores, s)
	t.semResID = append(t.semResID, resID)
	return len(t.semaphores) - 1
}

/// SemaphoreUp releases a matrices instance and wakes a waiter if any.
func (t *Table) SemaphoreUp(rt *Runtime, tid, id int) {
	t.mu.Lock()
	s, resID := t.semaphores[id], t.semResID[id]
	t.mu.Unlock()

	t.Matrices.Release(tid, resID)
	s.Up(rt)
}

/// SemaphoreDown runs the banker's safety check when detection is
/// enabled — the sole deadlock gate for semaphores, since they carry no
/// deadlocked-flag mechanism of their own — then delegates to the
/// semaphore's own count/waiter mechanics.
func (t *Table) SemaphoreDown(rt *Runtime, tid, id int) defs.Err_t {
	t.mu.Lock()
	s, resID := t.semaphores[id], t.semResID[id]
	t.mu.Unlock()

	if rt.Sched.Current().EnableDeadlockDetect {
		unsafe := t.Matrices.RequestWouldDeadlock(tid, resID)
		t.Matrices.CancelRequest(tid, resID)
		if unsafe {
			rt.Sched.Current().Deadlocked = true
			return defs.EDEADLK
		}
	}
	s.Down(rt)
	t.Matrices.Acquire(tid, resID)
	rt.Sched.Current().Deadlocked = false
	return 0
}

/// CreateCondvar installs a new condition variable at the lowest unused
/// slot.
func (t *Table) CreateCondvar() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	c := NewCondvar()
	if i, ok := firstEmpty(t.condvars, func(c *Condvar) bool { return c == nil }); ok {
		t.condvars[i] = c
		return i
	}
	t.condvars = append(t.condvars, c)
	return len(t.condvars) - 1
}

/// CondvarSignal wakes one waiter on condvar id, if any.
func (t *Table) CondvarSignal(rt *Runtime, id int) {
	t.mu.Lock()
	c := t.condvars[id]
	t.mu.Unlock()
	c.Signal(rt)
}

/// CondvarWait releases mutex mid, blocks on condvar cid, and reacquires
/// mid upon waking.
func (t *Table) CondvarWait(rt *Runtime, tid, cid, mid int) {
	t.mu.Lock()
	c := t.condvars[cid]
	m := t.mutexes[mid]
	t.mu.Unlock()
	c.Wait(rt, tid, m)
}

