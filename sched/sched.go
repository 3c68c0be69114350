package sched

import "sync"

/// Switcher performs the actual machine-level context switch between two
/// tasks' saved contexts and kernel stacks. It is supplied by the
/// boot/trap trampoline; the scheduler calls it but never interprets
/// Context's contents itself.
type Switcher interface {
	Switch(from, to *Task_t)
}

/// Scheduler owns the single global FIFO ready queue and the pointer to
/// the task presently Running.
type Scheduler struct {
	mu      sync.Mutex
	ready   []*Task_t
	current *Task_t
	sw      Switcher
	idle    *Task_t
}

/// NewScheduler builds a scheduler that delegates machine context
/// switches to sw. idle is the scheduler-loop task switched into when
/// the ready queue is empty.
func NewScheduler(sw Switcher, idle *Task_t) *Scheduler {
	return &Scheduler{sw: sw, idle: idle}
}

/// Current returns the task presently Running.
func (s *Scheduler) Current() *Task_t {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

/// Bootstrap installs t as the current task directly, without going
/// through the ready queue. If t is already queued (SpawnInit enqueues
/// the init task), it is taken off the queue, so a Running task is never
/// also Ready. Called once at kernel init, before the first trap hands
/// control to the scheduler's normal suspend/block/wake path.
func (s *Scheduler) Bootstrap(t *Task_t) {
	s.mu.Lock()
	for i, r := range s.ready {
		if r == t {
			s.ready = append(s.ready[:i], s.ready[i+1:]...)
			break
		}
	}
	t.Status = Running
	s.current = t
	s.mu.Unlock()
}

/// Enqueue appends t to the tail of the ready queue, marking it Ready.
/// Used directly by fork and spawn to admit a brand-new task.
func (s *Scheduler) Enqueue(t *Task_t) {
	s.mu.Lock()
	t.Status = Ready
	s.ready = append(s.ready, t)
	s.mu.Unlock()
}

// popReady removes and returns the head of the ready queue, or nil if
// empty.
func (s *Scheduler) popReady() *Task_t {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.ready) == 0 {
		return nil
	}
	t := s.ready[0]
	s.ready = s.ready[1:]
	return t
}

// runNext pops the next ready task (or falls back to idle) and switches
// the machine context into it, recording it as current.
func (s *Scheduler) runNext(from *Task_t) {
	next := s.popReady()
	if next == nil {
		next = s.idle
	}
	s.mu.Lock()
	next.Status = Running
	s.current = next
	s.mu.Unlock()
	s.sw.Switch(from, next)
}

/// SuspendCurrentAndRunNext marks the current task Ready, pushes it to
/// the ready-queue tail, and context-switches to the scheduler loop.
func (s *Scheduler) SuspendCurrentAndRunNext() {
	cur := s.Current()
	assertNoBorrow(cur)
	s.mu.Lock()
	cur.Status = Ready
	s.ready = append(s.ready, cur)
	s.mu.Unlock()
	s.runNext(cur)
}

/// BlockCurrentAndRunNext marks the current task Blocked, does not
/// re-enqueue it, and context-switches to the scheduler loop. The caller
/// is responsible for having already recorded cur on whatever waiter
/// queue will eventually wake it.
func (s *Scheduler) BlockCurrentAndRunNext() {
	cur := s.Current()
	assertNoBorrow(cur)
	s.mu.Lock()
	cur.Status = Blocked
	s.mu.Unlock()
	s.runNext(cur)
}

// assertNoBorrow panics if cur still holds a Cell locked, catching a
// suspend/block reached from inside a Cell critical section.
func assertNoBorrow(cur *Task_t) {
	if cur != nil && cur.BorrowDepth() != 0 {
		panic("sched: suspended while holding a Cell borrow")
	}
}

/// WakeupTask marks t Ready and pushes it to the ready-queue tail. It
/// may be called from any task context, including from within a
/// synchronization primitive's unlock/up/signal path. Ordering
/// guarantee: a WakeupTask followed by a later
/// Suspend by the waker does not invert t's wake order relative to other
/// tasks already queued between the two calls, since both operations
/// only ever append to the tail of the same FIFO queue.
func (s *Scheduler) WakeupTask(t *Task_t) {
	s.mu.Lock()
	t.Status = Ready
	s.ready = append(s.ready, t)
	s.mu.Unlock()
}

/// ExitCurrentAndRunNext marks the current task Zombie, records its exit
/// code, reparents its children to init, frees its user address space
/// (the kernel stack is kept until the parent reaps it via waitpid), and
/// context-switches to the scheduler loop.
func (s *Scheduler) ExitCurrentAndRunNext(init *Task_t, code int) {
	cur := s.Current()
	cur.mu.Lock()
	cur.Status = Zombie
	cur.ExitCode = code
	for _, c := range cur.Children {
		c.Parent = init
		init.Children = append(init.Children, c)
	}
	cur.Children = nil
	cur.AS.Free()
	cur.mu.Unlock()
	s.runNext(cur)
}

/// Cell wraps a value whose lock must never be held across a suspend:
/// Lock marks the scheduler's current task as holding one more borrow,
/// Unlock releases it, and SuspendCurrentAndRunNext/BlockCurrentAndRunNext
/// panic if the current task's borrow count is still nonzero when they
/// run. Meant for any singleton resource a handler locks only for the
/// duration of a few non-blocking statements, e.g. ksync.Table's slot
/// bookkeeping.
type Cell struct {
	mu  sync.Mutex
	sch *Scheduler
}

/// NewCell binds a Cell to the scheduler whose current-task borrow
/// counter it manipulates.
func NewCell(sch *Scheduler) *Cell { return &Cell{sch: sch} }

/// Lock acquires the cell and marks the current task as holding a
/// borrow, so that a subsequent accidental Suspend/Block call inside the
/// critical section is caught by a panic rather than silently corrupting
/// scheduler state.
func (c *Cell) Lock() {
	c.mu.Lock()
	if c.sch != nil {
		if cur := c.sch.Current(); cur != nil {
			cur.incBorrow()
		}
	}
}

/// Unlock clears the current task's borrow mark and releases the cell.
func (c *Cell) Unlock() {
	if c.sch != nil {
		if cur := c.sch.Current(); cur != nil {
			cur.decBorrow()
		}
	}
	c.mu.Unlock()
}
