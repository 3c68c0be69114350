// Package sched implements the task control block, the single global
// FIFO ready queue, and the suspend/block/wake/exit primitives.
// Per-task accounting uses time.Now(), not a simulated tick.
package sched

import (
	"sync"
	"sync/atomic"
	"time"

	"sylvos/defs"
	"sylvos/fd"
	"sylvos/vm"
)

/// Context is the saved register/context blob swapped in and out on a
/// context switch. Its contents are architecture-specific and owned by
/// the boot/trap trampoline; the scheduler only stores and hands back
/// the pointer.
type Context struct {
	Regs [32]uint64
	PC   uint64
}

/// KernelStack is the task's private kernel stack, sized as a flat byte
/// slice the trampoline indexes into.
type KernelStack []byte

const defaultKstackSize = 4096 * 4

/// Task_t is the task control block. One Task_t models one schedulable
/// unit; in this core a task and the process it belongs to coincide
/// one-to-one (no intra-process threads). The per-process
/// synchronization tables are kept by proc.Manager, keyed by pid.
type Task_t struct {
	mu sync.Mutex

	Status TaskStatus
	Ctx    *Context
	Kstack KernelStack

	AS  *vm.Vm_t
	Fds *fd.Table

	Parent   *Task_t
	Children []*Task_t

	Pid      defs.Pid_t
	Tid      defs.Tid_t
	ExitCode int

	SyscallTimes [defs.MaxSyscallNum]uint32
	FirstRunMs   int64
	firstRunSet  bool

	Priority int

	EnableDeadlockDetect bool
	Deadlocked           bool

	// Typed as interface{} because sched cannot import ksync (ksync imports
	// sched for *Task_t waiter queues). Nothing in this module sets them:
	// each process's ksync.Table and its deadlock.Matrices are held in
	// proc.Manager instead.
	SyncTables   interface{}
	DeadlockMats interface{}

	// borrowDepth counts the Cells this task currently holds locked. A
	// nonzero depth at a suspend/block point means a Cell critical section
	// reached a suspension point, which Cell.Lock/Unlock are not meant to
	// tolerate.
	borrowDepth int32
}

func (t *Task_t) incBorrow() { atomic.AddInt32(&t.borrowDepth, 1) }
func (t *Task_t) decBorrow() { atomic.AddInt32(&t.borrowDepth, -1) }

// BorrowDepth reports how many Cells t currently holds locked.
func (t *Task_t) BorrowDepth() int32 { return atomic.LoadInt32(&t.borrowDepth) }

/// TaskStatus is re-exported from defs so callers writing sched code
/// don't need a second import for the same four-value enum.
type TaskStatus = defs.TaskStatus

const (
	Ready   = defs.Ready
	Running = defs.Running
	Blocked = defs.Blocked
	Zombie  = defs.Zombie
)

/// NewTask allocates a fresh TCB in the Ready state with its own kernel
/// stack.
func NewTask(pid defs.Pid_t, tid defs.Tid_t, as *vm.Vm_t) *Task_t {
	return &Task_t{
		Status: Ready,
		Ctx:    &Context{},
		Kstack: make(KernelStack, defaultKstackSize),
		AS:     as,
		Fds:    &fd.Table{},
		Pid:    pid,
		Tid:    tid,
	}
}

/// IncSyscall bumps the per-task counter for syscall number n.
func (t *Task_t) IncSyscall(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n >= 0 && n < len(t.SyscallTimes) {
		t.SyscallTimes[n]++
	}
	if !t.firstRunSet {
		t.FirstRunMs = nowMs()
		t.firstRunSet = true
	}
}

/// RunningMs returns elapsed milliseconds since this task's first
/// recorded syscall, for sys_task_info's time_ms_since_first_run field.
func (t *Task_t) RunningMs() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.firstRunSet {
		return 0
	}
	return nowMs() - t.FirstRunMs
}

func nowMs() int64 { return time.Now().UnixNano() / 1e6 }

/// TaskPid and SyscallCounts satisfy kprof.TaskCounters, letting the
/// profiling device build a profile.Profile straight from the live
/// task list without sched importing kprof.
func (t *Task_t) TaskPid() int64 { return int64(t.Pid) }

func (t *Task_t) SyscallCounts() [defs.MaxSyscallNum]uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.SyscallTimes
}

/// Procinfo is a read-only debug snapshot of a task's identity and its
/// stored scheduling priority, separate from any syscall's actual return
/// value.
type Procinfo struct {
	Pid      defs.Pid_t
	Priority int
}

/// Procinfo snapshots t's pid and its stored (FIFO-ignored) priority.
func (t *Task_t) Procinfo() Procinfo {
	return Procinfo{Pid: t.Pid, Priority: t.Priority}
}
