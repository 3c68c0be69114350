package proc

import (
	"sync"

	"sylvos/defs"
	"sylvos/ksync"
	"sylvos/mem"
	"sylvos/sched"
	"sylvos/vm"
)

/// Manager owns process-lifecycle bookkeeping that doesn't fit on a bare
/// Task_t: the pid allocator, the pid→task lookup used by waitpid, and
/// each task's synchronization table, keyed by pid since tasks and
/// processes coincide one-to-one in this core.
type Manager struct {
	mu      sync.Mutex
	sched   *sched.Scheduler
	alloc   *mem.Allocator
	loader  Loader
	nextPid defs.Pid_t

	byPid map[defs.Pid_t]*sched.Task_t
	syncs map[defs.Pid_t]*ksync.Table

	init *sched.Task_t
}

/// NewManager builds a process manager driving sch and allocating frames
/// from alloc, resolving exec/spawn images through ld.
func NewManager(sch *sched.Scheduler, alloc *mem.Allocator, ld Loader) *Manager {
	return &Manager{
		sched:  sch,
		alloc:  alloc,
		loader: ld,
		byPid:  make(map[defs.Pid_t]*sched.Task_t),
		syncs:  make(map[defs.Pid_t]*ksync.Table),
	}
}

func (m *Manager) allocPid() defs.Pid_t {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextPid++
	return m.nextPid
}

/// SyncTable returns the synchronization-primitive table owned by t's
/// process, creating it on first use.
func (m *Manager) SyncTable(t *sched.Task_t) *ksync.Table {
	m.mu.Lock()
	defer m.mu.Unlock()
	tb, ok := m.syncs[t.Pid]
	if !ok {
		tb = ksync.NewTable(m.sched)
		m.syncs[t.Pid] = tb
	}
	return tb
}

/// SpawnInit creates the first task in the system from img and marks it
/// as the init task children get reparented to on exit.
func (m *Manager) SpawnInit(img *vm.Image) (*sched.Task_t, defs.Err_t) {
	as, entry, sp, err := vm.FromELF(m.alloc, img)
	if err != 0 {
		return nil, err
	}
	pid := m.allocPid()
	t := sched.NewTask(pid, defs.Tid_t(pid), as)
	t.Ctx.PC = entry
	t.Ctx.Regs[2] = sp // sp conventionally lives in register index 2 (x2/sp)

	m.mu.Lock()
	m.byPid[pid] = t
	m.init = t
	m.mu.Unlock()

	m.SyncTable(t).AddThread(int(t.Tid))
	m.sched.Enqueue(t)
	return t, 0
}

/// Fork duplicates cur's TCB: deep-clones the address space, gives the
/// child a fresh pid and a copy of the fd table whose handles are
/// reference-shared via Reopen, and adds the child to both the ready
/// queue and cur's children list. Returns the child's pid to the parent;
/// the child's saved a0 register is set to 0, so the child sees fork
/// return 0 when it first runs.
func (m *Manager) Fork(cur *sched.Task_t) (defs.Pid_t, defs.Err_t) {
	childAS, err := cur.AS.CloneDeep()
	if err != 0 {
		return 0, err
	}
	childFds, err := cur.Fds.CloneShared()
	if err != 0 {
		return 0, err
	}

	pid := m.allocPid()
	child := sched.NewTask(pid, defs.Tid_t(pid), childAS)
	child.Fds = childFds
	child.Ctx.PC = cur.Ctx.PC
	child.Ctx.Regs = cur.Ctx.Regs
	child.Ctx.Regs[10] = 0 // a0 (x10): fork's return value in the child
	child.Priority = cur.Priority
	child.Parent = cur

	m.mu.Lock()
	m.byPid[pid] = child
	m.mu.Unlock()
	cur.Children = append(cur.Children, child)

	m.SyncTable(child).AddThread(int(child.Tid))
	m.sched.Enqueue(child)
	return pid, 0
}

/// Exec replaces cur's address space with a fresh one built from the
/// named image, resetting the user stack and trap context while keeping
/// pid, parent, and fd table. Fails if path is not a registered
/// application.
func (m *Manager) Exec(cur *sched.Task_t, path string) defs.Err_t {
	img, ok := m.loader.Lookup(path)
	if !ok {
		return defs.ENOENT
	}
	newAS, entry, sp, err := vm.FromELF(m.alloc, img)
	if err != 0 {
		return err
	}
	cur.AS.Free()
	cur.AS = newAS
	cur.Ctx.PC = entry
	cur.Ctx.Regs = [32]uint64{}
	cur.Ctx.Regs[2] = sp
	return 0
}

/// Spawn creates a new task from the named image and attaches it to cur
/// as a child, without an intermediate fork. Fails only if the image is
/// not found.
func (m *Manager) Spawn(cur *sched.Task_t, path string) (defs.Pid_t, defs.Err_t) {
	img, ok := m.loader.Lookup(path)
	if !ok {
		return 0, defs.ENOENT
	}
	as, entry, sp, err := vm.FromELF(m.alloc, img)
	if err != 0 {
		return 0, err
	}
	pid := m.allocPid()
	child := sched.NewTask(pid, defs.Tid_t(pid), as)
	child.Ctx.PC = entry
	child.Ctx.Regs[2] = sp
	child.Parent = cur

	m.mu.Lock()
	m.byPid[pid] = child
	m.mu.Unlock()
	cur.Children = append(cur.Children, child)

	m.SyncTable(child).AddThread(int(child.Tid))
	m.sched.Enqueue(child)
	return pid, 0
}

/// Waitpid returns -1 (ECHILD) if no child matches
/// pid (-1 matches any), -2 (EAGAIN) if at least one matches but none is
/// Zombie, otherwise removes one matching Zombie child, writes its exit
/// code into code, and returns its pid.
func (m *Manager) Waitpid(cur *sched.Task_t, pid defs.Pid_t, code *int) (defs.Pid_t, defs.Err_t) {
	found := false
	for i, c := range cur.Children {
		if pid != -1 && c.Pid != pid {
			continue
		}
		found = true
		if c.Status == sched.Zombie {
			*code = c.ExitCode
			cur.Children = append(cur.Children[:i], cur.Children[i+1:]...)
			m.mu.Lock()
			delete(m.byPid, c.Pid)
			delete(m.syncs, c.Pid)
			m.mu.Unlock()
			return c.Pid, 0
		}
	}
	if !found {
		return 0, defs.ECHILD
	}
	return 0, defs.EAGAIN
}

/// SetPriority stores p on cur's TCB; fails if p ≤ 1. The scheduler
/// remains FIFO and ignores priority.
func (m *Manager) SetPriority(cur *sched.Task_t, p int) defs.Err_t {
	if p <= 1 {
		return defs.EINVAL
	}
	cur.Priority = p
	return 0
}

/// Init returns the init task children are reparented to on exit.
func (m *Manager) Init() *sched.Task_t { return m.init }

/// AllTasks returns every live task known to the manager, in no
/// particular order. Used by the profiling device to build a snapshot
/// covering every process's syscall counters.
func (m *Manager) AllTasks() []*sched.Task_t {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*sched.Task_t, 0, len(m.byPid))
	for _, t := range m.byPid {
		out = append(out, t)
	}
	return out
}

/// Exit runs the scheduler's exit path and additionally tears down the
/// process's synchronization-table row in the deadlock matrices, the
/// bookkeeping needed whenever a thread goes away.
func (m *Manager) Exit(cur *sched.Task_t, code int) {
	m.SyncTable(cur).RemoveThread(int(cur.Tid))
	cur.Fds.CloseAll()
	m.sched.ExitCurrentAndRunNext(m.init, code)
}
