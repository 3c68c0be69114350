package proc

import (
	"testing"

	"sylvos/defs"
	"sylvos/mem"
	"sylvos/sched"
	"sylvos/vm"
)

type noopSwitcher struct{}

func (noopSwitcher) Switch(from, to *sched.Task_t) {}

func tinyImage() *vm.Image {
	return &vm.Image{
		Segments: []vm.Segment{
			{VA: 0x1000, Data: []byte{0x13, 0x00, 0x00, 0x00}, Perms: defs.PTE_R | defs.PTE_X},
		},
		EntryVA: 0x1000,
	}
}

func newManager(t *testing.T) (*Manager, *sched.Scheduler, *Registry) {
	t.Helper()
	alloc := mem.NewAllocator(0, 4096)
	idleAS, err := vm.NewAddrSpace(alloc)
	if err != 0 {
		t.Fatalf("NewAddrSpace(idle): %v", err)
	}
	idle := sched.NewTask(0, 0, idleAS)
	sc := sched.NewScheduler(noopSwitcher{}, idle)

	reg := NewRegistry()
	reg.Add("init", tinyImage())
	reg.Add("child", tinyImage())

	m := NewManager(sc, alloc, reg)
	return m, sc, reg
}

func TestSpawnInitInstallsEntryAndStackPointer(t *testing.T) {
	m, _, _ := newManager(t)

	init, err := m.SpawnInit(tinyImage())
	if err != 0 {
		t.Fatalf("SpawnInit: %v", err)
	}
	if init.Ctx.PC != 0x1000 {
		t.Fatalf("init.Ctx.PC = %#x, want 0x1000", init.Ctx.PC)
	}
	if init.Ctx.Regs[2] == 0 {
		t.Fatalf("init.Ctx.Regs[2] (sp) was never set")
	}
	if m.Init() != init {
		t.Fatalf("Init() did not return the spawned task")
	}
}

func TestForkGivesChildIndependentPidAndSharedFds(t *testing.T) {
	m, sc, _ := newManager(t)
	parent, err := m.SpawnInit(tinyImage())
	if err != 0 {
		t.Fatalf("SpawnInit: %v", err)
	}
	sc.Bootstrap(parent)

	childPid, err := m.Fork(parent)
	if err != 0 {
		t.Fatalf("Fork: %v", err)
	}
	if childPid == parent.Pid {
		t.Fatalf("child pid equals parent pid")
	}
	if len(parent.Children) != 1 || parent.Children[0].Pid != childPid {
		t.Fatalf("parent.Children = %v, want exactly the new child", parent.Children)
	}
	if parent.Children[0].Fds == nil {
		t.Fatalf("child's fd table was never cloned")
	}
	if parent.Children[0].AS == parent.AS {
		t.Fatalf("child's address space must be a deep, independent clone")
	}
}

func TestWaitpidReturnsECHILDThenEAGAINThenReapsZombie(t *testing.T) {
	m, sc, _ := newManager(t)
	parent, err := m.SpawnInit(tinyImage())
	if err != 0 {
		t.Fatalf("SpawnInit: %v", err)
	}
	sc.Bootstrap(parent)

	var code int
	if _, err := m.Waitpid(parent, -1, &code); err != defs.ECHILD {
		t.Fatalf("waitpid with no children: got %v, want ECHILD", err)
	}

	childPid, err := m.Fork(parent)
	if err != 0 {
		t.Fatalf("Fork: %v", err)
	}
	if _, err := m.Waitpid(parent, -1, &code); err != defs.EAGAIN {
		t.Fatalf("waitpid before the child exits: got %v, want EAGAIN", err)
	}

	child := parent.Children[0]
	// Exit acts on the scheduler's current task, so run the child first.
	sc.SuspendCurrentAndRunNext()
	if sc.Current() != child {
		t.Fatalf("current after parent suspends = pid %v, want the child", sc.Current().Pid)
	}
	m.Exit(child, 42)
	if child.Status != sched.Zombie {
		t.Fatalf("child.Status after Exit = %v, want Zombie", child.Status)
	}

	gotPid, err := m.Waitpid(parent, -1, &code)
	if err != 0 {
		t.Fatalf("waitpid reaping the zombie: %v", err)
	}
	if gotPid != childPid || code != 42 {
		t.Fatalf("waitpid = pid %v code %d, want pid %v code 42", gotPid, code, childPid)
	}
	if len(parent.Children) != 0 {
		t.Fatalf("parent.Children after reap = %d, want 0", len(parent.Children))
	}
}

func TestExecReplacesAddressSpaceKeepsPidAndParent(t *testing.T) {
	m, sc, _ := newManager(t)
	parent, err := m.SpawnInit(tinyImage())
	if err != 0 {
		t.Fatalf("SpawnInit: %v", err)
	}
	sc.Bootstrap(parent)
	oldAS := parent.AS
	oldPid := parent.Pid

	if err := m.Exec(parent, "child"); err != 0 {
		t.Fatalf("Exec: %v", err)
	}
	if parent.AS == oldAS {
		t.Fatalf("Exec did not replace the address space")
	}
	if parent.Pid != oldPid {
		t.Fatalf("Exec changed the pid: %v -> %v", oldPid, parent.Pid)
	}
	if parent.Ctx.PC != 0x1000 {
		t.Fatalf("Ctx.PC after exec = %#x, want 0x1000", parent.Ctx.PC)
	}

	if err := m.Exec(parent, "no-such-app"); err != defs.ENOENT {
		t.Fatalf("Exec of an unregistered name: got %v, want ENOENT", err)
	}
}

func TestSpawnAttachesChildWithoutIntermediateFork(t *testing.T) {
	m, sc, _ := newManager(t)
	parent, err := m.SpawnInit(tinyImage())
	if err != 0 {
		t.Fatalf("SpawnInit: %v", err)
	}
	sc.Bootstrap(parent)

	childPid, err := m.Spawn(parent, "child")
	if err != 0 {
		t.Fatalf("Spawn: %v", err)
	}
	if len(parent.Children) != 1 || parent.Children[0].Pid != childPid {
		t.Fatalf("parent.Children after Spawn = %v", parent.Children)
	}

	if _, err := m.Spawn(parent, "missing"); err != defs.ENOENT {
		t.Fatalf("Spawn of an unregistered name: got %v, want ENOENT", err)
	}
}

func TestSetPriorityRejectsLowValues(t *testing.T) {
	m, sc, _ := newManager(t)
	parent, _ := m.SpawnInit(tinyImage())
	sc.Bootstrap(parent)

	if err := m.SetPriority(parent, 1); err != defs.EINVAL {
		t.Fatalf("SetPriority(1): got %v, want EINVAL", err)
	}
	if err := m.SetPriority(parent, 0); err != defs.EINVAL {
		t.Fatalf("SetPriority(0): got %v, want EINVAL", err)
	}
	if err := m.SetPriority(parent, 5); err != 0 {
		t.Fatalf("SetPriority(5): %v", err)
	}
	if parent.Priority != 5 {
		t.Fatalf("Priority after SetPriority(5) = %d, want 5", parent.Priority)
	}
}

func TestAllTasksCoversEveryLiveTask(t *testing.T) {
	m, sc, _ := newManager(t)
	parent, _ := m.SpawnInit(tinyImage())
	sc.Bootstrap(parent)
	m.Fork(parent)
	m.Fork(parent)

	all := m.AllTasks()
	if len(all) != 3 {
		t.Fatalf("AllTasks() len = %d, want 3 (init + 2 children)", len(all))
	}
}
