// Package syscall dispatches trapped syscall numbers to handler
// functions split by concern (mem, proc, fs, sync), wiring together
// every other package in this module: a flat switch/number-to-handler
// mapping rather than a generated stub layer.
package syscall

import (
	"sylvos/defs"
	"sylvos/fd"
	"sylvos/fs"
	"sylvos/kprof"
	"sylvos/ksync"
	"sylvos/proc"
	"sylvos/sched"
	"sylvos/vm"
)

/// Kernel bundles every collaborator a syscall handler might need:
/// the scheduler (for the current task and suspend/block/wake), the
/// process manager (fork/exec/spawn/waitpid), the timer wheel (sleep),
/// the filesystem (open/read/write/stat/link/unlink), and the
/// diagnostic D_PROF device. One Kernel instance is the dispatch
/// table's sole piece of state.
type Kernel struct {
	Sched *sched.Scheduler
	Timer *sched.Timers
	Proc  *proc.Manager
	Fs    *fs.Fs_t
	Prof  *kprof.Device

	// LastProcinfo is the most recent debug snapshot taken by
	// sys_getpid: additive instrumentation alongside the syscall's actual
	// pid return value, not a second return channel for it.
	LastProcinfo sched.Procinfo
}

/// NewKernel wires sch/timer/pm/filesystem together and builds the
/// D_PROF device over pm's live task list.
func NewKernel(sch *sched.Scheduler, timer *sched.Timers, pm *proc.Manager, filesystem *fs.Fs_t) *Kernel {
	return &Kernel{
		Sched: sch,
		Timer: timer,
		Proc:  pm,
		Fs:    filesystem,
		Prof:  NewProfDevice(pm),
	}
}

/// Dispatch increments the current task's per-syscall counter, then
/// routes to the handler for sysnum with args a0..a5, returning the
/// single signed value (a result, or -1/-2/-0xDEAD) that becomes the
/// syscall's return register.
func (k *Kernel) Dispatch(sysnum int, a0, a1, a2, a3, a4, a5 uint64) int64 {
	cur := k.Sched.Current()
	cur.IncSyscall(sysnum)

	switch sysnum {
	case defs.SysOpen:
		return k.sysOpen(cur, a0, int(a1))
	case defs.SysClose:
		return int64(k.sysClose(cur, int(a0)))
	case defs.SysLinkat:
		return int64(k.sysLinkat(cur, a0, a1))
	case defs.SysUnlinkat:
		return int64(k.sysUnlinkat(cur, a0))
	case defs.SysRead:
		return k.sysRead(cur, int(a0), a1, int(a2))
	case defs.SysWrite:
		return k.sysWrite(cur, int(a0), a1, int(a2))
	case defs.SysFstat:
		return k.sysFstat(cur, int(a0), a1)
	case defs.SysFork:
		return k.sysFork(cur)
	case defs.SysExit:
		k.sysExit(cur, int(a0))
		return 0
	case defs.SysYield:
		return k.sysYield(cur)
	case defs.SysSetPriority:
		return int64(k.sysSetPriority(cur, int(a0)))
	case defs.SysGetTime:
		return int64(k.sysGetTime(cur, a0))
	case defs.SysGetPid:
		return k.sysGetPid(cur)
	case defs.SysSbrk:
		return k.sysSbrk(cur, int(a0))
	case defs.SysMmap:
		return int64(k.sysMmap(cur, a0, int(a1), int(a2)))
	case defs.SysMunmap:
		return int64(k.sysMunmap(cur, a0, int(a1)))
	case defs.SysSpawn:
		return k.sysSpawn(cur, a0)
	case defs.SysExec:
		return int64(k.sysExec(cur, a0))
	case defs.SysWaitpid:
		return k.sysWaitpid(cur, int(a0), a1)
	case defs.SysTaskInfo:
		return int64(k.sysTaskInfo(cur, a0))
	case defs.SysSleep:
		return k.sysSleep(cur, a0)
	case defs.SysMutexCreate:
		return int64(k.sysMutexCreate(cur, a0 != 0))
	case defs.SysMutexLock:
		return int64(k.sysMutexLock(cur, int(a0)))
	case defs.SysMutexUnlock:
		k.sysMutexUnlock(cur, int(a0))
		return 0
	case defs.SysSemaphoreCreate:
		return int64(k.sysSemaphoreCreate(cur, int(a0)))
	case defs.SysSemaphoreUp:
		k.sysSemaphoreUp(cur, int(a0))
		return 0
	case defs.SysSemaphoreDown:
		return int64(k.sysSemaphoreDown(cur, int(a0)))
	case defs.SysCondvarCreate:
		return int64(k.sysCondvarCreate(cur))
	case defs.SysCondvarSignal:
		k.sysCondvarSignal(cur, int(a0))
		return 0
	case defs.SysCondvarWait:
		k.sysCondvarWait(cur, int(a0), int(a1))
		return 0
	case defs.SysEnableDeadlockCheck:
		return int64(k.sysEnableDeadlockCheck(cur, a0 != 0))
	default:
		return defs.RetErr
	}
}

/// runtime builds a ksync.Runtime bound to this Kernel's scheduler, for
/// handlers that call into the per-process sync table.
func (k *Kernel) runtime() *ksync.Runtime { return &ksync.Runtime{Sched: k.Sched} }

/// fdHandle resolves fdnum on cur's descriptor table, returning EBADF
/// if it's out of range or empty.
func fdHandle(cur *sched.Task_t, fdnum int) (*fd.Fd_t, defs.Err_t) {
	f, ok := cur.Fds.Get(fdnum)
	if !ok {
		return nil, defs.EBADF
	}
	return f, 0
}
