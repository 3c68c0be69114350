package syscall

import (
	"sylvos/defs"
	"sylvos/sched"
	"sylvos/uapi"
)

/// sysFork implements fork(): returns the child's pid to the parent.
/// The child's own return value of 0 comes from proc.Manager.Fork
/// zeroing the child's saved a0 register, since Dispatch always returns
/// to whichever task is currently Running when it's called.
func (k *Kernel) sysFork(cur *sched.Task_t) int64 {
	pid, err := k.Proc.Fork(cur)
	if err != 0 {
		return -1
	}
	return int64(pid)
}

/// sysExit implements sys_exit(code): tears down cur via the process
/// manager's exit path, including explicit fd-closing.
func (k *Kernel) sysExit(cur *sched.Task_t, code int) {
	k.Proc.Exit(cur, code)
}

/// sysYield implements sys_yield(): always returns 0 after suspending.
func (k *Kernel) sysYield(cur *sched.Task_t) int64 {
	k.Sched.SuspendCurrentAndRunNext()
	return 0
}

/// sysGetPid implements sys_getpid(). It also refreshes k.LastProcinfo
/// with cur's pid and stored priority, a read-only debug snapshot
/// alongside the actual pid return value.
func (k *Kernel) sysGetPid(cur *sched.Task_t) int64 {
	k.LastProcinfo = cur.Procinfo()
	return int64(cur.Pid)
}

/// sysSetPriority implements sys_set_priority(prio): stores prio on the
/// TCB; fails if prio ≤ 1.
func (k *Kernel) sysSetPriority(cur *sched.Task_t, prio int) int {
	if err := k.Proc.SetPriority(cur, prio); err != 0 {
		return -1
	}
	return prio
}

/// sysSpawn implements sys_spawn(path): path is a user pointer to a
/// NUL-terminated string, translated before resolving the image.
func (k *Kernel) sysSpawn(cur *sched.Task_t, pathPtr uint64) int64 {
	path, err := cur.AS.TranslateString(pathPtr)
	if err != 0 {
		return -1
	}
	pid, err := k.Proc.Spawn(cur, path)
	if err != 0 {
		return -1
	}
	return int64(pid)
}

/// sysExec implements sys_exec(path).
func (k *Kernel) sysExec(cur *sched.Task_t, pathPtr uint64) int {
	path, err := cur.AS.TranslateString(pathPtr)
	if err != 0 {
		return -1
	}
	if err := k.Proc.Exec(cur, path); err != 0 {
		return -1
	}
	return 0
}

/// sysWaitpid implements sys_waitpid(pid, &code): writes the reaped
/// child's exit code through the translator and returns its pid, or
/// -1 (ECHILD) / -2 (EAGAIN).
func (k *Kernel) sysWaitpid(cur *sched.Task_t, pid int, codePtr uint64) int64 {
	var code int
	childPid, err := k.Proc.Waitpid(cur, defs.Pid_t(pid), &code)
	switch err {
	case defs.ECHILD:
		return -1
	case defs.EAGAIN:
		return -2
	}
	if codePtr != 0 {
		buf := make([]byte, 4)
		buf[0] = byte(code)
		buf[1] = byte(code >> 8)
		buf[2] = byte(code >> 16)
		buf[3] = byte(code >> 24)
		bufs, terr := cur.AS.TranslateBuffer(codePtr, 4)
		if terr != 0 {
			return -1
		}
		off := 0
		for _, b := range bufs {
			off += copy(b, buf[off:])
		}
	}
	return int64(childPid)
}

/// sysGetTime implements sys_get_time(ts, tz): writes the current wall
/// clock into the TimeVal at tsPtr via the scatter translator, since
/// TimeVal may straddle a page boundary.
func (k *Kernel) sysGetTime(cur *sched.Task_t, tsPtr uint64) int {
	nowMs := sched.NowMs()
	tv := &uapi.TimeVal{Sec: uint64(nowMs / 1000), Usec: uint64(nowMs%1000) * 1000}
	if err := cur.AS.WriteStruct(tsPtr, tv); err != 0 {
		return -1
	}
	return 0
}

/// sysTaskInfo implements sys_task_info(&TaskInfo): writes cur's
/// status, syscall counters, and elapsed runtime through the scatter
/// translator.
func (k *Kernel) sysTaskInfo(cur *sched.Task_t, infoPtr uint64) int {
	ti := &uapi.TaskInfo{
		Status:       cur.Status,
		SyscallTimes: cur.SyscallTimes,
		TimeMs:       uint64(cur.RunningMs()),
	}
	if err := cur.AS.WriteStruct(infoPtr, ti); err != 0 {
		return -1
	}
	return 0
}

/// sysSleep implements sleep(ms): an unconditional timed block that
/// cannot be cancelled.
func (k *Kernel) sysSleep(cur *sched.Task_t, ms uint64) int64 {
	deadline := sched.NowMs() + int64(ms)
	k.Timer.SleepUntil(cur, deadline)
	k.Sched.BlockCurrentAndRunNext()
	return 0
}
