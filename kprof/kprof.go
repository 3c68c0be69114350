// Package kprof exposes each task's per-syscall call counters as a
// github.com/google/pprof profile.Profile, readable through the D_PROF
// diagnostics device. One Location per syscall number, one Sample per
// (task, syscall) pair carrying that task's count for a syscall it has
// invoked — the same shape `go tool pprof` already knows how to render as a
// flat profile.
package kprof

import (
	"bytes"
	"fmt"

	"github.com/google/pprof/profile"

	"sylvos/defs"
)

/// TaskCounters is the minimal view kprof needs of a scheduled task:
/// its pid and its per-syscall-number counts (sched.Task_t satisfies
/// this without kprof needing to import sched directly).
type TaskCounters interface {
	TaskPid() int64
	SyscallCounts() [defs.MaxSyscallNum]uint32
}

var syscallNames = map[int]string{
	defs.SysFork:                "fork",
	defs.SysOpen:                "open",
	defs.SysClose:               "close",
	defs.SysLinkat:              "linkat",
	defs.SysUnlinkat:            "unlinkat",
	defs.SysRead:                "read",
	defs.SysWrite:               "write",
	defs.SysExit:                "exit",
	defs.SysYield:               "yield",
	defs.SysSetPriority:         "set_priority",
	defs.SysGetTime:             "get_time",
	defs.SysGetPid:              "getpid",
	defs.SysSbrk:                "sbrk",
	defs.SysMunmap:              "munmap",
	defs.SysSpawn:               "spawn",
	defs.SysExec:                "exec",
	defs.SysMmap:                "mmap",
	defs.SysWaitpid:             "waitpid",
	defs.SysFstat:               "fstat",
	defs.SysTaskInfo:            "task_info",
	defs.SysSleep:               "sleep",
	defs.SysMutexCreate:         "mutex_create",
	defs.SysMutexLock:           "mutex_lock",
	defs.SysMutexUnlock:         "mutex_unlock",
	defs.SysSemaphoreCreate:     "semaphore_create",
	defs.SysSemaphoreUp:         "semaphore_up",
	defs.SysSemaphoreDown:       "semaphore_down",
	defs.SysCondvarCreate:       "condvar_create",
	defs.SysCondvarSignal:       "condvar_signal",
	defs.SysCondvarWait:         "condvar_wait",
	defs.SysEnableDeadlockCheck: "enable_deadlock_detect",
}

func nameOf(n int) string {
	if s, ok := syscallNames[n]; ok {
		return s
	}
	return fmt.Sprintf("syscall_%d", n)
}

/// Build assembles a profile.Profile with one "syscalls" sample type:
/// one Location/Function per distinct syscall number any task has
/// called, and one Sample per (task, syscall) pair with a nonzero
/// count, labeled with the task's pid.
func Build(tasks []TaskCounters) *profile.Profile {
	p := &profile.Profile{
		SampleType: []*profile.ValueType{{Type: "syscalls", Unit: "count"}},
		PeriodType: &profile.ValueType{Type: "syscalls", Unit: "count"},
		Period:     1,
	}

	funcs := make(map[int]*profile.Function)
	locs := make(map[int]*profile.Location)
	var nextID uint64 = 1

	locFor := func(sysnum int) *profile.Location {
		if l, ok := locs[sysnum]; ok {
			return l
		}
		fn := &profile.Function{ID: nextID, Name: nameOf(sysnum)}
		nextID++
		loc := &profile.Location{ID: nextID, Line: []profile.Line{{Function: fn}}}
		nextID++
		funcs[sysnum] = fn
		locs[sysnum] = loc
		p.Function = append(p.Function, fn)
		p.Location = append(p.Location, loc)
		return loc
	}

	for _, t := range tasks {
		counts := t.SyscallCounts()
		for sysnum, n := range counts {
			if n == 0 {
				continue
			}
			loc := locFor(sysnum)
			p.Sample = append(p.Sample, &profile.Sample{
				Location: []*profile.Location{loc},
				Value:    []int64{int64(n)},
				Label:    map[string][]string{"pid": {fmt.Sprintf("%d", t.TaskPid())}},
			})
		}
	}
	return p
}

/// Encode serializes prof in pprof's gzip-compressed wire format, the
/// bytes the D_PROF device hands back on a read.
func Encode(prof *profile.Profile) ([]byte, error) {
	var buf bytes.Buffer
	if err := prof.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
