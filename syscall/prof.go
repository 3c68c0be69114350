package syscall

import (
	"sylvos/kprof"
	"sylvos/proc"
)

/// procLister adapts proc.Manager.AllTasks (concrete *sched.Task_t
/// values) to kprof.TaskLister (which needs the narrower TaskCounters
/// view), keeping kprof free of any dependency on proc or sched.
type procLister struct {
	mgr *proc.Manager
}

func (p procLister) AllTasks() []kprof.TaskCounters {
	tasks := p.mgr.AllTasks()
	out := make([]kprof.TaskCounters, len(tasks))
	for i, t := range tasks {
		out[i] = t
	}
	return out
}

/// NewProfDevice builds the D_PROF device reading live syscall counters
/// from mgr's tasks.
func NewProfDevice(mgr *proc.Manager) *kprof.Device {
	return kprof.NewDevice(procLister{mgr: mgr})
}
