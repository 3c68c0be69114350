package sched

import (
	"container/heap"
	"sync"
	"time"
)

/// sleeper pairs a wake deadline with the task to wake.
type sleeper struct {
	deadlineMs int64
	task       *Task_t
	index      int
}

type sleeperHeap []*sleeper

func (h sleeperHeap) Len() int            { return len(h) }
func (h sleeperHeap) Less(i, j int) bool  { return h[i].deadlineMs < h[j].deadlineMs }
func (h sleeperHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *sleeperHeap) Push(x interface{}) {
	s := x.(*sleeper)
	s.index = len(*h)
	*h = append(*h, s)
}
func (h *sleeperHeap) Pop() interface{} {
	old := *h
	n := len(old)
	s := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return s
}

/// Timers tracks pending sleepers ordered by wake deadline over the
/// monotonic millisecond clock NowMs.
type Timers struct {
	mu    sync.Mutex
	heap  sleeperHeap
	sched *Scheduler
}

/// NewTimers builds an empty timer wheel driving wakeups through sched.
func NewTimers(sched *Scheduler) *Timers {
	return &Timers{sched: sched}
}

// clockBase anchors NowMs to the wall clock once; later readings advance
// by Go's monotonic clock reading, so NowMs never steps backwards.
var clockBase = time.Now()

/// NowMs returns the current time in milliseconds on a monotonic clock
/// anchored to the Unix-epoch wall-clock time at package initialization,
/// the same clock sys_get_time and sleep deadlines read.
func NowMs() int64 { return clockBase.UnixNano()/1e6 + time.Since(clockBase).Milliseconds() }

/// SleepUntil registers t to be woken at deadlineMs. The caller is
/// responsible for blocking t via the scheduler before (or immediately
/// after, if called from t's own context) registering it here.
func (tm *Timers) SleepUntil(t *Task_t, deadlineMs int64) {
	tm.mu.Lock()
	heap.Push(&tm.heap, &sleeper{deadlineMs: deadlineMs, task: t})
	tm.mu.Unlock()
}

/// Tick wakes every sleeper whose deadline has passed nowMs, via
/// WakeupTask. Called from the scheduler's idle loop once per quantum.
func (tm *Timers) Tick(nowMs int64) {
	tm.mu.Lock()
	var woken []*Task_t
	for tm.heap.Len() > 0 && tm.heap[0].deadlineMs <= nowMs {
		s := heap.Pop(&tm.heap).(*sleeper)
		woken = append(woken, s.task)
	}
	tm.mu.Unlock()
	for _, t := range woken {
		tm.sched.WakeupTask(t)
	}
}

/// Pending reports how many sleepers are still registered, for tests.
func (tm *Timers) Pending() int {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.heap.Len()
}
