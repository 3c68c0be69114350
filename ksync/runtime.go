package ksync

import "sylvos/sched"

/// Runtime is the scheduler handle every primitive needs to suspend,
/// block, or wake a task. It is passed explicitly rather than stored on
/// each primitive so that SpinMutex/BlockingMutex/Semaphore/Condvar stay
/// plain data, matching how a Table's slots are serialized independent
/// of any one scheduler instance.
type Runtime struct {
	Sched *sched.Scheduler
}
