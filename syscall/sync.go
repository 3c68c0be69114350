package syscall

import (
	"sylvos/defs"
	"sylvos/sched"
)

/// sysMutexCreate implements mutex_create(blocking): installs a spin or
/// blocking mutex at the lowest unused slot in cur's process-wide sync
/// table.
func (k *Kernel) sysMutexCreate(cur *sched.Task_t, blocking bool) int {
	return k.Proc.SyncTable(cur).CreateMutex(blocking)
}

/// sysMutexLock implements mutex_lock(id): returns -0xDEAD if the
/// mutex's own deadlocked-flag gate fires, else the underlying
/// contention result.
func (k *Kernel) sysMutexLock(cur *sched.Task_t, id int) int {
	if err := k.Proc.SyncTable(cur).MutexLock(k.runtime(), int(cur.Tid), id); err != 0 {
		return defs.RetDeadlock
	}
	return 0
}

/// sysMutexUnlock implements mutex_unlock(id).
func (k *Kernel) sysMutexUnlock(cur *sched.Task_t, id int) {
	k.Proc.SyncTable(cur).MutexUnlock(k.runtime(), int(cur.Tid), id)
}

/// sysSemaphoreCreate implements semaphore_create(count): registers
/// count instances of a new resource type.
func (k *Kernel) sysSemaphoreCreate(cur *sched.Task_t, count int) int {
	return k.Proc.SyncTable(cur).CreateSemaphore(count)
}

/// sysSemaphoreUp implements semaphore_up(id).
func (k *Kernel) sysSemaphoreUp(cur *sched.Task_t, id int) {
	k.Proc.SyncTable(cur).SemaphoreUp(k.runtime(), int(cur.Tid), id)
}

/// sysSemaphoreDown implements semaphore_down(id): the sole deadlock
/// gate for semaphores is the banker's check inside ksync.Table.
func (k *Kernel) sysSemaphoreDown(cur *sched.Task_t, id int) int {
	if err := k.Proc.SyncTable(cur).SemaphoreDown(k.runtime(), int(cur.Tid), id); err != 0 {
		return defs.RetDeadlock
	}
	return 0
}

/// sysCondvarCreate implements condvar_create().
func (k *Kernel) sysCondvarCreate(cur *sched.Task_t) int {
	return k.Proc.SyncTable(cur).CreateCondvar()
}

/// sysCondvarSignal implements condvar_signal(id).
func (k *Kernel) sysCondvarSignal(cur *sched.Task_t, id int) {
	k.Proc.SyncTable(cur).CondvarSignal(k.runtime(), id)
}

/// sysCondvarWait implements condvar_wait(cid, mid).
func (k *Kernel) sysCondvarWait(cur *sched.Task_t, cid, mid int) {
	k.Proc.SyncTable(cur).CondvarWait(k.runtime(), int(cur.Tid), cid, mid)
}

/// sysEnableDeadlockCheck implements enable_deadlock_detect(on):
/// toggles the TCB flag that gates both the mutex flag-based short-
/// circuit and the semaphore banker's-check gate.
func (k *Kernel) sysEnableDeadlockCheck(cur *sched.Task_t, on bool) int {
	cur.EnableDeadlockDetect = on
	return 0
}
