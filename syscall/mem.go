package syscall

import "sylvos/sched"

/// sysSbrk implements sys_sbrk(size): grows or shrinks the heap by size
/// bytes (signed) and returns the break address before the change, or
/// -1 on failure.
func (k *Kernel) sysSbrk(cur *sched.Task_t, size int) int64 {
	old, err := cur.AS.ChangeBrk(size)
	if err != 0 {
		return -1
	}
	return int64(old)
}

/// sysMmap implements sys_mmap(start, len, prot): returns 0 on success,
/// -1 on any rejection.
func (k *Kernel) sysMmap(cur *sched.Task_t, start uint64, length, prot int) int {
	if err := cur.AS.Mmap(start, length, prot); err != 0 {
		return -1
	}
	return 0
}

/// sysMunmap implements sys_munmap(start, len): returns 0 on success,
/// -1 if the region doesn't exactly match a mapped area.
func (k *Kernel) sysMunmap(cur *sched.Task_t, start uint64, length int) int {
	if err := cur.AS.Munmap(start, length); err != 0 {
		return -1
	}
	return 0
}
