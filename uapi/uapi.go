// Package uapi defines the fixed wire-layout structures copied to user
// memory by sys_get_time and sys_task_info: TimeVal and TaskInfo. Both
// may straddle a page boundary and so are written via
// vm.Vm_t.WriteStruct's scatter path rather than a direct pointer cast.
package uapi

import (
	"encoding/binary"

	"sylvos/defs"
)

/// TimeVal is the wall-clock time returned by sys_get_time: {sec, usec}.
type TimeVal struct {
	Sec  uint64
	Usec uint64
}

const timeValSize = 16

/// Encode serializes TimeVal little-endian for the scatter translator.
func (tv *TimeVal) Encode() []byte {
	b := make([]byte, timeValSize)
	binary.LittleEndian.PutUint64(b[0:8], tv.Sec)
	binary.LittleEndian.PutUint64(b[8:16], tv.Usec)
	return b
}

/// TaskInfo is the per-task snapshot returned by sys_task_info: current
/// status, per-syscall invocation counts, and milliseconds since the
/// task's first recorded syscall (sched.Task_t.RunningMs).
type TaskInfo struct {
	Status       defs.TaskStatus
	SyscallTimes [defs.MaxSyscallNum]uint32
	TimeMs       uint64
}

const taskInfoSize = 8 + defs.MaxSyscallNum*4 + 8

/// Encode serializes TaskInfo little-endian for the scatter translator.
func (ti *TaskInfo) Encode() []byte {
	b := make([]byte, taskInfoSize)
	binary.LittleEndian.PutUint64(b[0:8], uint64(ti.Status))
	off := 8
	for _, c := range ti.SyscallTimes {
		binary.LittleEndian.PutUint32(b[off:off+4], c)
		off += 4
	}
	binary.LittleEndian.PutUint64(b[off:off+8], ti.TimeMs)
	return b
}
