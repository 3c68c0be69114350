package kprof

import (
	"testing"

	"sylvos/defs"
)

type fakeTask struct {
	pid    int64
	counts [defs.MaxSyscallNum]uint32
}

func (f *fakeTask) TaskPid() int64                            { return f.pid }
func (f *fakeTask) SyscallCounts() [defs.MaxSyscallNum]uint32 { return f.counts }

func TestBuildOneLocationPerDistinctSyscall(t *testing.T) {
	a := &fakeTask{pid: 1}
	a.counts[defs.SysRead] = 3
	a.counts[defs.SysWrite] = 1
	b := &fakeTask{pid: 2}
	b.counts[defs.SysRead] = 5

	prof := Build([]TaskCounters{a, b})

	if len(prof.Location) != 2 {
		t.Fatalf("len(Location) = %d, want 2 (read, write)", len(prof.Location))
	}
	if len(prof.Function) != 2 {
		t.Fatalf("len(Function) = %d, want 2", len(prof.Function))
	}
	// a contributes 2 samples (read, write), b contributes 1 (read).
	if len(prof.Sample) != 3 {
		t.Fatalf("len(Sample) = %d, want 3", len(prof.Sample))
	}

	names := map[string]bool{}
	for _, fn := range prof.Function {
		names[fn.Name] = true
	}
	if !names["read"] || !names["write"] {
		t.Fatalf("Function names = %v, want read and write present", names)
	}
}

func TestBuildSkipsSyscallsNeverCalled(t *testing.T) {
	a := &fakeTask{pid: 1}
	prof := Build([]TaskCounters{a})
	if len(prof.Sample) != 0 {
		t.Fatalf("a task with all-zero counts should contribute zero samples, got %d", len(prof.Sample))
	}
}

func TestEncodeProducesGzipStream(t *testing.T) {
	a := &fakeTask{pid: 1}
	a.counts[defs.SysFork] = 1
	b, err := Encode(Build([]TaskCounters{a}))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(b) < 2 || b[0] != 0x1f || b[1] != 0x8b {
		t.Fatalf("Encode output does not start with the gzip magic bytes")
	}
}

type fakeLister struct{ tasks []TaskCounters }

func (l *fakeLister) AllTasks() []TaskCounters { return l.tasks }

func TestDeviceReadDrainsAsOneLogicalStreamAndRejectsWrite(t *testing.T) {
	a := &fakeTask{pid: 1}
	a.counts[defs.SysYield] = 2
	dev := NewDevice(&fakeLister{tasks: []TaskCounters{a}})

	var all []byte
	buf := make([]byte, 8)
	for {
		n, err := dev.Read(buf)
		if err != 0 {
			t.Fatalf("Read: %v", err)
		}
		if n == 0 {
			break
		}
		all = append(all, buf[:n]...)
	}
	if len(all) < 2 || all[0] != 0x1f || all[1] != 0x8b {
		t.Fatalf("drained stream does not start with the gzip magic bytes")
	}

	if _, err := dev.Write([]byte("x")); err != defs.EINVAL {
		t.Fatalf("Write on D_PROF: got %v, want EINVAL", err)
	}
}

func TestDeviceReopenSnapshotsIndependently(t *testing.T) {
	a := &fakeTask{pid: 1}
	dev := NewDevice(&fakeLister{tasks: []TaskCounters{a}})
	buf := make([]byte, 4096)
	dev.Read(buf) // exhausts dev's one-shot snapshot

	h, err := dev.Reopen()
	if err != 0 {
		t.Fatalf("Reopen: %v", err)
	}
	n, err := h.Read(buf)
	if err != 0 || n == 0 {
		t.Fatalf("reopened device's first Read = %d,%v; want >0,0 (independent snapshot)", n, err)
	}
}
