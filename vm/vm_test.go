package vm

import (
	"testing"

	"sylvos/defs"
	"sylvos/mem"
)

func newTestAS(t *testing.T) *Vm_t {
	t.Helper()
	alloc := mem.NewAllocator(0, 4096)
	as, err := NewAddrSpace(alloc)
	if err != 0 {
		t.Fatalf("NewAddrSpace: %v", err)
	}
	return as
}

func TestMmapMunmapRoundTrip(t *testing.T) {
	as := newTestAS(t)
	const start = 0x10000000
	const length = 8192
	if err := as.Mmap(start, length, 0x3); err != 0 {
		t.Fatalf("Mmap: %v", err)
	}
	if err := as.Munmap(start, length); err != 0 {
		t.Fatalf("Munmap exact match: %v", err)
	}
}

func TestMunmapSizeMismatchFails(t *testing.T) {
	as := newTestAS(t)
	const start = 0x20000000
	if err := as.Mmap(start, 8192, 0x3); err != 0 {
		t.Fatalf("Mmap: %v", err)
	}
	if err := as.Munmap(start, 4096); err != defs.EINVAL {
		t.Fatalf("Munmap with mismatched size: got %v, want EINVAL", err)
	}
}

func TestMmapRejectsOverlap(t *testing.T) {
	as := newTestAS(t)
	const start = 0x30000000
	if err := as.Mmap(start, 4096, 0x3); err != 0 {
		t.Fatalf("first Mmap: %v", err)
	}
	if err := as.Mmap(start, 4096, 0x1); err != defs.EEXIST {
		t.Fatalf("overlapping Mmap: got %v, want EEXIST", err)
	}
}

func TestMmapRejectsBadProt(t *testing.T) {
	as := newTestAS(t)
	if err := as.Mmap(0x40000000, 4096, 0); err != defs.EINVAL {
		t.Fatalf("Mmap with no prot bits: got %v, want EINVAL", err)
	}
	if err := as.Mmap(0x40000000, 4096, 0x8); err != defs.EINVAL {
		t.Fatalf("Mmap with out-of-range prot bits: got %v, want EINVAL", err)
	}
}

func TestMmapRejectsUnalignedStart(t *testing.T) {
	as := newTestAS(t)
	if err := as.Mmap(0x1000+1, 4096, 0x1); err != defs.EINVAL {
		t.Fatalf("Mmap with unaligned start: got %v, want EINVAL", err)
	}
}

func TestChangeBrkGrowAndShrink(t *testing.T) {
	as := newTestAS(t)
	as.brkVPN = 0x100
	as.origBrkVPN = 0x100

	old, err := as.ChangeBrk(defs.PGSIZE)
	if err != 0 {
		t.Fatalf("ChangeBrk grow: %v", err)
	}
	if old != vaOf(0x100) {
		t.Fatalf("ChangeBrk grow: old break = %#x, want %#x", old, vaOf(0x100))
	}

	if _, err := as.ChangeBrk(-defs.PGSIZE); err != 0 {
		t.Fatalf("ChangeBrk shrink back: %v", err)
	}
}

func TestChangeBrkRejectsUnderflow(t *testing.T) {
	as := newTestAS(t)
	as.brkVPN = 0x100
	as.origBrkVPN = 0x100

	if _, err := as.ChangeBrk(-(2 * defs.PGSIZE)); err != defs.EINVAL {
		t.Fatalf("ChangeBrk underflow: got %v, want EINVAL", err)
	}
}

func TestTranslateBufferCrossesPageBoundary(t *testing.T) {
	as := newTestAS(t)
	const start = 0x50000000
	if err := as.Mmap(start, 2*defs.PGSIZE, 0x3); err != 0 {
		t.Fatalf("Mmap: %v", err)
	}

	ptr := uint64(start + defs.PGSIZE - 4)
	bufs, err := as.TranslateBuffer(ptr, 8)
	if err != 0 {
		t.Fatalf("TranslateBuffer straddling a page: %v", err)
	}
	if len(bufs) != 2 {
		t.Fatalf("TranslateBuffer straddling a page: got %d chunks, want 2", len(bufs))
	}
	if len(bufs[0])+len(bufs[1]) != 8 {
		t.Fatalf("TranslateBuffer straddling a page: chunks sum to %d bytes, want 8", len(bufs[0])+len(bufs[1]))
	}
}

func TestWriteStructReadStructRoundTrip(t *testing.T) {
	as := newTestAS(t)
	const start = 0x60000000
	if err := as.Mmap(start, 2*defs.PGSIZE, 0x3); err != 0 {
		t.Fatalf("Mmap: %v", err)
	}

	ptr := uint64(start + defs.PGSIZE - 4)
	in := &fakeStruct{a: 0x1122334455667788, b: 0xaabbccdd}
	if err := as.WriteStruct(ptr, in); err != 0 {
		t.Fatalf("WriteStruct: %v", err)
	}
	out := &fakeStruct{}
	if err := as.ReadStruct(ptr, out); err != 0 {
		t.Fatalf("ReadStruct: %v", err)
	}
	if out.a != in.a || out.b != in.b {
		t.Fatalf("ReadStruct after straddling WriteStruct: got %+v, want %+v", out, in)
	}
}

func TestTranslateStringCrossesPageBoundary(t *testing.T) {
	as := newTestAS(t)
	const start = 0x70000000
	if err := as.Mmap(start, 2*defs.PGSIZE, 0x3); err != 0 {
		t.Fatalf("Mmap: %v", err)
	}
	ptr := uint64(start + defs.PGSIZE - 1)
	if err := as.writeBytes(ptr, []byte("hi\x00")); err != 0 {
		t.Fatalf("writeBytes: %v", err)
	}
	s, err := as.TranslateString(ptr)
	if err != 0 {
		t.Fatalf("TranslateString: %v", err)
	}
	if s != "hi" {
		t.Fatalf("TranslateString: got %q, want %q", s, "hi")
	}
}

func TestCloneDeepIsIndependent(t *testing.T) {
	as := newTestAS(t)
	const start = 0x80000000
	if err := as.Mmap(start, defs.PGSIZE, 0x3); err != 0 {
		t.Fatalf("Mmap: %v", err)
	}
	if err := as.writeBytes(start, []byte("parent")); err != 0 {
		t.Fatalf("writeBytes: %v", err)
	}

	child, err := as.CloneDeep()
	if err != 0 {
		t.Fatalf("CloneDeep: %v", err)
	}
	if err := child.writeBytes(start, []byte("child!")); err != 0 {
		t.Fatalf("writeBytes on clone: %v", err)
	}

	parentBytes, err := as.readBytes(start, 6)
	if err != 0 {
		t.Fatalf("readBytes parent: %v", err)
	}
	if string(parentBytes) != "parent" {
		t.Fatalf("CloneDeep: parent memory mutated to %q, want %q", parentBytes, "parent")
	}
}

// fakeStruct is a minimal StructWriter/StructReader used to exercise the
// straddling scatter/gather path independent of uapi's real wire types.
type fakeStruct struct {
	a uint64
	b uint32
}

func (f *fakeStruct) Encode() []byte {
	b := make([]byte, 12)
	for i := 0; i < 8; i++ {
		b[i] = byte(f.a >> (8 * i))
	}
	for i := 0; i < 4; i++ {
		b[8+i] = byte(f.b >> (8 * i))
	}
	return b
}

func (f *fakeStruct) Size() int { return 12 }

func (f *fakeStruct) Decode(b []byte) {
	var a uint64
	for i := 0; i < 8; i++ {
		a |= uint64(b[i]) << (8 * i)
	}
	var bb uint32
	for i := 0; i < 4; i++ {
		bb |= uint32(b[8+i]) << (8 * i)
	}
	f.a = a
	f.b = bb
}
