package fs

import (
	"testing"

	"sylvos/defs"
	"sylvos/stat"
	"sylvos/ustr"
)

// memDisk is a minimal Disk stub: fs only calls SyncAll, on the link
// path, in this test, never read/write-block directly (reads/writes go
// through fileHandle's resident in-memory inode.data).
type memDisk struct{ synced int }

func (d *memDisk) ReadBlock(blockno int) []byte        { return make([]byte, BlockSize) }
func (d *memDisk) WriteBlock(blockno int, data []byte) {}
func (d *memDisk) SyncAll()                            { d.synced++ }

func u(s string) ustr.Ustr { return ustr.MkUstrSlice(append([]byte(s), 0)) }

func TestOpenCreateThenOpenExisting(t *testing.T) {
	f := NewFs(&memDisk{}, 7)

	if _, err := f.Open(u("missing"), 0); err != defs.ENOENT {
		t.Fatalf("open without OCreate on a missing name: got %v, want ENOENT", err)
	}

	h1, err := f.Open(u("a"), OCreate)
	if err != 0 {
		t.Fatalf("create a: %v", err)
	}
	if _, err := h1.Write([]byte("hello")); err != 0 {
		t.Fatalf("write: %v", err)
	}

	h2, err := f.Open(u("a"), 0)
	if err != 0 {
		t.Fatalf("reopen existing a: %v", err)
	}
	buf := make([]byte, 5)
	n, err := h2.Read(buf)
	if err != 0 || n != 5 || string(buf) != "hello" {
		t.Fatalf("read back = %q, %d, %v; want hello,5,0", buf[:n], n, err)
	}
}

func TestLinkatIncrementsNlinkAndRejectsSameName(t *testing.T) {
	disk := &memDisk{}
	f := NewFs(disk, 1)
	h, err := f.Open(u("orig"), OCreate)
	if err != 0 {
		t.Fatalf("create orig: %v", err)
	}

	if err := f.Linkat(u("orig"), u("orig")); err != defs.EINVAL {
		t.Fatalf("linkat same name: got %v, want EINVAL", err)
	}

	if err := f.Linkat(u("orig"), u("alias")); err != 0 {
		t.Fatalf("linkat new alias: %v", err)
	}
	if disk.synced == 0 {
		t.Fatalf("linkat should have synced the disk")
	}

	var st stat.Stat_t
	if err := h.Stat(&st); err != 0 {
		t.Fatalf("stat: %v", err)
	}
	if st.Nlink != 2 {
		t.Fatalf("nlink after one link = %d, want 2", st.Nlink)
	}

	if err := f.Linkat(u("orig"), u("alias")); err != defs.EEXIST {
		t.Fatalf("linkat to an existing new name: got %v, want EEXIST", err)
	}
	if err := f.Linkat(u("nope"), u("other")); err != defs.ENOENT {
		t.Fatalf("linkat nonexistent old name: got %v, want ENOENT", err)
	}
}

func TestUnlinkatDropsInodeAtZeroNlink(t *testing.T) {
	f := NewFs(&memDisk{}, 1)
	if _, err := f.Open(u("a"), OCreate); err != 0 {
		t.Fatalf("create a: %v", err)
	}
	if err := f.Linkat(u("a"), u("b")); err != 0 {
		t.Fatalf("linkat: %v", err)
	}

	if err := f.Unlinkat(u("a")); err != 0 {
		t.Fatalf("unlink a: %v", err)
	}
	// b is still a valid name; the inode survives with nlink 1.
	h, err := f.Open(u("b"), 0)
	if err != 0 {
		t.Fatalf("open b after unlinking a: %v", err)
	}
	var st stat.Stat_t
	h.Stat(&st)
	if st.Nlink != 1 {
		t.Fatalf("nlink after unlinking one of two names = %d, want 1", st.Nlink)
	}

	if err := f.Unlinkat(u("b")); err != 0 {
		t.Fatalf("unlink b: %v", err)
	}
	if err := f.Unlinkat(u("b")); err != defs.ENOENT {
		t.Fatalf("unlink an already-removed name: got %v, want ENOENT", err)
	}
	if _, err := f.Open(u("b"), 0); err != defs.ENOENT {
		t.Fatalf("open a fully-unlinked name: got %v, want ENOENT", err)
	}
}

func TestWriteGrowsFileAndReadRespectsOffset(t *testing.T) {
	f := NewFs(&memDisk{}, 1)
	h, err := f.Open(u("grow"), OCreate)
	if err != 0 {
		t.Fatalf("create: %v", err)
	}
	if n, err := h.Write([]byte("ab")); err != 0 || n != 2 {
		t.Fatalf("first write = %d,%v; want 2,0", n, err)
	}
	if n, err := h.Write([]byte("cd")); err != 0 || n != 2 {
		t.Fatalf("second write = %d,%v; want 2,0", n, err)
	}

	h2, err := f.Open(u("grow"), 0)
	if err != 0 {
		t.Fatalf("reopen: %v", err)
	}
	buf := make([]byte, 16)
	n, err := h2.Read(buf)
	if err != 0 || string(buf[:n]) != "abcd" {
		t.Fatalf("read = %q, want abcd", buf[:n])
	}
	// A further read at EOF returns 0, no error.
	n2, err := h2.Read(buf)
	if err != 0 || n2 != 0 {
		t.Fatalf("read at EOF = %d,%v; want 0,0", n2, err)
	}
}

func TestRootDirFindAppendRemoveAt(t *testing.T) {
	var d rootDir
	if !d.append(u("x"), 1) {
		t.Fatalf("append x failed")
	}
	if !d.append(u("y"), 2) {
		t.Fatalf("append y failed")
	}
	i, ok := d.find(u("y"))
	if !ok || i != 1 {
		t.Fatalf("find y = %d,%v; want 1,true", i, ok)
	}
	d.removeAt(0)
	if _, ok := d.find(u("x")); ok {
		t.Fatalf("x should be gone after removeAt(0)")
	}
	j, ok := d.find(u("y"))
	if !ok || j != 0 {
		t.Fatalf("find y after removing x = %d,%v; want 0,true", j, ok)
	}

	long := make([]byte, nameFieldLen)
	for i := range long {
		long[i] = 'z'
	}
	if d.append(ustr.MkUstrSlice(append(long, 0)), 3) {
		t.Fatalf("append of a name >= nameFieldLen should fail")
	}
}
