// Package fd implements the per-task file descriptor table: each slot
// is either empty or refers to a handle that is readable, writable, or
// both.
package fd

import "sylvos/defs"

/// Permission bits.
const (
	FD_READ  = 0x1
	FD_WRITE = 0x2
)

/// Handle is implemented by anything a file descriptor can refer to: an
/// open filesystem file, a console stream, or a kernel device such as
/// the D_PROF device. Close releases any underlying resource.
type Handle interface {
	Read(buf []byte) (int, defs.Err_t)
	Write(buf []byte) (int, defs.Err_t)
	Stat(st StatTarget) defs.Err_t
	Close() defs.Err_t
	// Reopen returns a second reference to the same underlying
	// resource, used when a descriptor is duplicated across fork:
	// the child inherits the fd table with reference-shared handles.
	Reopen() (Handle, defs.Err_t)
}

/// StatTarget is the setter interface a Handle.Stat implementation
/// populates; stat.Stat_t implements it. Declared here, rather than
/// accepting *stat.Stat_t directly, to avoid fd importing stat's sibling
/// packages transitively.
type StatTarget interface {
	SetDev(uint64)
	SetInodeID(uint64)
	SetMode(uint32)
	SetNlink(uint32)
}

/// Fd_t is one open file descriptor: a handle plus the permission bits
/// negotiated at open time.
type Fd_t struct {
	Handle Handle
	Perms  int
}

/// Readable/Writable report whether this descriptor was opened with the
/// corresponding capability.
func (f *Fd_t) Readable() bool { return f.Perms&FD_READ != 0 }
func (f *Fd_t) Writable() bool { return f.Perms&FD_WRITE != 0 }

/// Table is the sparse fd table owned by one task.
type Table struct {
	slots []*Fd_t
}

/// Insert installs fd at the lowest unused slot and returns that index,
/// growing the table if every existing slot is occupied.
func (t *Table) Insert(fd *Fd_t) int {
	for i, s := range t.slots {
		if s == nil {
			t.slots[i] = fd
			return i
		}
	}
	t.slots = append(t.slots, fd)
	return len(t.slots) - 1
}

/// Get returns the descriptor at n, or ok=false if n is out of range or
/// empty.
func (t *Table) Get(n int) (*Fd_t, bool) {
	if n < 0 || n >= len(t.slots) || t.slots[n] == nil {
		return nil, false
	}
	return t.slots[n], true
}

/// Close empties slot n. Fails if n is out of range or already empty.
func (t *Table) Close(n int) defs.Err_t {
	fd, ok := t.Get(n)
	if !ok {
		return defs.EBADF
	}
	t.slots[n] = nil
	return fd.Handle.Close()
}

/// CloseAll empties every occupied slot, closing each handle. Used on
/// task exit: fd-closing is explicit, not an implicit side effect of TCB
/// teardown.
func (t *Table) CloseAll() {
	for i, s := range t.slots {
		if s != nil {
			s.Handle.Close()
			t.slots[i] = nil
		}
	}
}

/// CloneShared produces a new Table referring to the same handles via
/// Reopen, for fork's reference-shared handle inheritance.
func (t *Table) CloneShared() (*Table, defs.Err_t) {
	nt := &Table{slots: make([]*Fd_t, len(t.slots))}
	for i, s := range t.slots {
		if s == nil {
			continue
		}
		h, err := s.Handle.Reopen()
		if err != 0 {
			return nil, err
		}
		nt.slots[i] = &Fd_t{Handle: h, Perms: s.Perms}
	}
	return nt, 0
}
