// Package mem implements the physical frame allocator and the
// hierarchical page table: a bump-pointer-plus-recycle-list allocator
// and an array-of-PTE page table page, narrowed to a single-CPU,
// non-CoW shape.
package mem

import (
	"sync"

	"sylvos/defs"
)

/// FrameNum identifies a physical frame by its page number, not byte
/// address.
type FrameNum uint64

/// ErrOutOfMemory is returned by Alloc when no frame is available.
var ErrOutOfMemory = defs.ENOMEM

/// Allocator is the process-wide physical frame allocator singleton.
/// It keeps a contiguous range [current, end) of never-allocated
/// frames plus a LIFO list of previously freed frames: a recycle list
/// and a bump pointer.
type Allocator struct {
	mu sync.Mutex

	current FrameNum
	end     FrameNum

	// recycled is a LIFO stack of frames returned via Dealloc.
	recycled []FrameNum

	// backing holds the zeroed byte storage for every frame in
	// [current0, end), indexed by FrameNum-current0. A real kernel would
	// address physical memory directly; this core models frame contents
	// as addressable Go memory since the MMU/boot-provided physical map
	// is an external collaborator.
	current0 FrameNum
	backing  [][defs.PGSIZE]byte
}

/// NewAllocator builds an allocator over the frame range [start, start+n),
/// as if initialized from the boot-provided physical memory map.
func NewAllocator(start FrameNum, n int) *Allocator {
	return &Allocator{
		current:  start,
		current0: start,
		end:      start + FrameNum(n),
		backing:  make([][defs.PGSIZE]byte, n),
	}
}

/// Alloc returns a freshly zeroed frame, or ErrOutOfMemory when the
/// recycled list is empty and the bump pointer has reached the end of
/// the range.
func (a *Allocator) Alloc() (FrameNum, defs.Err_t) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var f FrameNum
	if n := len(a.recycled); n > 0 {
		f = a.recycled[n-1]
		a.recycled = a.recycled[:n-1]
	} else if a.current < a.end {
		f = a.current
		a.current++
	} else {
		return 0, ErrOutOfMemory
	}
	a.zero(f)
	return f, 0
}

/// Dealloc returns a frame to the recycle list. The caller must not use
/// the frame afterward; the invariant that a frame is either owned by
/// exactly one mapping or is free is enforced by callers, not here.
func (a *Allocator) Dealloc(f FrameNum) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.recycled = append(a.recycled, f)
}

/// FreeCount reports the number of frames immediately available: the
/// recycled list plus whatever remains of the never-allocated range.
func (a *Allocator) FreeCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.recycled) + int(a.end-a.current)
}

func (a *Allocator) zero(f FrameNum) {
	idx := int(f - a.current0)
	for i := range a.backing[idx] {
		a.backing[idx][i] = 0
	}
}

/// Bytes returns the byte page backing frame f, for direct reads/writes
/// by the page-table walker and the user-memory translator.
func (a *Allocator) Bytes(f FrameNum) *[defs.PGSIZE]byte {
	a.mu.Lock()
	idx := int(f - a.current0)
	a.mu.Unlock()
	return &a.backing[idx]
}
