package vm

import (
	"sync"

	"sylvos/defs"
	"sylvos/mem"
	"sylvos/util"
)

/// Vm_t represents a process address space: a root page table, the
/// ordered list of map areas over it, and the heap-break VPN. The
/// embedded mutex guards Regions and the page table; plain Lock/Unlock
/// since Go's sync.Mutex needs no page-fault-taken bookkeeping (this
/// core has no concurrent kernel path to race with).
type Vm_t struct {
	mu sync.Mutex

	PT      *mem.PageTable
	Alloc   *mem.Allocator
	Regions Vmregion

	// brkVPN is the page holding the current heap break; origBrkVPN is
	// the break set by FromELF, below which ChangeBrk never shrinks.
	brkVPN     uint64
	origBrkVPN uint64
}

/// NewAddrSpace allocates an empty address space backed by alloc.
func NewAddrSpace(alloc *mem.Allocator) (*Vm_t, defs.Err_t) {
	pt, err := mem.NewPageTable(alloc)
	if err != 0 {
		return nil, err
	}
	return &Vm_t{PT: pt, Alloc: alloc}, 0
}

func vpnOf(va uint64) uint64   { return va >> defs.PGSHIFT }
func vaOf(vpn uint64) uint64   { return vpn << defs.PGSHIFT }
func pageAlign(va uint64) uint64 {
	return uint64(util.Rounddown(int(va), defs.PGSIZE))
}
func pageAlignUp(va uint64) uint64 {
	return uint64(util.Roundup(int(va), defs.PGSIZE))
}

/// InsertFramedArea rounds start down and end up to page boundaries,
/// allocates a frame per VPN, and maps them with User|perms. It fails if
/// any VPN in the resulting range already has a valid PTE.
func (as *Vm_t) InsertFramedArea(startVA, endVA uint64, perms defs.Pa_t) defs.Err_t {
	as.mu.Lock()
	defer as.mu.Unlock()

	start := vpnOf(pageAlign(startVA))
	end := vpnOf(pageAlignUp(endVA))
	if as.Regions.Overlaps(start, end) {
		return defs.EEXIST
	}

	area := &Area{Start: start, End: end, Perms: perms | defs.PTE_U, Kind: Framed}
	for vpn := start; vpn < end; vpn++ {
		f, err := as.Alloc.Alloc()
		if err != 0 {
			as.unmapPartial(area)
			return err
		}
		if err := as.PT.Map(vpn, f, area.Perms); err != 0 {
			as.Alloc.Dealloc(f)
			as.unmapPartial(area)
			return err
		}
		area.Frames = append(area.Frames, f)
	}
	as.Regions.Insert(area)
	return 0
}

func (as *Vm_t) freeFrames(frames []mem.FrameNum) {
	for _, f := range frames {
		as.Alloc.Dealloc(f)
	}
}

// unmapPartial undoes the VPNs of area already committed to the page table
// (area.Frames[i] maps area.Start+i), for an area that never made it into
// Regions. Leaving those PTEs Valid while their frames go back to the free
// list would let a later Alloc hand the same frame to an unrelated mapping.
func (as *Vm_t) unmapPartial(area *Area) {
	for i, f := range area.Frames {
		as.PT.Unmap(area.Start + uint64(i))
		as.Alloc.Dealloc(f)
	}
	area.Frames = nil
}

/// RemoveAreaByStart removes the map area whose start equals startVA and
/// unmaps every VPN in its range, freeing its frames. It fails if no such
/// area exists.
func (as *Vm_t) RemoveAreaByStart(startVA uint64) defs.Err_t {
	as.mu.Lock()
	defer as.mu.Unlock()
	return as.removeAreaByStartVPN(vpnOf(startVA))
}

func (as *Vm_t) removeAreaByStartVPN(startVPN uint64) defs.Err_t {
	area, ok := as.Regions.RemoveByStart(startVPN)
	if !ok {
		return defs.EINVAL
	}
	as.unmapArea(area)
	return 0
}

func (as *Vm_t) unmapArea(area *Area) {
	for vpn := area.Start; vpn < area.End; vpn++ {
		as.PT.Unmap(vpn)
	}
	if area.Kind == Framed {
		as.freeFrames(area.Frames)
	}
}

/// Segment describes one piece of a parsed application image: a virtual
/// address range, its initial bytes (zero-padded to a full page if
/// shorter than the mapped range, i.e. the BSS tail), and its
/// permissions. Binary parsing itself is an external collaborator;
/// Segment is the interface boundary FromELF assumes a loader provides.
type Segment struct {
	VA    uint64
	Data  []byte
	Perms defs.Pa_t
}

/// Image is produced by the external ELF loader.
type Image struct {
	Segments []Segment
	EntryVA  uint64
}

const (
	userStackPages = 2
	// TrapContextVA is a fixed high virtual address holding the saved
	// user register file across a trap, mapped just below the top of
	// the address space.
	TrapContextVA = 1<<38 - defs.PGSIZE
	userStackTop  = TrapContextVA
)

/// FromELF installs the code/data/BSS segments of img plus a user stack
/// and a trap-context page at fixed high addresses. It returns the new
/// address space, the entry VA, and the initial user stack pointer.
func FromELF(alloc *mem.Allocator, img *Image) (*Vm_t, uint64, uint64, defs.Err_t) {
	as, err := NewAddrSpace(alloc)
	if err != 0 {
		return nil, 0, 0, err
	}
	var maxEnd uint64
	for _, seg := range img.Segments {
		end := seg.VA + uint64(len(seg.Data))
		if err := as.mapSegment(seg); err != 0 {
			return nil, 0, 0, err
		}
		if pageAlignUp(end) > maxEnd {
			maxEnd = pageAlignUp(end)
		}
	}
	as.brkVPN = vpnOf(maxEnd)
	as.origBrkVPN = as.brkVPN

	stackTop := uint64(userStackTop)
	stackBottom := stackTop - userStackPages*defs.PGSIZE
	if err := as.InsertFramedArea(stackBottom, stackTop, defs.PTE_R|defs.PTE_W); err != 0 {
		return nil, 0, 0, err
	}
	if err := as.InsertFramedArea(TrapContextVA, TrapContextVA+defs.PGSIZE, defs.PTE_R|defs.PTE_W); err != 0 {
		return nil, 0, 0, err
	}
	return as, img.EntryVA, stackTop, 0
}

func (as *Vm_t) mapSegment(seg Segment) defs.Err_t {
	start := pageAlign(seg.VA)
	end := pageAlignUp(seg.VA + uint64(len(seg.Data)))
	if end == start {
		end = start + defs.PGSIZE
	}
	if err := as.InsertFramedArea(start, end, seg.Perms); err != 0 {
		return err
	}
	// copy initial bytes page by page
	off := 0
	for vpn := vpnOf(start); vpn < vpnOf(end); vpn++ {
		pte, ok := as.PT.Translate(vpn)
		if !ok {
			return defs.ENOMEM
		}
		page := as.Alloc.Bytes(pte.Frame())
		pageOff := 0
		if vpn == vpnOf(start) {
			pageOff = int(seg.VA - start)
		}
		n := copy(page[pageOff:], seg.Data[off:])
		off += n
	}
	return 0
}

/// CloneDeep produces a deep copy of the address space: every framed
/// area is duplicated with a freshly allocated frame per page and data
/// memcpy'd. No copy-on-write is implemented.
func (as *Vm_t) CloneDeep() (*Vm_t, defs.Err_t) {
	as.mu.Lock()
	defer as.mu.Unlock()

	child, err := NewAddrSpace(as.Alloc)
	if err != 0 {
		return nil, err
	}
	child.brkVPN = as.brkVPN
	child.origBrkVPN = as.origBrkVPN

	for _, area := range as.Regions.All() {
		na := &Area{Start: area.Start, End: area.End, Perms: area.Perms, Kind: area.Kind}
		if area.Kind == Framed {
			for vpn := area.Start; vpn < area.End; vpn++ {
				nf, err := as.Alloc.Alloc()
				if err != 0 {
					child.unmapPartial(na)
					child.Free()
					return nil, err
				}
				srcPTE, _ := as.PT.Translate(vpn)
				copy(as.Alloc.Bytes(nf)[:], as.Alloc.Bytes(srcPTE.Frame())[:])
				if merr := child.PT.Map(vpn, nf, area.Perms); merr != 0 {
					as.Alloc.Dealloc(nf)
					child.unmapPartial(na)
					child.Free()
					return nil, merr
				}
				na.Frames = append(na.Frames, nf)
			}
		}
		child.Regions.Insert(na)
	}
	return child, 0
}

/// ChangeBrk grows or shrinks the heap area by delta bytes (signed),
/// returning the break VA before the change. It fails if the new break
/// would cross an existing area or go below the original break: a
/// shrink past old_brk underflowing the original break is rejected.
func (as *Vm_t) ChangeBrk(delta int) (oldBrkVA uint64, err defs.Err_t) {
	as.mu.Lock()
	defer as.mu.Unlock()

	oldBrkVA = vaOf(as.brkVPN)
	newBrkVA := int64(oldBrkVA) + int64(delta)
	if newBrkVA < int64(vaOf(as.origBrkVPN)) {
		return 0, defs.EINVAL
	}
	newBrkVPN := vpnOf(pageAlignUp(uint64(newBrkVA)))
	oldBrkVPN := vpnOf(pageAlignUp(oldBrkVA))

	if newBrkVPN > oldBrkVPN {
		if as.Regions.Overlaps(oldBrkVPN, newBrkVPN) {
			return 0, defs.EINVAL
		}
		area := &Area{Start: oldBrkVPN, End: newBrkVPN, Perms: defs.PTE_R | defs.PTE_W | defs.PTE_U, Kind: Framed}
		for vpn := oldBrkVPN; vpn < newBrkVPN; vpn++ {
			f, aerr := as.Alloc.Alloc()
			if aerr != 0 {
				as.unmapPartial(area)
				return 0, aerr
			}
			if merr := as.PT.Map(vpn, f, area.Perms); merr != 0 {
				as.Alloc.Dealloc(f)
				as.unmapPartial(area)
				return 0, merr
			}
			area.Frames = append(area.Frames, f)
		}
		as.Regions.Insert(area)
	} else if newBrkVPN < oldBrkVPN {
		for vpn := newBrkVPN; vpn < oldBrkVPN; vpn++ {
			if a, ok := as.Regions.Lookup(vpn); ok && a.Start == newBrkVPN {
				as.unmapArea(a)
				as.Regions.RemoveByStart(a.Start)
				break
			}
		}
	}
	as.brkVPN = uint64(newBrkVA) >> defs.PGSHIFT
	if uint64(newBrkVA)&defs.PGMASK != 0 {
		// brkVPN tracks the page containing the break; fractional
		// pages within it remain mapped from the area above.
	}
	return oldBrkVA, 0
}

/// Free releases all user mappings and frames associated with this
/// address space, called when the task exits or its image is replaced
/// by exec.
func (as *Vm_t) Free() {
	as.mu.Lock()
	defer as.mu.Unlock()
	for _, a := range as.Regions.All() {
		as.unmapArea(a)
	}
	as.Regions.Clear()
}

/// Lock / Unlock expose the address-space mutex to callers (fork,
/// page-fault handling) that must hold it across a multi-step operation.
func (as *Vm_t) Lock()   { as.mu.Lock() }
func (as *Vm_t) Unlock() { as.mu.Unlock() }
