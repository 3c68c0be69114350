package mem

import (
	"unsafe"

	"sylvos/defs"
)

/// PTE is a page table entry: frame number in the high bits, flags in
/// the low bits: Valid, Readable, Writable, eXecutable, User, Accessed,
/// Dirty.
type PTE uint64

const flagBits = 12 // low 12 bits of a PTE hold flags; frame number above that

/// Valid reports whether the Valid flag is set.
func (p PTE) Valid() bool      { return p&PTE(defs.PTE_V) != 0 }
func (p PTE) Readable() bool   { return p&PTE(defs.PTE_R) != 0 }
func (p PTE) Writable() bool   { return p&PTE(defs.PTE_W) != 0 }
func (p PTE) Executable() bool { return p&PTE(defs.PTE_X) != 0 }
func (p PTE) User() bool       { return p&PTE(defs.PTE_U) != 0 }
func (p PTE) Accessed() bool   { return p&PTE(defs.PTE_A) != 0 }
func (p PTE) Dirty() bool      { return p&PTE(defs.PTE_D) != 0 }

/// Frame extracts the frame number encoded in the PTE.
func (p PTE) Frame() FrameNum { return FrameNum(uint64(p) >> flagBits) }

func mkpte(f FrameNum, flags defs.Pa_t) PTE {
	return PTE(uint64(f)<<flagBits | uint64(flags))
}

const (
	vpnLevelBits = 9
	vpnLevelMask = (1 << vpnLevelBits) - 1
	vpnLevels    = 3
)

/// index returns the lvl-th 9-bit slice of vpn, lvl 0 being the
/// innermost (leaf) level of a three-level tree indexed by 9-bit
/// slices of a virtual page number.
func index(vpn uint64, lvl int) int {
	return int((vpn >> uint(lvl*vpnLevelBits)) & vpnLevelMask)
}

/// PageTable is a 3-level hierarchical page table rooted at a physical
/// frame allocated from an Allocator.
type PageTable struct {
	alloc *Allocator
	root  FrameNum
}

/// NewPageTable allocates a fresh, empty root frame for a page table.
func NewPageTable(alloc *Allocator) (*PageTable, defs.Err_t) {
	root, err := alloc.Alloc()
	if err != 0 {
		return nil, err
	}
	return &PageTable{alloc: alloc, root: root}, 0
}

/// Token returns the opaque root-frame handle installed in the MMU on
/// context switch.
func (pt *PageTable) Token() FrameNum { return pt.root }

// ptesOf reinterprets a frame's backing byte page as an array of 512
// PTEs: a byte-page/typed-page duality over the same backing storage.
func ptesOf(alloc *Allocator, f FrameNum) *[512]PTE {
	b := alloc.Bytes(f)
	return (*[512]PTE)(unsafe.Pointer(b))
}

/// walk descends the 3-level tree for vpn, allocating intermediate frames
/// as it goes when alloc is true. It returns a pointer to the leaf PTE.
func (pt *PageTable) walk(vpn uint64, alloc bool) (*PTE, defs.Err_t) {
	cur := pt.root
	for lvl := vpnLevels - 1; lvl > 0; lvl-- {
		tbl := ptesOf(pt.alloc, cur)
		i := index(vpn, lvl)
		pte := &tbl[i]
		if !pte.Valid() {
			if !alloc {
				return nil, defs.ENOMEM
			}
			nf, err := pt.alloc.Alloc()
			if err != 0 {
				return nil, err
			}
			*pte = mkpte(nf, defs.PTE_V)
		}
		cur = pte.Frame()
	}
	leaf := ptesOf(pt.alloc, cur)
	return &leaf[index(vpn, 0)], 0
}

/// Map installs a leaf PTE for vpn pointing at frame with the given flags.
/// It fails if the leaf is already valid.
func (pt *PageTable) Map(vpn uint64, frame FrameNum, flags defs.Pa_t) defs.Err_t {
	pte, err := pt.walk(vpn, true)
	if err != 0 {
		return err
	}
	if pte.Valid() {
		return defs.EEXIST
	}
	*pte = mkpte(frame, flags|defs.PTE_V)
	return 0
}

/// Unmap clears the leaf PTE for vpn. It fails if not valid. Intermediate
/// tables are never pruned: an acceptable leak bounded by address-space
/// size.
func (pt *PageTable) Unmap(vpn uint64) defs.Err_t {
	pte, err := pt.walk(vpn, false)
	if err != 0 {
		return defs.EINVAL
	}
	if !pte.Valid() {
		return defs.EINVAL
	}
	*pte = 0
	return 0
}

/// Translate returns the leaf PTE for vpn by value, or ok=false if there
/// is no valid mapping.
func (pt *PageTable) Translate(vpn uint64) (PTE, bool) {
	pte, err := pt.walk(vpn, false)
	if err != 0 || !pte.Valid() {
		return 0, false
	}
	return *pte, true
}

/// FindPTE returns a pointer to the leaf PTE for vpn for internal use by
/// vm, without allocating intermediate tables.
func (pt *PageTable) FindPTE(vpn uint64) *PTE {
	pte, err := pt.walk(vpn, false)
	if err != 0 {
		return nil
	}
	return pte
}
