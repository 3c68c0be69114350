package vm

import "sylvos/defs"

/// Mmap installs a new framed area of length bytes at startVA, rounding
/// length up to a whole number of pages. prot's low three bits select
/// permissions (bit 0 → R, bit 1 → W, bit 2 → X); PTE_U is added
/// internally. Rejects a non-page-aligned start, a prot with no bits set
/// in its low three or any bit set outside them, insufficient free
/// frames, or any VPN in the range already valid.
func (as *Vm_t) Mmap(startVA uint64, length int, prot int) defs.Err_t {
	if length <= 0 {
		return defs.EINVAL
	}
	if startVA&defs.PGMASK != 0 {
		return defs.EINVAL
	}
	if prot&^0x7 != 0 || prot&0x7 == 0 {
		return defs.EINVAL
	}
	var perms defs.Pa_t
	if prot&0x1 != 0 {
		perms |= defs.PTE_R
	}
	if prot&0x2 != 0 {
		perms |= defs.PTE_W
	}
	if prot&0x4 != 0 {
		perms |= defs.PTE_X
	}
	return as.InsertFramedArea(startVA, startVA+uint64(length), perms)
}

/// Munmap removes the framed area that starts exactly at startVA and
/// spans exactly length bytes (rounded up to whole pages). It fails if no
/// area matches both the start address and the size exactly: a partial
/// or offset unmap of a previously mapped area is rejected.
func (as *Vm_t) Munmap(startVA uint64, length int) defs.Err_t {
	if length <= 0 || startVA&defs.PGMASK != 0 {
		return defs.EINVAL
	}
	as.mu.Lock()
	startVPN := vpnOf(startVA)
	endVPN := vpnOf(pageAlignUp(startVA + uint64(length)))
	area, ok := as.Regions.FindExact(startVPN, endVPN)
	if !ok {
		as.mu.Unlock()
		return defs.EINVAL
	}
	as.mu.Unlock()
	return as.RemoveAreaByStart(vaOf(area.Start))
}
