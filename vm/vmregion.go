// Package vm implements the per-process address space: the ordered list
// of map areas over a page table, the mmap/munmap path, and the
// user-memory translator. There is no copy-on-write; fork deep-copies
// the address space instead.
package vm

import (
	"sylvos/defs"
	"sylvos/mem"
)

/// Kind distinguishes an identity mapping (no owned frames; the area's
/// VPNs map 1:1 onto the same-numbered frames, used for the initial
/// kernel-reserved identity range) from a framed mapping (owns one
/// allocated frame per VPN).
type Kind int

const (
	Identity Kind = iota
	Framed
)

/// Area is a half-open VPN range with a permission set and map kind.
/// Framed areas own their frames; the invariant that map areas within
/// one address space never overlap in VPN is maintained by Vmregion.
type Area struct {
	Start uint64 // start VPN, inclusive
	End   uint64 // end VPN, exclusive
	Perms defs.Pa_t
	Kind  Kind

	// Frames holds one allocated frame per VPN in [Start, End) for a
	// Framed area, indexed by vpn-Start. Empty for Identity areas.
	Frames []mem.FrameNum
}

/// Len returns the number of pages the area spans.
func (a *Area) Len() uint64 { return a.End - a.Start }

/// Contains reports whether vpn lies within this area.
func (a *Area) Contains(vpn uint64) bool { return vpn >= a.Start && vpn < a.End }

/// Vmregion is the ordered list of map areas for one address space.
type Vmregion struct {
	areas []*Area
}

/// Insert adds area to the region list in start-VPN order. The caller is
/// responsible for verifying no overlap exists; insertFramedArea and
/// mmap both check before calling this.
func (r *Vmregion) Insert(a *Area) {
	i := 0
	for i < len(r.areas) && r.areas[i].Start < a.Start {
		i++
	}
	r.areas = append(r.areas, nil)
	copy(r.areas[i+1:], r.areas[i:])
	r.areas[i] = a
}

/// Lookup returns the area containing vpn, if any.
func (r *Vmregion) Lookup(vpn uint64) (*Area, bool) {
	for _, a := range r.areas {
		if a.Contains(vpn) {
			return a, true
		}
	}
	return nil, false
}

/// Overlaps reports whether any existing area intersects [start, end).
func (r *Vmregion) Overlaps(start, end uint64) bool {
	for _, a := range r.areas {
		if start < a.End && a.Start < end {
			return true
		}
	}
	return false
}

/// RemoveByStart removes and returns the area whose Start equals vpn.
func (r *Vmregion) RemoveByStart(vpn uint64) (*Area, bool) {
	for i, a := range r.areas {
		if a.Start == vpn {
			r.areas = append(r.areas[:i], r.areas[i+1:]...)
			return a, true
		}
	}
	return nil, false
}

/// FindExact returns the area whose [Start, End) exactly matches
/// [start, end), used by munmap's size-match requirement.
func (r *Vmregion) FindExact(start, end uint64) (*Area, bool) {
	for _, a := range r.areas {
		if a.Start == start && a.End == end {
			return a, true
		}
	}
	return nil, false
}

/// All returns every area, for clone and teardown.
func (r *Vmregion) All() []*Area { return r.areas }

/// Clear empties the region list, used when tearing down an address
/// space.
func (r *Vmregion) Clear() { r.areas = nil }
