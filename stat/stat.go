// Package stat defines the Stat_t wire layout returned by sys_fstat: a
// packed struct exposing its raw bytes for copy-out, in a fixed packed
// layout.
package stat

import "encoding/binary"

/// File mode values.
const (
	ModeFile = 0o100000
	ModeDir  = 0o040000
)

// Size is the packed wire size: dev(8) + inode_id(8) + mode(4) + nlink(4)
// + pad[7]u64(56) = 80 bytes.
const Size = 8 + 8 + 4 + 4 + 7*8

/// Stat_t is the packed layout: dev: u64, inode_id: u64, mode: u32,
/// nlink: u32, pad: [u64; 7].
type Stat_t struct {
	Dev     uint64
	InodeID uint64
	Mode    uint32
	Nlink   uint32
}

/// Encode serializes the struct in its packed wire layout, little-endian,
/// for the scatter translator, since a Stat_t may straddle a page
/// boundary in user memory.
func (st *Stat_t) Encode() []byte {
	b := make([]byte, Size)
	binary.LittleEndian.PutUint64(b[0:8], st.Dev)
	binary.LittleEndian.PutUint64(b[8:16], st.InodeID)
	binary.LittleEndian.PutUint32(b[16:20], st.Mode)
	binary.LittleEndian.PutUint32(b[20:24], st.Nlink)
	// b[24:80] is the pad[7]u64 field; left zero.
	return b
}

/// Size returns the packed wire size, satisfying vm.StructReader.
func (st *Stat_t) Size() int { return Size }

/// SetDev, SetInodeID, SetMode, and SetNlink satisfy fd.StatTarget, used
/// by a Handle.Stat implementation to populate this value without fd
/// importing the stat package directly.
func (st *Stat_t) SetDev(v uint64)     { st.Dev = v }
func (st *Stat_t) SetInodeID(v uint64) { st.InodeID = v }
func (st *Stat_t) SetMode(v uint32)    { st.Mode = v }
func (st *Stat_t) SetNlink(v uint32)   { st.Nlink = v }

/// Decode populates the struct from its packed wire layout.
func (st *Stat_t) Decode(b []byte) {
	st.Dev = binary.LittleEndian.Uint64(b[0:8])
	st.InodeID = binary.LittleEndian.Uint64(b[8:16])
	st.Mode = binary.LittleEndian.Uint32(b[16:20])
	st.Nlink = binary.LittleEndian.Uint32(b[20:24])
}
