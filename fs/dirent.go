package fs

import "sylvos/ustr"

// dirEntrySize is the fixed 32-byte on-disk directory entry size: a
// 28-byte null-padded name field (27 usable bytes plus a NUL
// terminator) plus a 4-byte little-endian inode id.
const (
	dirEntrySize = 32
	nameFieldLen = 28
)

type dirEntry struct {
	name    [nameFieldLen]byte
	inodeID uint32
}

func mkDirEntry(name ustr.Ustr, id InodeID) (dirEntry, bool) {
	if len(name) > nameFieldLen-1 {
		return dirEntry{}, false
	}
	var de dirEntry
	copy(de.name[:], name)
	de.inodeID = uint32(id)
	return de, true
}

func (de *dirEntry) Name() ustr.Ustr {
	i := 0
	for i < len(de.name) && de.name[i] != 0 {
		i++
	}
	return ustr.MkUstrSlice(de.name[:i])
}

/// rootDir is the flat array of directory entries that makes up the
/// single root directory, traversed sequentially on lookup.
type rootDir struct {
	entries []dirEntry
}

func (d *rootDir) find(name ustr.Ustr) (int, bool) {
	for i := range d.entries {
		if d.entries[i].Name().Eq(name) {
			return i, true
		}
	}
	return 0, false
}

func (d *rootDir) append(name ustr.Ustr, id InodeID) bool {
	de, ok := mkDirEntry(name, id)
	if !ok {
		return false
	}
	d.entries = append(d.entries, de)
	return true
}

func (d *rootDir) removeAt(i int) {
	d.entries = append(d.entries[:i], d.entries[i+1:]...)
}
