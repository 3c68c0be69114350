package fs

import (
	"sync"

	"sylvos/defs"
	"sylvos/fd"
	"sylvos/stat"
	"sylvos/ustr"
)

/// OpenFlags distinguish create from open-existing for open(path, flags).
const (
	OCreate = 0x1
)

/// Fs_t is the flat, single-directory filesystem: a root inode, an
/// inode table, and the backing Disk collaborator, narrowed to a
/// single directory with no path traversal.
type Fs_t struct {
	mu sync.Mutex

	disk   Disk
	dev    uint64
	dir    rootDir
	inodes map[InodeID]*inode
	nextID InodeID
}

/// NewFs builds an empty filesystem backed by disk, identified by dev
/// for Stat's dev field (a Mkdev-encoded device id).
func NewFs(disk Disk, dev uint64) *Fs_t {
	return &Fs_t{disk: disk, dev: dev, inodes: make(map[InodeID]*inode)}
}

// lookupLocked finds the directory entry and inode for name. Callers
// hold fs.mu.
func (fs *Fs_t) lookupLocked(name ustr.Ustr) (*inode, bool) {
	i, ok := fs.dir.find(name)
	if !ok {
		return nil, false
	}
	n, ok := fs.inodes[InodeID(fs.dir.entries[i].inodeID)]
	return n, ok
}

/// Open resolves path to its inode and returns a new handle on it; the
/// create flag allocates a fresh inode if the name doesn't already
/// exist. Returns a Handle suitable
/// for fd.Table.Insert, not the fd number itself (the caller's fd table
/// owns slot allocation).
func (fs *Fs_t) Open(path ustr.Ustr, flags int) (fd.Handle, defs.Err_t) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	n, ok := fs.lookupLocked(path)
	if !ok {
		if flags&OCreate == 0 {
			return nil, defs.ENOENT
		}
		fs.nextID++
		n = newInode(fs.nextID, uint32(stat.ModeFile))
		n.nlink = 1
		fs.inodes[n.id] = n
		if !fs.dir.append(path, n.id) {
			return nil, defs.ENAMETOOLONG
		}
	}
	return &fileHandle{fs: fs, node: n, refs: new(int32)}, 0
}

/// Linkat finds old's inode, increments its nlink, appends a directory
/// entry (new, inode_id), and syncs. It compares old and new by name
/// since there is no pointer identity to compare at this layer, and
/// name equality is the only equality that can actually alias the same
/// file within one flat directory.
func (fs *Fs_t) Linkat(old, new ustr.Ustr) defs.Err_t {
	if old.Eq(new) {
		return defs.EINVAL
	}
	fs.mu.Lock()
	n, ok := fs.lookupLocked(old)
	if !ok {
		fs.mu.Unlock()
		return defs.ENOENT
	}
	if _, exists := fs.dir.find(new); exists {
		fs.mu.Unlock()
		return defs.EEXIST
	}
	n.nlink++
	if !fs.dir.append(new, n.id) {
		n.nlink--
		fs.mu.Unlock()
		return defs.ENAMETOOLONG
	}
	fs.mu.Unlock()
	fs.disk.SyncAll()
	return 0
}

/// Unlinkat rebuilds the root directory without that entry, decrements
/// the target inode's nlink,
/// and frees its data blocks (here: drops it from the inode table) when
/// nlink reaches zero.
func (fs *Fs_t) Unlinkat(name ustr.Ustr) defs.Err_t {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	i, ok := fs.dir.find(name)
	if !ok {
		return defs.ENOENT
	}
	n := fs.inodes[InodeID(fs.dir.entries[i].inodeID)]
	fs.dir.removeAt(i)
	n.nlink--
	if n.nlink == 0 {
		delete(fs.inodes, n.id)
	}
	return 0
}

/// fileHandle is the fd.Handle implementation for an open file: a
/// pointer into the parent Fs_t's inode table plus a private read/write
/// offset. refs is shared across Reopen'd copies so Close only matters
/// to diagnostics, not data lifetime (nlink governs that).
type fileHandle struct {
	fs   *Fs_t
	node *inode
	off  int
	refs *int32
}

func (h *fileHandle) Read(buf []byte) (int, defs.Err_t) {
	h.fs.mu.Lock()
	defer h.fs.mu.Unlock()
	if h.off >= len(h.node.data) {
		return 0, 0
	}
	n := copy(buf, h.node.data[h.off:])
	h.off += n
	return n, 0
}

func (h *fileHandle) Write(buf []byte) (int, defs.Err_t) {
	h.fs.mu.Lock()
	defer h.fs.mu.Unlock()
	end := h.off + len(buf)
	if end > len(h.node.data) {
		grown := make([]byte, end)
		copy(grown, h.node.data)
		h.node.data = grown
	}
	n := copy(h.node.data[h.off:end], buf)
	h.off += n
	return n, 0
}

func (h *fileHandle) Stat(st fd.StatTarget) defs.Err_t {
	h.fs.mu.Lock()
	defer h.fs.mu.Unlock()
	st.SetDev(h.fs.dev)
	st.SetInodeID(uint64(h.node.id))
	st.SetMode(h.node.mode)
	st.SetNlink(h.node.nlink)
	return 0
}

func (h *fileHandle) Close() defs.Err_t { return 0 }

func (h *fileHandle) Reopen() (fd.Handle, defs.Err_t) {
	return &fileHandle{fs: h.fs, node: h.node, off: h.off, refs: h.refs}, 0
}
