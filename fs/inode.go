package fs

import "sylvos/stat"

/// InodeID identifies an on-disk inode.
type InodeID uint64

/// inode is the in-memory representation of one on-disk inode: mode,
/// link count, and the byte contents, held as one in-memory slice. The
/// on-disk block layout (super-block, bitmaps, inode
/// area, data area) lives below this boundary; this core keeps inodes
/// resident and only touches Disk at Sync.
type inode struct {
	id    InodeID
	mode  uint32
	nlink uint32
	data  []byte
}

func newInode(id InodeID, mode uint32) *inode {
	return &inode{id: id, mode: mode, nlink: 0}
}

// fillStat populates st from this inode: dev, inode id, mode, and
// link count.
func (n *inode) fillStat(dev uint64, st *stat.Stat_t) {
	st.SetDev(dev)
	st.SetInodeID(uint64(n.id))
	st.SetMode(n.mode)
	st.SetNlink(n.nlink)
}
