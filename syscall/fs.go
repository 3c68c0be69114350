package syscall

import (
	"sylvos/defs"
	"sylvos/fd"
	"sylvos/sched"
	"sylvos/stat"
	"sylvos/ustr"
)

// profDevicePath is the reserved name sysOpen routes to the D_PROF
// device instead of the flat filesystem.
const profDevicePath = "dev/prof"

/// sysOpen implements open(path, flags): allocates the lowest unused fd
/// and installs the handle. The reserved path
/// "dev/prof" opens the profiling device instead of a filesystem file.
func (k *Kernel) sysOpen(cur *sched.Task_t, pathPtr uint64, flags int) int64 {
	path, terr := cur.AS.TranslateString(pathPtr)
	if terr != 0 {
		return -1
	}
	var h fd.Handle
	var err defs.Err_t
	if path == profDevicePath {
		h, err = k.Prof.Reopen()
	} else {
		h, err = k.Fs.Open(ustr.Ustr(path), flags)
	}
	if err != 0 {
		return -1
	}
	perms := fd.FD_READ | fd.FD_WRITE
	n := cur.Fds.Insert(&fd.Fd_t{Handle: h, Perms: perms})
	return int64(n)
}

/// sysClose implements close(fd): empties the fd slot, failing if
/// already empty.
func (k *Kernel) sysClose(cur *sched.Task_t, fdnum int) int {
	if err := cur.Fds.Close(fdnum); err != 0 {
		return -1
	}
	return 0
}

/// sysRead implements read(fd, buf, len): rejects a bad/unreadable fd,
/// otherwise scatter-reads into the translated user buffer.
func (k *Kernel) sysRead(cur *sched.Task_t, fdnum int, bufPtr uint64, length int) int64 {
	f, err := fdHandle(cur, fdnum)
	if err != 0 || !f.Readable() {
		return -1
	}
	bufs, terr := cur.AS.TranslateBuffer(bufPtr, length)
	if terr != 0 {
		return -1
	}
	var total int
	for _, b := range bufs {
		n, rerr := f.Handle.Read(b)
		total += n
		if rerr != 0 || n < len(b) {
			break
		}
	}
	return int64(total)
}

/// sysWrite implements write(fd, buf, len): rejects a bad/unwritable
/// fd, otherwise scatter-writes from the translated user buffer.
func (k *Kernel) sysWrite(cur *sched.Task_t, fdnum int, bufPtr uint64, length int) int64 {
	f, err := fdHandle(cur, fdnum)
	if err != 0 || !f.Writable() {
		return -1
	}
	bufs, terr := cur.AS.TranslateBuffer(bufPtr, length)
	if terr != 0 {
		return -1
	}
	var total int
	for _, b := range bufs {
		n, werr := f.Handle.Write(b)
		total += n
		if werr != 0 || n < len(b) {
			break
		}
	}
	return int64(total)
}

/// sysFstat implements fstat(fd, &Stat): fills Stat through the
/// handle's own Stat method, then scatter-writes it, since the
/// encoded struct may straddle a page boundary.
func (k *Kernel) sysFstat(cur *sched.Task_t, fdnum int, stPtr uint64) int64 {
	f, err := fdHandle(cur, fdnum)
	if err != 0 {
		return -1
	}
	var st stat.Stat_t
	if err := f.Handle.Stat(&st); err != 0 {
		return -1
	}
	if werr := cur.AS.WriteStruct(stPtr, &st); werr != 0 {
		return -1
	}
	return 0
}

/// sysLinkat implements linkat(old, new); name-equality rejection of
/// old == new is documented in fs.Fs_t.Linkat.
func (k *Kernel) sysLinkat(cur *sched.Task_t, oldPtr, newPtr uint64) int {
	old, err := cur.AS.TranslateString(oldPtr)
	if err != 0 {
		return -1
	}
	newPath, err := cur.AS.TranslateString(newPtr)
	if err != 0 {
		return -1
	}
	if ferr := k.Fs.Linkat(ustr.Ustr(old), ustr.Ustr(newPath)); ferr != 0 {
		return -1
	}
	return 0
}

/// sysUnlinkat implements unlinkat(name).
func (k *Kernel) sysUnlinkat(cur *sched.Task_t, namePtr uint64) int {
	name, err := cur.AS.TranslateString(namePtr)
	if err != 0 {
		return -1
	}
	if ferr := k.Fs.Unlinkat(ustr.Ustr(name)); ferr != 0 {
		return -1
	}
	return 0
}
