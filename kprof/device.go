package kprof

import (
	"sylvos/defs"
	"sylvos/fd"
)

/// TaskLister supplies the live task snapshot Device reads from; it is
/// satisfied by *proc.Manager without kprof importing proc (which would
/// cycle back through sched).
type TaskLister interface {
	AllTasks() []TaskCounters
}

/// Device is the D_PROF fd.Handle: a read-only stream of the
/// pprof-encoded profile built fresh on every first Read from the
/// current task snapshot. Writes are rejected. Each open of the device
/// gets its own Device (via Reopen), with its own snapshot.
type Device struct {
	lister TaskLister
	buf    []byte
	read   bool
}

/// NewDevice builds the D_PROF handle reading tasks through lister.
func NewDevice(lister TaskLister) *Device {
	return &Device{lister: lister}
}

/// Read serves the encoded profile as a single logical stream: the
/// first Read snapshots and encodes it, subsequent Reads drain the
/// buffered bytes, matching how a /proc-style file reads as a whole
/// document rather than a live byte range.
func (d *Device) Read(out []byte) (int, defs.Err_t) {
	if !d.read {
		prof := Build(d.lister.AllTasks())
		b, err := Encode(prof)
		if err != nil {
			return 0, defs.EFAULT
		}
		d.buf = b
		d.read = true
	}
	n := copy(out, d.buf)
	d.buf = d.buf[n:]
	return n, 0
}

/// Write is rejected; D_PROF is read-only.
func (d *Device) Write(buf []byte) (int, defs.Err_t) { return 0, defs.EINVAL }

/// Stat reports D_PROF's identity with no meaningful size or link
/// count.
func (d *Device) Stat(st fd.StatTarget) defs.Err_t {
	st.SetDev(defs.Mkdev(defs.D_PROF, 0))
	st.SetMode(0)
	st.SetNlink(1)
	return 0
}

func (d *Device) Close() defs.Err_t { return 0 }

/// Reopen hands back a fresh Device over the same lister so a forked
/// child re-snapshots on its own first read rather than sharing state.
func (d *Device) Reopen() (fd.Handle, defs.Err_t) {
	return NewDevice(d.lister), 0
}
