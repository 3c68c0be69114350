package vm

import "sylvos/defs"

/// TranslatedBuffer is the list of per-page mutable byte slices a user
/// range decomposes into: a scatter representation that can cross an
/// arbitrary number of pages without ever handing back a slice that
/// straddles one.
type TranslatedBuffer [][]byte

/// TranslateBuffer walks [ptr, ptr+length) in as's address space and
/// returns one slice per page it spans, failing if any page in the
/// range is unmapped or lacks user access.
func (as *Vm_t) TranslateBuffer(ptr uint64, length int) (TranslatedBuffer, defs.Err_t) {
	as.mu.Lock()
	defer as.mu.Unlock()

	var bufs TranslatedBuffer
	remaining := length
	cur := ptr
	for remaining > 0 {
		vpn := vpnOf(cur)
		pte, ok := as.PT.Translate(vpn)
		if !ok || !pte.User() {
			return nil, defs.EFAULT
		}
		page := as.Alloc.Bytes(pte.Frame())
		off := int(cur & defs.PGMASK)
		n := defs.PGSIZE - off
		if n > remaining {
			n = remaining
		}
		bufs = append(bufs, page[off:off+n])
		cur += uint64(n)
		remaining -= n
	}
	return bufs, 0
}

/// TranslateString reads a NUL-terminated string starting at ptr,
/// crossing pages as needed.
func (as *Vm_t) TranslateString(ptr uint64) (string, defs.Err_t) {
	as.mu.Lock()
	defer as.mu.Unlock()

	var out []byte
	cur := ptr
	for {
		vpn := vpnOf(cur)
		pte, ok := as.PT.Translate(vpn)
		if !ok || !pte.User() {
			return "", defs.EFAULT
		}
		page := as.Alloc.Bytes(pte.Frame())
		off := int(cur & defs.PGMASK)
		for off < defs.PGSIZE {
			b := page[off]
			if b == 0 {
				return string(out), 0
			}
			out = append(out, b)
			off++
			cur++
		}
	}
}

// readBytes copies length bytes starting at ptr into a freshly
// allocated contiguous slice, reassembling across pages. Used by
// ReadStruct/WriteStruct below so that a straddling T is built up
// byte-wise instead of being accessed through a single *T pointer cast.
func (as *Vm_t) readBytes(ptr uint64, length int) ([]byte, defs.Err_t) {
	bufs, err := as.TranslateBuffer(ptr, length)
	if err != 0 {
		return nil, err
	}
	out := make([]byte, 0, length)
	for _, b := range bufs {
		out = append(out, b...)
	}
	return out, 0
}

// writeBytes scatters src across the pages backing [ptr, ptr+len(src)),
// the mirror of readBytes for values straddling a page boundary.
func (as *Vm_t) writeBytes(ptr uint64, src []byte) defs.Err_t {
	bufs, err := as.TranslateBuffer(ptr, len(src))
	if err != 0 {
		return err
	}
	off := 0
	for _, b := range bufs {
		off += copy(b, src[off:])
	}
	return 0
}

/// StructWriter is implemented by any fixed-layout value the syscall
/// layer copies out to user memory (TimeVal, TaskInfo, Stat). Encode must
/// produce exactly that value's packed wire layout.
type StructWriter interface {
	Encode() []byte
}

/// StructReader is the read-side counterpart, used where a syscall
/// copies a struct in from user memory.
type StructReader interface {
	Decode([]byte)
	Size() int
}

/// WriteStruct encodes v and scatter-writes it starting at ptr, safely
/// handling the case where v's encoded bytes straddle a page boundary
/// by reconstructing it byte-wise through a buffer rather than a single
/// pointer cast.
func (as *Vm_t) WriteStruct(ptr uint64, v StructWriter) defs.Err_t {
	return as.writeBytes(ptr, v.Encode())
}

/// ReadStruct decodes a value of the layout v describes from user memory
/// starting at ptr, reassembling across a page straddle the same way.
func (as *Vm_t) ReadStruct(ptr uint64, v StructReader) defs.Err_t {
	b, err := as.readBytes(ptr, v.Size())
	if err != 0 {
		return err
	}
	v.Decode(b)
	return 0
}
