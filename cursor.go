// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package jayo

// UnsafeCursor grants direct, in-place access to a Buffer's underlying
// segment data. It is an escape hatch for callers implementing their own
// codecs who cannot afford ReadByteArray's copy; as the name warns,
// holding one open across any call that mutates its source Buffer
// (including indirectly, via another BufferedReader/Writer sharing the
// same Buffer) is misuse and is detected, not prevented: Next/Seek/Close
// panic if the Buffer's generation counter has moved since the cursor was
// created.
type UnsafeCursor struct {
	// Data is the current segment's full backing slice. Only
	// Data[Start:End] is valid for this cursor to read (or, if writable is
	// true, to write); bytes outside that range may belong to other live
	// views of the same backing array.
	Data []byte
	// Start and End bound the valid region of Data for the segment the
	// cursor currently points at.
	Start, End int

	buf      *Buffer
	seg      *Segment
	offset   int64 // absolute offset into buf of the current segment's first readable byte
	writable bool
	gen      uint64
}

// readAt opens a cursor positioned to read starting at byte offset off.
func (b *Buffer) readAt(off int64) *UnsafeCursor {
	c := &UnsafeCursor{buf: b, gen: b.gen, offset: 0}
	c.seekTo(off)
	return c
}

// ReadUnsafe returns an UnsafeCursor for read-only access to b, positioned
// at the start of b's readable bytes. Growing b via the returned cursor's
// ResizeBuffer panics; only a cursor obtained from ReadAndWriteUnsafe may
// grow the buffer it was opened on.
func (b *Buffer) ReadUnsafe() *UnsafeCursor {
	return b.readAt(0)
}

// ReadAndWriteUnsafe returns an UnsafeCursor for read and write access to
// b, positioned past the end of b's current readable bytes. The cursor
// has no valid Data until ResizeBuffer grows b, at which point Data/Start/
// End bound the newly appended region, directly backed by segments drawn
// from the shared SegmentPool, for the caller to fill in place.
func (b *Buffer) ReadAndWriteUnsafe() *UnsafeCursor {
	c := &UnsafeCursor{buf: b, gen: b.gen, offset: 0, writable: true}
	c.seekTo(b.size)
	return c
}

func (c *UnsafeCursor) checkGen() {
	if c.gen != c.buf.gen {
		panic("jayo: UnsafeCursor used after its Buffer was mutated")
	}
}

func (c *UnsafeCursor) seekTo(off int64) {
	s := c.buf.head
	pos := off
	for s != nil && pos >= int64(s.len()) {
		pos -= int64(s.len())
		s = s.next
		if s == c.buf.head {
			s = nil
			break
		}
	}
	c.seg = s
	c.offset = off - pos
	if s == nil {
		c.Data, c.Start, c.End = nil, 0, 0
		return
	}
	c.Data = s.data
	c.Start = s.pos + int(pos)
	c.End = s.limit
}

// Seek repositions the cursor to absolute offset off within the Buffer's
// readable bytes and reports the number of bytes from off to the end of
// the Buffer.
func (c *UnsafeCursor) Seek(off int64) int64 {
	c.checkGen()
	if off < 0 || off > c.buf.size {
		panic("jayo: UnsafeCursor.Seek: offset out of range")
	}
	c.seekTo(off)
	return c.buf.size - off
}

// Next advances the cursor to the next segment and reports the number of
// bytes now available starting at Data[Start], or -1 if the Buffer is
// exhausted.
func (c *UnsafeCursor) Next() int64 {
	c.checkGen()
	if c.seg == nil {
		return -1
	}
	nextOffset := c.offset + int64(c.seg.len())
	if nextOffset >= c.buf.size {
		c.seg = nil
		c.Data, c.Start, c.End = nil, 0, 0
		return -1
	}
	c.seekTo(nextOffset)
	return int64(c.End - c.Start)
}

// ResizeBuffer grows or shrinks the cursor's Buffer to newSize bytes,
// repositioning the cursor at the start of whatever bytes were appended
// (when growing) and returning the Buffer's size before the resize.
func (c *UnsafeCursor) ResizeBuffer(newSize int64) int64 {
	c.checkGen()
	if newSize < 0 {
		panic("jayo: UnsafeCursor.ResizeBuffer: negative size")
	}
	oldSize := c.buf.size
	if newSize > oldSize && !c.writable {
		panic("jayo: UnsafeCursor.ResizeBuffer: cannot grow a read-only cursor; use ReadAndWriteUnsafe")
	}
	switch {
	case newSize > oldSize:
		grow := newSize - oldSize
		zeros := make([]byte, grow)
		c.buf.writeFixed(zeros)
		c.gen = c.buf.gen
		c.seekTo(oldSize)
	case newSize < oldSize:
		c.buf.truncateTail(oldSize - newSize)
		c.gen = c.buf.gen
		if newSize > 0 {
			c.seekTo(newSize - 1)
		} else {
			c.seg = nil
			c.Data, c.Start, c.End = nil, 0, 0
		}
	default:
		// no-op
	}
	return oldSize
}

// Close releases the cursor. Cursors hold no external resources; Close
// exists so callers can defer it uniformly and so a final generation check
// catches misuse that happened between the last Next/Seek and Close.
func (c *UnsafeCursor) Close() error {
	c.checkGen()
	c.buf = nil
	return nil
}
