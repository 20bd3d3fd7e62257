// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package jayo

import (
	"encoding/binary"

	"code.hybscloud.com/jayo/internal/digits"
)

// Buffer is a logically unbounded deque of bytes, stored as a ring of
// fixed-capacity Segments. Buffer is not safe for concurrent use: like the
// rest of the core, it has exactly one logical owner at a time.
//
// The zero Buffer is empty and ready to use.
type Buffer struct {
	head *Segment
	size int64

	// gen increments on every structural mutation (anything that adds,
	// removes, splits, or shares a segment, or changes pos/limit). It
	// exists solely so UnsafeCursor can detect being held across a
	// mutating call.
	gen uint64
}

// ByteSize returns the number of unread bytes currently buffered.
func (b *Buffer) ByteSize() int64 { return b.size }

func (b *Buffer) tail() *Segment {
	if b.head == nil {
		return nil
	}
	return b.head.prev
}

// appendSegment links a detached segment (next == prev == nil) onto the
// tail of b's ring.
func (b *Buffer) appendSegment(s *Segment) {
	if b.head == nil {
		s.next = s
		s.prev = s
		b.head = s
		return
	}
	b.head.prev.push(s)
}

// writableTail returns a segment owned by b with at least minCapacity
// writable bytes, compacting or appending a fresh pooled segment as
// needed.
func (b *Buffer) writableTail(minCapacity int) *Segment {
	t := b.tail()
	if t != nil && t.owner {
		if t.writableCapacity() < minCapacity {
			t.compact()
		}
		if t.writableCapacity() >= minCapacity {
			return t
		}
	}
	s := segPool.take()
	b.appendSegment(s)
	return s
}

// writeFixed appends all of p to b's tail chain, spanning multiple
// segments as needed. Every append path (Write, WriteByte, the fixed-width
// integer writers, WriteUtf8...) funnels through here.
func (b *Buffer) writeFixed(p []byte) {
	written := 0
	for written < len(p) {
		tail := b.writableTail(1)
		n := copy(tail.data[tail.limit:SegmentSize], p[written:])
		tail.limit += n
		written += n
	}
	b.size += int64(len(p))
	b.gen++
}

// Write implements io.Writer: it appends all of p and never fails.
func (b *Buffer) Write(p []byte) (int, error) {
	b.writeFixed(p)
	return len(p), nil
}

// WriteByte appends a single byte.
func (b *Buffer) WriteByte(c byte) error {
	b.writeFixed([]byte{c})
	return nil
}

// WriteShort appends v as 2 bytes, big-endian.
func (b *Buffer) WriteShort(v int16) error {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], uint16(v))
	b.writeFixed(buf[:])
	return nil
}

// WriteInt appends v as 4 bytes, big-endian.
func (b *Buffer) WriteInt(v int32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(v))
	b.writeFixed(buf[:])
	return nil
}

// WriteLong appends v as 8 bytes, big-endian.
func (b *Buffer) WriteLong(v int64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	b.writeFixed(buf[:])
	return nil
}

// WriteDecimalLong appends the base-10 ASCII representation of v,
// including a leading '-' for negative values. No leading zeros (other
// than the single digit "0" for v == 0) are written.
func (b *Buffer) WriteDecimalLong(v int64) {
	if v == 0 {
		b.writeFixed([]byte{'0'})
		return
	}
	var tmp [20]byte // "-9223372036854775808" is 20 bytes
	i := len(tmp)
	neg := v < 0
	var u uint64
	if neg {
		// v+1 never overflows int64 even when v is math.MinInt64; negating
		// that and adding 1 back yields the magnitude without overflow.
		u = uint64(-(v + 1)) + 1
	} else {
		u = uint64(v)
	}
	for u > 0 {
		i--
		tmp[i] = byte('0' + u%10)
		u /= 10
	}
	if neg {
		i--
		tmp[i] = '-'
	}
	b.writeFixed(tmp[i:])
}

// WriteHexUnsignedLong appends the lowercase hexadecimal representation of
// v with no leading zeros (other than the single digit "0" for v == 0) and
// no "0x" prefix.
func (b *Buffer) WriteHexUnsignedLong(v uint64) {
	if v == 0 {
		b.writeFixed([]byte{'0'})
		return
	}
	var tmp [16]byte
	i := len(tmp)
	for v > 0 {
		i--
		tmp[i] = digits.Hex[v&0xf]
		v >>= 4
	}
	b.writeFixed(tmp[i:])
}

// WriteUtf8 appends s's UTF-8 bytes (Go strings are already UTF-8, so this
// is a direct byte copy).
func (b *Buffer) WriteUtf8(s string) (int, error) {
	b.writeFixed([]byte(s))
	return len(s), nil
}

// WriteUtf8Range appends length bytes of s's UTF-8 encoding starting at
// byte offset off.
func (b *Buffer) WriteUtf8Range(s string, off, length int) (int, error) {
	if off < 0 || length < 0 || off+length > len(s) {
		return 0, errInvalidArgument("writeUtf8")
	}
	b.writeFixed([]byte(s[off : off+length]))
	return length, nil
}

// Read moves up to byteCount bytes from b to dst, returning the number of
// bytes moved. It returns -1 (and moves nothing) only when b is already
// empty; for byteCount == 0 on a non-empty b it returns 0. At most one
// partial segment (the last one contributing to the moved range) is split;
// whole segments are relinked into dst's ring without copying, unless they
// fit into dst's existing writable tail, in which case the bytes are
// copied in place and the now-empty source segment is recycled.
func (b *Buffer) Read(dst *Buffer, byteCount int64) (int64, error) {
	if byteCount < 0 {
		return 0, errInvalidArgument("read")
	}
	if b.size == 0 {
		return -1, nil
	}
	if byteCount == 0 {
		return 0, nil
	}
	if byteCount > b.size {
		byteCount = b.size
	}

	var moved int64
	for moved < byteCount {
		s := b.head
		take := int64(s.len())
		if take > byteCount-moved {
			take = byteCount - moved
		}
		if take == int64(s.len()) {
			b.transferWholeSegment(dst, s)
		} else {
			prefix := s.split(int(take))
			dst.appendSegment(prefix)
		}
		moved += take
	}
	b.size -= moved
	dst.size += moved
	b.gen++
	dst.gen++
	return moved, nil
}

// transferWholeSegment moves segment s (currently b.head) to dst,
// preferring to copy its bytes into dst's existing writable tail over
// relinking a new ring node, exactly as Segment.writeTo documents.
func (b *Buffer) transferWholeSegment(dst *Buffer, s *Segment) {
	take := s.len()
	dstTail := dst.tail()
	fits := dstTail != nil && dstTail.owner &&
		(take <= dstTail.writableCapacity() ||
			(dstTail.pos > 0 && take <= SegmentSize-(dstTail.limit-dstTail.pos)))

	next := s.pop()
	if s == b.head {
		b.head = next
	}

	if fits {
		s.writeTo(dstTail, take)
		segPool.recycle(s)
		return
	}
	dst.appendSegment(s)
}

// CopyTo copies byteCount bytes starting at offset into dst without
// consuming them from b. Segments fully contained in the copied range are
// shared (copy-free); a partial leading or trailing segment is copied into
// a small fresh pooled segment.
func (b *Buffer) CopyTo(dst *Buffer, offset, byteCount int64) error {
	if offset < 0 || byteCount < 0 || offset+byteCount > b.size {
		return errInvalidArgument("copyTo")
	}
	if byteCount == 0 {
		return nil
	}

	s := b.head
	pos := offset
	for pos >= int64(s.len()) {
		pos -= int64(s.len())
		s = s.next
	}

	remaining := byteCount
	for remaining > 0 {
		avail := int64(s.len()) - pos
		take := avail
		if take > remaining {
			take = remaining
		}
		if pos == 0 && take == int64(s.len()) {
			view := s.sharedCopy()
			dst.appendSegment(view)
		} else {
			seg := segPool.take()
			n := copy(seg.data[:take], s.data[s.pos+int(pos):s.pos+int(pos)+int(take)])
			seg.limit = n
			dst.appendSegment(seg)
		}
		dst.size += take
		remaining -= take
		pos = 0
		s = s.next
	}
	dst.gen++
	return nil
}

// completeSegmentsByteSize returns how many of b's buffered bytes belong to
// full SegmentSize segments, excluding a final partial owner tail segment
// (if any). BufferedWriter.EmitCompleteSegments uses this to hand raw
// exactly the complete segments without splitting the segment still being
// appended to.
func (b *Buffer) completeSegmentsByteSize() int64 {
	t := b.tail()
	if t == nil || !t.owner || t.len() == SegmentSize {
		return b.size
	}
	return b.size - int64(t.len())
}

// Copy returns a deep (but copy-free where possible) copy of b's readable
// bytes. b is left unmodified.
func (b *Buffer) Copy() *Buffer {
	dst := &Buffer{}
	_ = b.CopyTo(dst, 0, b.size)
	return dst
}

// Snapshot returns an immutable point-in-time copy of b's readable bytes.
// b is left unmodified.
func (b *Buffer) Snapshot() []byte {
	out := make([]byte, 0, b.size)
	s := b.head
	for i := int64(0); i < b.size; {
		out = append(out, s.data[s.pos:s.limit]...)
		i += int64(s.len())
		s = s.next
	}
	return out
}

// Clear discards all buffered bytes, recycling their segments.
func (b *Buffer) Clear() {
	for b.head != nil {
		s := b.head
		b.head = s.pop()
		segPool.recycle(s)
	}
	b.size = 0
	b.gen++
}

// Skip drops the first byteCount readable bytes, recycling any segment
// they empty. It fails (InvalidArgument) if fewer than byteCount bytes are
// currently buffered.
func (b *Buffer) Skip(byteCount int64) error {
	if byteCount < 0 || byteCount > b.size {
		return errInvalidArgument("skip")
	}
	if byteCount == 0 {
		return nil
	}
	remaining := byteCount
	for remaining > 0 {
		s := b.head
		n := int64(s.len())
		if n <= remaining {
			b.head = s.pop()
			segPool.recycle(s)
			remaining -= n
		} else {
			s.pos += int(remaining)
			remaining = 0
		}
	}
	b.size -= byteCount
	b.gen++
	return nil
}

// truncateTail removes the last n bytes of b, recycling any segment it
// empties. Used by UnsafeCursor.ResizeBuffer to shrink.
func (b *Buffer) truncateTail(n int64) {
	remaining := n
	for remaining > 0 {
		t := b.tail()
		tn := int64(t.len())
		if tn <= remaining {
			if t == b.head && t.next == t {
				t.pop()
				b.head = nil
			} else {
				t.pop()
			}
			segPool.recycle(t)
			remaining -= tn
		} else {
			t.limit -= int(remaining)
			remaining = 0
		}
	}
	b.size -= n
	b.gen++
}

// GetByte returns the byte at index idx without consuming it.
func (b *Buffer) GetByte(idx int64) (byte, error) {
	if idx < 0 || idx >= b.size {
		return 0, errInvalidArgument("getByte")
	}
	s := b.head
	pos := idx
	for pos >= int64(s.len()) {
		pos -= int64(s.len())
		s = s.next
	}
	return s.data[s.pos+int(pos)], nil
}

// ReadByteArray reads and removes exactly n bytes, failing with
// UnexpectedEOF if fewer are buffered.
func (b *Buffer) ReadByteArray(n int64) ([]byte, error) {
	if n < 0 {
		return nil, errInvalidArgument("readByteArray")
	}
	if n > b.size {
		return nil, errUnexpectedEOF("readByteArray")
	}
	out := make([]byte, n)
	var off int64
	for off < n {
		s := b.head
		take := int64(s.len())
		if take > n-off {
			take = n - off
		}
		copy(out[off:off+take], s.data[s.pos:s.pos+int(take)])
		off += take
		if take == int64(s.len()) {
			b.head = s.pop()
			segPool.recycle(s)
		} else {
			s.pos += int(take)
		}
	}
	b.size -= n
	b.gen++
	return out, nil
}

// ReadUtf8 reads and removes exactly n bytes, returning them as a string.
func (b *Buffer) ReadUtf8(n int64) (string, error) {
	raw, err := b.ReadByteArray(n)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// ReadByte reads and removes exactly one byte.
func (b *Buffer) ReadByte() (byte, error) {
	raw, err := b.ReadByteArray(1)
	if err != nil {
		return 0, err
	}
	return raw[0], nil
}

// ReadShort reads and removes 2 big-endian bytes.
func (b *Buffer) ReadShort() (int16, error) {
	raw, err := b.ReadByteArray(2)
	if err != nil {
		return 0, err
	}
	return int16(binary.BigEndian.Uint16(raw)), nil
}

// ReadInt reads and removes 4 big-endian bytes.
func (b *Buffer) ReadInt() (int32, error) {
	raw, err := b.ReadByteArray(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(raw)), nil
}

// ReadLong reads and removes 8 big-endian bytes.
func (b *Buffer) ReadLong() (int64, error) {
	raw, err := b.ReadByteArray(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(raw)), nil
}

// decimalScanLen reports how many leading bytes form a candidate decimal
// integer (optional sign followed by digits). complete is true once a
// non-digit terminator has been observed; complete is false when the
// buffered bytes are entirely sign/digits (or b is empty) and more data
// might extend the number further.
func (b *Buffer) decimalScanLen() (n int64, complete bool) {
	if b.size == 0 {
		return 0, false
	}
	i := int64(0)
	first, _ := b.GetByte(0)
	if first == '-' || first == '+' {
		i = 1
	}
	for i < b.size {
		c, _ := b.GetByte(i)
		if c < '0' || c > '9' {
			return i, true
		}
		i++
	}
	return i, false
}

// ReadDecimalLong scans and removes a base-10 integer from the front of b,
// stopping at the first non-digit. It fails with NumberFormat if no digit
// is present.
func (b *Buffer) ReadDecimalLong() (int64, error) {
	n, _ := b.decimalScanLen()
	if n == 0 {
		return 0, errNumberFormat("readDecimalLong")
	}
	first, _ := b.GetByte(0)
	neg := first == '-'
	start := int64(0)
	if first == '-' || first == '+' {
		start = 1
	}
	if start == n {
		return 0, errNumberFormat("readDecimalLong")
	}
	var value uint64
	for i := start; i < n; i++ {
		c, _ := b.GetByte(i)
		value = value*10 + uint64(c-'0')
	}
	if err := b.Skip(n); err != nil {
		return 0, err
	}
	if neg {
		return -int64(value), nil
	}
	return int64(value), nil
}

// hexScanLen reports how many leading bytes are hexadecimal digits.
func (b *Buffer) hexScanLen() int64 {
	i := int64(0)
	for i < b.size {
		c, _ := b.GetByte(i)
		if !isHexDigit(c) {
			break
		}
		i++
	}
	return i
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func hexValue(c byte) uint64 {
	switch {
	case c >= '0' && c <= '9':
		return uint64(c - '0')
	case c >= 'a' && c <= 'f':
		return uint64(c-'a') + 10
	default:
		return uint64(c-'A') + 10
	}
}

// ReadHexUnsignedLong scans and removes an unsigned hexadecimal integer
// (either case) from the front of b, stopping at the first non-hex-digit.
// It fails with NumberFormat if no digit is present.
func (b *Buffer) ReadHexUnsignedLong() (uint64, error) {
	n := b.hexScanLen()
	if n == 0 {
		return 0, errNumberFormat("readHexUnsignedLong")
	}
	var value uint64
	for i := int64(0); i < n; i++ {
		c, _ := b.GetByte(i)
		value = value<<4 | hexValue(c)
	}
	if err := b.Skip(n); err != nil {
		return 0, err
	}
	return value, nil
}

// IndexOf returns the offset of the first occurrence of needle at or after
// fromIndex and before toIndex, or -1 if there is none. toIndex may exceed
// b.size; it is clamped. This is a pure in-buffer scan: it never pulls more
// bytes, unlike BufferedReader.IndexOf.
func (b *Buffer) IndexOf(needle byte, fromIndex, toIndex int64) int64 {
	if toIndex > b.size {
		toIndex = b.size
	}
	if fromIndex < 0 || fromIndex >= toIndex {
		return -1
	}
	for i := fromIndex; i < toIndex; i++ {
		c, _ := b.GetByte(i)
		if c == needle {
			return i
		}
	}
	return -1
}

// IndexOfByteString returns the offset of the first occurrence of needle at
// or after fromIndex, or -1 if there is none or needle is empty.
func (b *Buffer) IndexOfByteString(needle []byte, fromIndex int64) int64 {
	if len(needle) == 0 || fromIndex < 0 {
		return -1
	}
	limit := b.size - int64(len(needle))
	for start := fromIndex; start <= limit; start++ {
		if b.hasByteStringAt(start, needle) {
			return start
		}
	}
	return -1
}

func (b *Buffer) hasByteStringAt(start int64, needle []byte) bool {
	for i, want := range needle {
		got, _ := b.GetByte(start + int64(i))
		if got != want {
			return false
		}
	}
	return true
}

// IndexOfElement returns the offset of the first byte at or after fromIndex
// that also occurs in set, or -1 if none does.
func (b *Buffer) IndexOfElement(set []byte, fromIndex int64) int64 {
	if fromIndex < 0 {
		return -1
	}
	for i := fromIndex; i < b.size; i++ {
		c, _ := b.GetByte(i)
		for _, s := range set {
			if c == s {
				return i
			}
		}
	}
	return -1
}
