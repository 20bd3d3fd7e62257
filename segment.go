// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package jayo

import "sync/atomic"

// Segment is a fixed-capacity byte container and the unit of allocation,
// pooling, and movement for Buffer. Readable bytes are data[pos:limit];
// writable capacity is SegmentSize-limit, and only owner segments may be
// written into.
//
// data is always backed by a SegmentSize-length array, but is held as a
// slice so that sharedCopy can hand out another view of the same backing
// array without copying a single byte.
//
// A Segment is never safe for concurrent use by more than one goroutine at
// a time: it belongs to exactly one Buffer's ring (or to the pool) at a
// time. refs, however, is shared by every live view of one backing array
// and is updated atomically since two different Buffers (each single-
// threaded on its own) may drop their respective views concurrently.
type Segment struct {
	data []byte

	pos   int
	limit int

	// owner is true if this segment may be appended to: only one owner
	// segment exists per underlying array at a time.
	owner bool
	// shared is true if the array is observed by another segment (a
	// "shared copy"). Shared segments are never written to; their lifetime
	// is governed by refs, and only the last view recycled is pooled.
	shared bool

	// refs counts live views of this segment's backing array, across this
	// segment and any of its shared copies. The array is only eligible for
	// recycling back into the pool once refs drops to 1.
	refs *int32

	next, prev *Segment
}

// newOwnerSegment allocates a fresh, unshared, owner segment with its own
// backing array. Used by the pool when no recycled segment is available.
func newOwnerSegment() *Segment {
	one := int32(1)
	return &Segment{data: make([]byte, SegmentSize), pos: 0, limit: 0, owner: true, refs: &one}
}

// len returns the number of readable bytes in the segment.
func (s *Segment) len() int { return s.limit - s.pos }

// writableCapacity returns how many more bytes may be appended, which is
// zero unless the segment is owner.
func (s *Segment) writableCapacity() int {
	if !s.owner {
		return 0
	}
	return SegmentSize - s.limit
}

// A linked-together Segment forms a circular ring: the lone segment in a
// one-segment ring is its own next and prev. Buffer tracks only head; the
// tail is always head.prev. A detached segment (in the pool, or just
// created) has next == prev == nil.

// pop detaches s from its ring and returns the segment that followed it,
// or nil if s was the ring's sole segment (the ring is now empty). The
// caller is responsible for advancing any head pointer that referenced s.
func (s *Segment) pop() *Segment {
	if s.next == s {
		s.next = nil
		s.prev = nil
		return nil
	}
	next := s.next
	s.prev.next = s.next
	s.next.prev = s.prev
	s.next = nil
	s.prev = nil
	return next
}

// push inserts other immediately after s in s's ring and returns other. s
// must already be linked into a ring (even a one-segment self-loop).
func (s *Segment) push(other *Segment) *Segment {
	other.prev = s
	other.next = s.next
	s.next.prev = other
	s.next = other
	return other
}

// split splits a prefix of byteCount readable bytes off the front of s and
// returns it as a new, detached segment (next/prev both nil) holding that
// prefix, for the caller to link into a ring (Buffer.Read appends it to the
// destination buffer). s itself is advanced past the split bytes.
//
// For byteCount below ShareMinimum, the prefix is copied into a fresh
// pooled segment: copying a small range is cheaper than the bookkeeping a
// shared view requires. For larger counts, the prefix is a shared,
// copy-free view of s's own backing array: both are marked shared, and s
// is frozen to owner=false since a shared array may no longer be appended
// to safely.
func (s *Segment) split(byteCount int) *Segment {
	if byteCount <= 0 || byteCount > s.len() {
		panic("jayo: split: byteCount out of range")
	}

	if byteCount < ShareMinimum {
		prefix := segPool.take()
		copy(prefix.data[:byteCount], s.data[s.pos:s.pos+byteCount])
		prefix.pos = 0
		prefix.limit = byteCount
		s.pos += byteCount
		return prefix
	}

	prefix := s.sharedCopy()
	prefix.pos = s.pos
	prefix.limit = s.pos + byteCount
	s.pos += byteCount
	return prefix
}

// sharedCopy returns a new, detached segment that shares s's backing array.
// Both s and the returned copy are marked shared and become permanently
// non-owner; writes to either are forbidden. The returned copy's pos/limit
// default to s's own and should be adjusted by the caller (as split does).
func (s *Segment) sharedCopy() *Segment {
	atomic.AddInt32(s.refs, 1)
	s.shared = true
	s.owner = false
	return &Segment{
		data:   s.data,
		pos:    s.pos,
		limit:  s.limit,
		owner:  false,
		shared: true,
		refs:   s.refs,
	}
}

// release drops s's view of its backing array. It returns true if this was
// the last live view (refs reached zero), meaning the array itself may be
// safely recycled to the pool.
func (s *Segment) release() bool {
	return atomic.AddInt32(s.refs, -1) == 0
}

// compact moves s's readable bytes to the start of its backing array,
// freeing writable capacity at the tail. It is a no-op unless s is owner
// and pos > 0.
func (s *Segment) compact() {
	if !s.owner || s.pos == 0 {
		return
	}
	n := copy(s.data, s.data[s.pos:s.limit])
	s.limit = n
	s.pos = 0
}

// writeTo appends byteCount readable bytes from s to sink, preferring an
// in-place copy, then a compact-then-copy. writeTo never writes into a
// non-owner or shared sink; the caller (Buffer) is responsible for
// supplying a writable tail, splitting s and moving it whole into the
// sink's ring instead when sink has no room even after compaction.
func (s *Segment) writeTo(sink *Segment, byteCount int) {
	if !sink.owner {
		panic("jayo: writeTo: sink is not owner")
	}
	if byteCount > s.len() {
		panic("jayo: writeTo: byteCount exceeds source length")
	}
	if byteCount > sink.writableCapacity() {
		sink.compact()
	}
	if byteCount > sink.writableCapacity() {
		panic("jayo: writeTo: sink has insufficient capacity even after compaction")
	}

	copy(sink.data[sink.limit:sink.limit+byteCount], s.data[s.pos:s.pos+byteCount])
	sink.limit += byteCount
	s.pos += byteCount
}
