// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package jayo

import "sync"

// globalOverflowCap bounds the second, explicitly-bounded recycling tier
// (see pool.go doc comment and DESIGN.md). 512 segments of SegmentSize is
// ~4MiB, comfortably above the spec's "≈64 KiB worth" per-slot figure,
// since this tier additionally absorbs overflow from every P's sync.Pool
// tier, not just one.
const globalOverflowCap = 512

// SegmentPool is a two-tier free list of recycled segments: a per-P
// sync.Pool tier (Go's closest equivalent to the spec's "thread-local free
// list", since Go exposes no thread-local storage and sync.Pool is itself
// implemented as per-P shards reclaimed under GC pressure) plus a small,
// genuinely bounded global overflow ring. take never fails; recycle never
// fails. See DESIGN.md for why the overflow tier is a mutex-guarded ring
// rather than the lock-free design sketched for a sibling package.
type SegmentPool struct {
	perP sync.Pool

	mu       sync.Mutex
	overflow []*Segment
}

func newSegmentPool() *SegmentPool {
	p := &SegmentPool{overflow: make([]*Segment, 0, globalOverflowCap)}
	p.perP.New = func() any { return newOwnerSegment() }
	return p
}

// segPool is the package-wide SegmentPool every Buffer draws from and
// recycles into.
var segPool = newSegmentPool()

// take returns a segment with pos=0, limit=0, owner=true, shared=false,
// next=prev=nil, detached from any ring. It first tries the bounded global
// overflow (cheapest: no allocation, no GC-aware bookkeeping), then the
// per-P sync.Pool tier, and finally allocates a fresh segment.
func (p *SegmentPool) take() *Segment {
	p.mu.Lock()
	if n := len(p.overflow); n > 0 {
		s := p.overflow[n-1]
		p.overflow[n-1] = nil
		p.overflow = p.overflow[:n-1]
		p.mu.Unlock()
		return s
	}
	p.mu.Unlock()

	return p.perP.Get().(*Segment)
}

// recycle returns segment's backing array to the pool once no other shared
// view of it remains live. A segment whose backing array is still
// referenced by another view is simply dropped; the last view to be
// recycled returns the array to the pool: see Segment.release.
func (p *SegmentPool) recycle(s *Segment) {
	if s.next != nil || s.prev != nil {
		panic("jayo: recycle: segment still linked into a ring")
	}
	if !s.release() {
		// Another view of this backing array is still live; this view is
		// simply dropped.
		return
	}

	s.pos = 0
	s.limit = 0
	s.owner = true
	s.shared = false
	one := int32(1)
	s.refs = &one

	p.mu.Lock()
	if len(p.overflow) < globalOverflowCap {
		p.overflow = append(p.overflow, s)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	p.perP.Put(s)
}
