// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package jayo

import "testing"

func TestSegmentPoolRecycleResetsState(t *testing.T) {
	p := newSegmentPool()
	s := p.take()
	s.pos = 10
	s.limit = 20
	s.next, s.prev = s, s
	s.pop()

	p.recycle(s)
	if s.pos != 0 || s.limit != 0 {
		t.Fatalf("recycled segment should reset pos/limit, got pos=%d limit=%d", s.pos, s.limit)
	}
	if !s.owner || s.shared {
		t.Fatalf("recycled segment should be owner, not shared")
	}
}

func TestSegmentPoolRecyclePanicsIfLinked(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("recycle should panic on a still-linked segment")
		}
	}()
	p := newSegmentPool()
	s := p.take()
	s.next, s.prev = s, s
	p.recycle(s)
}

func TestSegmentPoolSharedSegmentNotRecycledUntilLastRelease(t *testing.T) {
	p := newSegmentPool()
	s := p.take()
	s.limit = SegmentSize
	view := s.sharedCopy()
	view.next, view.prev = view, view
	view.pop()

	p.recycle(view) // drops one of two refs; array stays live
	if *s.refs != 1 {
		t.Fatalf("refs after one release = %d, want 1", *s.refs)
	}

	s.next, s.prev = s, s
	s.pop()
	refs := s.refs // recycle installs a fresh counter on the pooled segment
	p.recycle(s)   // drops the last ref
	if *refs != 0 {
		t.Fatalf("refs after final release = %d, want 0", *refs)
	}
}

func TestSegmentPoolOverflowBounded(t *testing.T) {
	p := newSegmentPool()
	segs := make([]*Segment, globalOverflowCap+5)
	for i := range segs {
		s := p.take()
		s.next, s.prev = s, s
		s.pop()
		segs[i] = s
	}
	for _, s := range segs {
		p.recycle(s)
	}
	if len(p.overflow) != globalOverflowCap {
		t.Fatalf("overflow len = %d, want capped at %d", len(p.overflow), globalOverflowCap)
	}
}
