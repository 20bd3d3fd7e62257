// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package jayo

import (
	"context"
	"errors"
	"sync"
	"time"

	"code.hybscloud.com/iox"
	"golang.org/x/sync/errgroup"
)

// asyncWriterState is BufferedWriter's write-behind pump: Write/the typed
// writers append to buf and return immediately (modulo backpressure); a
// single background goroutine drains buf to raw. Backpressure engages once
// more than maxByteSize is buffered: afterWrite blocks the foreground
// until the pump has drained enough for the caller's append to have
// mattered, so an unbounded producer cannot grow buf without limit.
type asyncWriterState struct {
	w *BufferedWriter

	mu       sync.Mutex
	cond     *sync.Cond
	stopped  bool
	err      error
	wakePump bool // set by afterWrite/flush to request one more drain pass
	writing  bool // true while a chunk is between leaving buf and landing in raw

	group  *errgroup.Group
	cancel context.CancelFunc
}

func newAsyncWriterState(w *BufferedWriter) *asyncWriterState {
	a := &asyncWriterState{w: w}
	a.cond = sync.NewCond(&a.mu)

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	g, gctx := errgroup.WithContext(ctx)
	a.group = g
	g.Go(func() error { return a.pump(gctx) })

	return a
}

// wouldBlockBackoff is how long the pump waits before retrying a raw writer
// that just reported iox.ErrWouldBlock; only cancellation of the pump's
// context ends the wait sooner. raw implementations that surface
// ErrWouldBlock are expected to do so from a non-blocking socket with no
// readiness callback available to this package, so a short poll is the
// pragmatic substitute for an epoll/kqueue wakeup.
const wouldBlockBackoff = time.Millisecond

// pump is the sole goroutine that ever calls w.raw.Write. It drains w.buf
// down to zero each time it wakes, sleeping in between on a.cond.
func (a *asyncWriterState) pump(ctx context.Context) error {
	for {
		a.mu.Lock()
		for !a.stopped && !a.wakePump && a.w.buf.ByteSize() == 0 {
			a.cond.Wait()
		}
		if a.stopped && a.w.buf.ByteSize() == 0 {
			a.mu.Unlock()
			return nil
		}
		a.wakePump = false
		a.mu.Unlock()

		blocked, err := a.drainOnce(ctx)
		if err != nil {
			a.mu.Lock()
			a.err = err
			a.cond.Broadcast()
			a.mu.Unlock()
			return nil
		}
		if blocked {
			// Back off instead of busy-retrying a source that just said
			// "not yet". a.cond is not watched here: new writes and flushes
			// wait out the backoff too.
			timer := time.NewTimer(wouldBlockBackoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil
			case <-timer.C:
			}
		}
	}
}

// drainOnce emits buffered bytes to raw until either the buffer empties or
// raw reports iox.ErrWouldBlock (a transient pause, not an error: the pump
// simply loops back around to wait for more demand or more data). blocked
// reports whether the loop stopped on ErrWouldBlock rather than draining
// everything. Each chunk is pulled out of w.buf via a segment move
// (Buffer.Read), not a byte copy, and handed to raw as a Buffer so raw
// itself decides how to drain it.
func (a *asyncWriterState) drainOnce(ctx context.Context) (blocked bool, err error) {
	for {
		a.mu.Lock()
		n := a.w.buf.ByteSize()
		if n == 0 {
			a.mu.Unlock()
			return false, nil
		}
		if n > SegmentSize {
			n = SegmentSize
		}
		var chunk Buffer
		_, _ = a.w.buf.Read(&chunk, n)
		a.writing = true
		a.cond.Broadcast() // wake any afterWrite waiting on backpressure
		a.mu.Unlock()

		_, werr := a.w.raw.Write(ctx, nil, &chunk, n)
		if errors.Is(werr, iox.ErrWouldBlock) {
			// raw may have consumed part of chunk before blocking; splice
			// whatever is left of it back onto the front of the buffer so
			// output order is preserved.
			a.mu.Lock()
			prependBuffer(&a.w.buf, &chunk)
			a.writing = false
			a.cond.Broadcast()
			a.mu.Unlock()
			return true, nil
		}
		a.mu.Lock()
		a.writing = false
		a.cond.Broadcast()
		a.mu.Unlock()
		if werr != nil {
			return false, werr
		}
	}
}

// prependBuffer splices all of src's bytes onto the front of dst, leaving
// src empty.
func prependBuffer(dst, src *Buffer) {
	if src.size == 0 {
		return
	}
	if dst.head == nil {
		dst.head = src.head
	} else {
		srcTail := src.tail()
		dstHead := dst.head
		dstTail := dst.tail()

		srcTail.next = dstHead
		dstHead.prev = srcTail
		src.head.prev = dstTail
		dstTail.next = src.head

		dst.head = src.head
	}
	dst.size += src.size
	dst.gen++
	src.head, src.size = nil, 0
}

// afterWrite wakes the pump and, once more than maxByteSize is buffered,
// blocks the foreground until the pump has drained below that threshold.
func (a *asyncWriterState) afterWrite(ctx context.Context, token *CancelToken) error {
	a.mu.Lock()
	a.wakePump = true
	a.cond.Broadcast()
	threshold := int64(a.w.opts.maxByteSize)
	for a.w.buf.ByteSize() > threshold && a.err == nil {
		if err := checkCancel("write", token); err != nil {
			a.mu.Unlock()
			return err
		}
		a.cond.Wait()
	}
	err := a.err
	a.mu.Unlock()
	if err != nil {
		return errIO("write", err)
	}
	return nil
}

// drainWait blocks until the pump has drained the buffer to empty and the
// last chunk has actually landed in raw (not merely left the Buffer). It
// does not call raw.Flush; see flush.
func (a *asyncWriterState) drainWait(ctx context.Context, token *CancelToken) error {
	a.mu.Lock()
	a.wakePump = true
	a.cond.Broadcast()
	for (a.w.buf.ByteSize() > 0 || a.writing) && a.err == nil {
		if err := checkCancel("emit", token); err != nil {
			a.mu.Unlock()
			return err
		}
		a.cond.Wait()
	}
	err := a.err
	a.mu.Unlock()
	if err != nil {
		return errIO("emit", err)
	}
	return nil
}

// flush is drainWait followed by raw.Flush: with a single foreground
// owner, no other goroutine can be writing to raw once the drain
// completes, so the foreground may call Flush directly.
func (a *asyncWriterState) flush(ctx context.Context, token *CancelToken) error {
	if err := a.drainWait(ctx, token); err != nil {
		return err
	}
	if err := a.w.raw.Flush(ctx, token); err != nil {
		return errIO("flush", err)
	}
	return nil
}

// stop asks the pump to exit once the buffer is drained and waits for it;
// the pump's context is cancelled only after it has returned, so a pump
// backing off from iox.ErrWouldBlock still drains what remains.
func (a *asyncWriterState) stop() {
	a.mu.Lock()
	a.stopped = true
	a.cond.Broadcast()
	a.mu.Unlock()
	_ = a.group.Wait()
	a.cancel()
}
