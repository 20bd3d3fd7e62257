// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package jayo

import (
	"context"
	"errors"
	"io"
	"sync"

	"code.hybscloud.com/iox"
	"golang.org/x/sync/errgroup"
)

// asyncReaderPhase is the pump's state, named for what the foreground
// would observe if it asked right now.
type asyncReaderPhase int

const (
	asyncReaderRunning asyncReaderPhase = iota
	asyncReaderPaused                   // raw reported iox.ErrWouldBlock; waiting to be kicked again
	asyncReaderWaiting                  // foreground is blocked in fill, waiting for more bytes
	asyncReaderTerminated
)

// asyncReaderState is BufferedReader's read-ahead pump: a single
// background goroutine continuously pulls from raw into buf ahead of
// demand, so a synchronous-looking fill call usually just waits on a
// condition variable instead of performing its own blocking raw read. raw
// implementations that would otherwise block may instead return
// iox.ErrWouldBlock to step the pump to Paused without tearing it down;
// the pump resumes on the next explicit kick rather than busy-polling.
type asyncReaderState struct {
	r *BufferedReader

	mu    sync.Mutex
	cond  *sync.Cond
	phase asyncReaderPhase
	err   error // sticky terminal error, set once and never cleared

	group  *errgroup.Group
	cancel context.CancelFunc
}

func newAsyncReaderState(r *BufferedReader) *asyncReaderState {
	a := &asyncReaderState{r: r, phase: asyncReaderRunning}
	a.cond = sync.NewCond(&a.mu)

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	g, gctx := errgroup.WithContext(ctx)
	a.group = g
	g.Go(func() error { return a.pump(gctx) })

	return a
}

// pump is the sole goroutine that ever calls r.raw.ReadAtMostTo. It reads
// into a local scratch Buffer (so the potentially-blocking raw call itself
// runs without holding a.mu) and then splices the result onto r.buf under
// lock via Buffer.Read, a segment move rather than a byte copy, so fill
// (running on the foreground goroutine) observes new bytes without a
// second copy anywhere on this path.
func (a *asyncReaderState) pump(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		var scratch Buffer
		n, err := a.r.raw.ReadAtMostTo(ctx, nil, &scratch, int64(a.r.opts.pumpReadSize))

		a.mu.Lock()
		if n > 0 {
			_, _ = scratch.Read(&a.r.buf, n)
		}
		switch {
		case errors.Is(err, iox.ErrWouldBlock):
			a.phase = asyncReaderPaused
			a.cond.Broadcast()
			a.mu.Unlock()
			// Wait to be kicked by the next fill/Request call rather than
			// spinning on a source that has explicitly said "not yet."
			a.waitForKick(ctx)
			continue
		case err != nil:
			a.phase = asyncReaderTerminated
			a.err = err
			a.cond.Broadcast()
			a.mu.Unlock()
			return nil
		case n < 0:
			a.phase = asyncReaderTerminated
			a.err = io.EOF
			a.cond.Broadcast()
			a.mu.Unlock()
			return nil
		default:
			a.phase = asyncReaderRunning
			a.cond.Broadcast()
			a.mu.Unlock()
		}
	}
}

// waitForKick blocks the pump until fill signals demand again (via
// a.cond) or ctx is cancelled.
func (a *asyncReaderState) waitForKick(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		a.mu.Lock()
		for a.phase == asyncReaderPaused {
			a.cond.Wait()
		}
		a.mu.Unlock()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// fill waits for the pump to deliver at least one more byte, or for it to
// report exhaustion or a terminal error. It kicks a paused pump back to
// running first, and again whenever the pump pauses while fill is waiting.
func (a *asyncReaderState) fill(ctx context.Context, token *CancelToken) (filled bool, err error) {
	a.mu.Lock()
	if a.phase == asyncReaderPaused {
		a.phase = asyncReaderRunning
		a.cond.Broadcast()
	}
	before := a.r.buf.ByteSize()
	a.phase = asyncReaderWaiting
	for a.r.buf.ByteSize() == before && a.err == nil {
		if a.phase == asyncReaderPaused {
			a.phase = asyncReaderWaiting
			a.cond.Broadcast()
		}
		a.cond.Wait()
	}
	pumpErr := a.err
	a.mu.Unlock()

	if pumpErr != nil {
		if pumpErr == io.EOF {
			return false, nil
		}
		return false, errIO("fill", pumpErr)
	}
	return true, nil
}

func (a *asyncReaderState) stop() {
	a.cancel()
	a.mu.Lock()
	a.phase = asyncReaderTerminated
	a.cond.Broadcast()
	a.mu.Unlock()
	_ = a.group.Wait()
}
