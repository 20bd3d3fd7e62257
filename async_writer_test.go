// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package jayo_test

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/jayo"
)

// wouldBlockWriter alternates between reporting iox.ErrWouldBlock and
// actually accepting a chunk, so the pump must back off and retry rather
// than busy-looping or treating ErrWouldBlock as terminal.
type wouldBlockWriter struct {
	mu      sync.Mutex
	buf     []byte
	blocked bool
}

func (w *wouldBlockWriter) Write(_ context.Context, _ *jayo.CancelToken, src *jayo.Buffer, byteCount int64) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.blocked {
		w.blocked = false
		return 0, iox.ErrWouldBlock
	}
	p, err := src.ReadByteArray(byteCount)
	if err != nil {
		return 0, err
	}
	w.buf = append(w.buf, p...)
	w.blocked = true
	return int64(len(p)), nil
}

func (w *wouldBlockWriter) Flush(context.Context, *jayo.CancelToken) error { return nil }
func (w *wouldBlockWriter) Close() error                                  { return nil }

func (w *wouldBlockWriter) snapshot() []byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]byte, len(w.buf))
	copy(out, w.buf)
	return out
}

func TestAsyncBufferedWriterResumesAfterWouldBlock(t *testing.T) {
	raw := &wouldBlockWriter{}
	bw := jayo.NewBufferedWriter(raw,
		jayo.WithAsyncWrite(),
		jayo.WithMaxBufferedSize(4*jayo.SegmentSize),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Large enough to force the pump's drainOnce loop through several
	// SegmentSize-sized chunks, so wouldBlockWriter's alternating
	// accept/ErrWouldBlock pattern is actually exercised rather than
	// satisfied by a single Write call.
	payload := make([]byte, 3*jayo.SegmentSize+123)
	for i := range payload {
		payload[i] = byte(i)
	}
	if _, err := bw.Write(ctx, nil, payload); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := bw.Close(ctx, nil); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := raw.snapshot(); !bytes.Equal(got, payload) {
		t.Fatalf("drained payload mismatch (got %d bytes, want %d)", len(got), len(payload))
	}
}

func TestAsyncBufferedWriterDrainsInBackground(t *testing.T) {
	raw := &sliceWriter{}
	bw := jayo.NewBufferedWriter(raw, jayo.WithAsyncWrite())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := bw.Write(ctx, nil, []byte("async write")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := bw.Close(ctx, nil); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if string(raw.snapshot()) != "async write" {
		t.Fatalf("got %q", raw.snapshot())
	}
}

func TestAsyncBufferedWriterFlushWaitsForRawAndCallsFlush(t *testing.T) {
	raw := &sliceWriter{}
	bw := jayo.NewBufferedWriter(raw, jayo.WithAsyncWrite())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := bw.Write(ctx, nil, []byte("payload")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := bw.Flush(ctx, nil); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if string(raw.snapshot()) != "payload" {
		t.Fatalf("got %q, want %q", raw.snapshot(), "payload")
	}
	if raw.flushes != 1 {
		t.Fatalf("flushes = %d, want 1", raw.flushes)
	}
	if err := bw.Close(ctx, nil); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestAsyncBufferedWriterBackpressure(t *testing.T) {
	raw := &sliceWriter{}
	bw := jayo.NewBufferedWriter(raw,
		jayo.WithAsyncWrite(),
		jayo.WithMaxBufferedSize(jayo.SegmentSize),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Writing several times the backpressure threshold must not hang, and
	// the pump must eventually drain everything.
	payload := make([]byte, jayo.SegmentSize)
	for i := range payload {
		payload[i] = byte(i)
	}
	for i := 0; i < 8; i++ {
		if _, err := bw.Write(ctx, nil, payload); err != nil {
			t.Fatalf("Write #%d: %v", i, err)
		}
	}
	if err := bw.Close(ctx, nil); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(raw.snapshot()) != 8*jayo.SegmentSize {
		t.Fatalf("drained %d bytes, want %d", len(raw.snapshot()), 8*jayo.SegmentSize)
	}
}
