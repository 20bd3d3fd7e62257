// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package jayo_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"code.hybscloud.com/jayo"
)

// sliceWriter is a scripted RawWriter that appends everything it receives
// to an in-memory buffer, optionally guarding concurrent access for the
// async pump tests.
type sliceWriter struct {
	mu      sync.Mutex
	buf     bytes.Buffer
	closed  bool
	flushes int
}

func (w *sliceWriter) Write(_ context.Context, _ *jayo.CancelToken, src *jayo.Buffer, byteCount int64) (int64, error) {
	raw, err := src.ReadByteArray(byteCount)
	if err != nil {
		return 0, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	n, err := w.buf.Write(raw)
	return int64(n), err
}

func (w *sliceWriter) Flush(_ context.Context, _ *jayo.CancelToken) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.flushes++
	return nil
}

func (w *sliceWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *sliceWriter) snapshot() []byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]byte(nil), w.buf.Bytes()...)
}

func TestBufferedWriterEmitsCompleteSegments(t *testing.T) {
	raw := &sliceWriter{}
	bw := jayo.NewBufferedWriter(raw)
	ctx := context.Background()

	payload := bytes.Repeat([]byte{'q'}, jayo.SegmentSize+10)
	if _, err := bw.Write(ctx, nil, payload); err != nil {
		t.Fatalf("Write: %v", err)
	}
	// One complete segment should already have been emitted eagerly.
	if len(raw.snapshot()) != jayo.SegmentSize {
		t.Fatalf("eagerly emitted %d bytes, want %d", len(raw.snapshot()), jayo.SegmentSize)
	}

	if err := bw.Emit(ctx, nil); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if !bytes.Equal(raw.snapshot(), payload) {
		t.Fatalf("emitted contents mismatch")
	}
}

func TestBufferedWriterTypedWrites(t *testing.T) {
	raw := &sliceWriter{}
	bw := jayo.NewBufferedWriter(raw)
	ctx := context.Background()

	_ = bw.WriteShort(ctx, nil, -2)
	_ = bw.WriteDecimalLong(ctx, nil, 42)
	_ = bw.WriteUtf8(ctx, nil, " rest")
	if err := bw.Emit(ctx, nil); err != nil {
		t.Fatalf("Emit: %v", err)
	}

	want := append([]byte{0xFF, 0xFE}, []byte("42 rest")...)
	if !bytes.Equal(raw.snapshot(), want) {
		t.Fatalf("got %q, want %q", raw.snapshot(), want)
	}
}

func TestBufferedWriterCloseFlushesAndClosesOnce(t *testing.T) {
	raw := &sliceWriter{}
	bw := jayo.NewBufferedWriter(raw)
	ctx := context.Background()

	_ = bw.WriteUtf8(ctx, nil, "flush me")
	if err := bw.Close(ctx, nil); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if string(raw.snapshot()) != "flush me" {
		t.Fatalf("got %q", raw.snapshot())
	}
	if !raw.closed {
		t.Fatalf("underlying raw writer should be closed")
	}
	if err := bw.Close(ctx, nil); err != nil {
		t.Fatalf("second Close should be a no-op, got: %v", err)
	}
}

type errWriter struct{}

func (errWriter) Write(context.Context, *jayo.CancelToken, *jayo.Buffer, int64) (int64, error) {
	return 0, errors.New("boom")
}
func (errWriter) Flush(context.Context, *jayo.CancelToken) error { return nil }
func (errWriter) Close() error                                  { return nil }

func TestBufferedWriterWrapsIOFailure(t *testing.T) {
	bw := jayo.NewBufferedWriter(errWriter{})
	ctx := context.Background()
	_ = bw.WriteUtf8(ctx, nil, "x")
	err := bw.Emit(ctx, nil)
	if err == nil {
		t.Fatalf("expected an error")
	}
	var jerr *jayo.Error
	if !errors.As(err, &jerr) || jerr.Kind != jayo.KindIO {
		t.Fatalf("expected KindIO, got %v", err)
	}
}

func TestBufferedWriterFlushCallsUnderlyingFlushOnce(t *testing.T) {
	raw := &sliceWriter{}
	bw := jayo.NewBufferedWriter(raw)
	ctx := context.Background()

	_ = bw.WriteUtf8(ctx, nil, "x")
	if err := bw.Flush(ctx, nil); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if raw.flushes != 1 {
		t.Fatalf("flushes = %d, want 1", raw.flushes)
	}
	if string(raw.snapshot()) != "x" {
		t.Fatalf("got %q", raw.snapshot())
	}

	// A second Flush with no intervening writes performs no underlying
	// write but still calls raw.Flush exactly once more.
	if err := bw.Flush(ctx, nil); err != nil {
		t.Fatalf("second Flush: %v", err)
	}
	if raw.flushes != 2 {
		t.Fatalf("flushes = %d, want 2", raw.flushes)
	}
	if string(raw.snapshot()) != "x" {
		t.Fatalf("second flush wrote extra bytes: %q", raw.snapshot())
	}
}

func TestBufferedWriterAsIOWriter(t *testing.T) {
	raw := &sliceWriter{}
	bw := jayo.NewBufferedWriter(raw)
	w := bw.AsIOWriter()

	if _, err := w.Write([]byte("bridge")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := bw.Emit(context.Background(), nil); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if string(raw.snapshot()) != "bridge" {
		t.Fatalf("got %q", raw.snapshot())
	}
}
