// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package jayo

import (
	"context"
	"io"
)

// BufferedWriter accumulates writes into an internal Buffer and emits
// complete segments to a RawWriter, either synchronously on demand or (with
// WithAsyncWrite) via a cooperating write-behind pump; see
// async_writer.go. Like BufferedReader, the synchronous core holds no
// internal lock: it has exactly one logical owner.
type BufferedWriter struct {
	raw  RawWriter
	opts writerOptions
	buf  Buffer

	closed bool

	async *asyncWriterState // nil unless WithAsyncWrite was given
}

// NewBufferedWriter wraps raw with demand-driven buffering.
func NewBufferedWriter(raw RawWriter, opts ...WriterOption) *BufferedWriter {
	o := defaultWriterOptions
	for _, opt := range opts {
		opt(&o)
	}
	w := &BufferedWriter{raw: raw, opts: o}
	if o.async {
		w.async = newAsyncWriterState(w)
	}
	return w
}

// Write appends p to the internal buffer. In synchronous mode it also
// eagerly emits any now-complete segments; in async mode it instead
// enqueues a wakeup for the pump and applies backpressure once more than
// MaxByteSize (or WithMaxBufferedSize's override) is buffered.
func (w *BufferedWriter) Write(ctx context.Context, token *CancelToken, p []byte) (int, error) {
	if w.closed {
		return 0, errClosed("write")
	}
	n, _ := w.buf.Write(p)
	if w.async != nil {
		return n, w.async.afterWrite(ctx, token)
	}
	if err := w.EmitCompleteSegments(ctx, token); err != nil {
		return n, err
	}
	return n, nil
}

// WriteByte appends a single byte.
func (w *BufferedWriter) WriteByte(ctx context.Context, token *CancelToken, c byte) error {
	_, err := w.Write(ctx, token, []byte{c})
	return err
}

// WriteShort appends v as 2 big-endian bytes.
func (w *BufferedWriter) WriteShort(ctx context.Context, token *CancelToken, v int16) error {
	_ = w.buf.WriteShort(v)
	return w.afterBufferedWrite(ctx, token)
}

// WriteInt appends v as 4 big-endian bytes.
func (w *BufferedWriter) WriteInt(ctx context.Context, token *CancelToken, v int32) error {
	_ = w.buf.WriteInt(v)
	return w.afterBufferedWrite(ctx, token)
}

// WriteLong appends v as 8 big-endian bytes.
func (w *BufferedWriter) WriteLong(ctx context.Context, token *CancelToken, v int64) error {
	_ = w.buf.WriteLong(v)
	return w.afterBufferedWrite(ctx, token)
}

// WriteDecimalLong appends v's base-10 ASCII representation.
func (w *BufferedWriter) WriteDecimalLong(ctx context.Context, token *CancelToken, v int64) error {
	w.buf.WriteDecimalLong(v)
	return w.afterBufferedWrite(ctx, token)
}

// WriteHexUnsignedLong appends v's lowercase hexadecimal representation.
func (w *BufferedWriter) WriteHexUnsignedLong(ctx context.Context, token *CancelToken, v uint64) error {
	w.buf.WriteHexUnsignedLong(v)
	return w.afterBufferedWrite(ctx, token)
}

// WriteUtf8 appends s's UTF-8 bytes.
func (w *BufferedWriter) WriteUtf8(ctx context.Context, token *CancelToken, s string) error {
	_, err := w.Write(ctx, token, []byte(s))
	return err
}

// WriteUtf8CodePoint appends r's UTF-8 encoding.
func (w *BufferedWriter) WriteUtf8CodePoint(ctx context.Context, token *CancelToken, r rune) error {
	_ = w.buf.WriteUtf8CodePoint(r)
	return w.afterBufferedWrite(ctx, token)
}

func (w *BufferedWriter) afterBufferedWrite(ctx context.Context, token *CancelToken) error {
	if w.closed {
		return errClosed("write")
	}
	if w.async != nil {
		return w.async.afterWrite(ctx, token)
	}
	return w.EmitCompleteSegments(ctx, token)
}

// EmitCompleteSegments emits every segment of the internal buffer that is
// already full (SegmentSize bytes), leaving only a final partial segment
// (if any) buffered. It hands raw the buffer itself (raw.Write consumes
// directly from w.buf's segment chain) rather than copying into a
// throwaway slice first. It is a no-op in async mode, where the pump owns
// emission.
func (w *BufferedWriter) EmitCompleteSegments(ctx context.Context, token *CancelToken) error {
	if w.async != nil {
		return nil
	}
	for {
		n := w.buf.completeSegmentsByteSize()
		if n == 0 {
			return nil
		}
		if err := checkCancel("emitCompleteSegments", token); err != nil {
			return err
		}
		written, err := w.raw.Write(ctx, token, &w.buf, n)
		if err != nil {
			return errIO("emitCompleteSegments", err)
		}
		if written == 0 {
			return errIO("emitCompleteSegments", io.ErrNoProgress)
		}
	}
}

// Emit flushes every buffered byte, complete segment or not, to raw.
func (w *BufferedWriter) Emit(ctx context.Context, token *CancelToken) error {
	if w.async != nil {
		return w.async.drainWait(ctx, token)
	}
	for w.buf.ByteSize() > 0 {
		if err := checkCancel("emit", token); err != nil {
			return err
		}
		written, err := w.raw.Write(ctx, token, &w.buf, w.buf.ByteSize())
		if err != nil {
			return errIO("emit", err)
		}
		if written == 0 {
			return errIO("emit", io.ErrNoProgress)
		}
	}
	return nil
}

// Flush emits every buffered byte (as Emit does) and then calls raw.Flush,
// matching the stdlib bufio naming callers commonly expect. Calling Flush
// repeatedly with no intervening writes emits nothing on the later calls
// but still calls raw.Flush exactly once per call.
func (w *BufferedWriter) Flush(ctx context.Context, token *CancelToken) error {
	if w.closed {
		return errClosed("flush")
	}
	if w.async != nil {
		return w.async.flush(ctx, token)
	}
	if err := w.Emit(ctx, token); err != nil {
		return err
	}
	if err := w.raw.Flush(ctx, token); err != nil {
		return errIO("flush", err)
	}
	return nil
}

// Close emits any buffered bytes (as Emit does; raw.Flush is not called),
// then closes the underlying RawWriter. If both the emit and the close
// fail, only the emit's error is returned; the close error is discarded,
// matching the spec's "the first failure wins" aggregation rule. Closing
// an already-closed writer is a no-op.
func (w *BufferedWriter) Close(ctx context.Context, token *CancelToken) error {
	if w.closed {
		return nil
	}
	w.closed = true

	if w.async != nil {
		w.async.stop()
	}

	flushErr := w.Emit(ctx, token)
	closeErr := w.raw.Close()
	if flushErr != nil {
		return flushErr
	}
	if closeErr != nil {
		return errIO("close", closeErr)
	}
	return nil
}

// AsIOWriter exposes w as a stdlib io.Writer backed by
// Write(context.Background(), nil, p).
func (w *BufferedWriter) AsIOWriter() io.Writer {
	return bufferedWriterAsIO{w: w}
}

type bufferedWriterAsIO struct {
	w *BufferedWriter
}

func (a bufferedWriterAsIO) Write(p []byte) (int, error) {
	return a.w.Write(context.Background(), nil, p)
}
