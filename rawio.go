// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package jayo

import (
	"context"
	"io"
)

// RawReader is the minimal source a BufferedReader pulls from: a single
// blocking read of up to byteCount bytes, appended directly to dst's
// segment chain. Implementations should draw fresh segments from the
// package's shared SegmentPool (as ioReaderBridge does) rather than
// allocating a throwaway []byte and copying into dst, so the only copy on
// the read path is the one the underlying transport itself requires.
//
// Exhaustion is reported the same way Buffer.Read reports it: (-1, nil),
// never a wrapped io.EOF. token, when non-nil, should be honored as a
// cancellation/deadline signal by any implementation capable of doing so
// (e.g. one backed by a net.Conn via SetReadDeadline); implementations that
// cannot watch token mid-call are still correct, just not promptly
// cancellable.
type RawReader interface {
	ReadAtMostTo(ctx context.Context, token *CancelToken, dst *Buffer, byteCount int64) (n int64, err error)
	Close() error
}

// RawWriter is the minimal sink a BufferedWriter emits complete segments
// to. Write consumes up to byteCount bytes from the front of src (exactly
// as Buffer.Read does to whatever Buffer it is handed), leaving any bytes
// it could not accept yet in src, and reports how many it actually took.
// Implementations that cannot make partial progress either consume all of
// byteCount or return an error without touching src.
type RawWriter interface {
	Write(ctx context.Context, token *CancelToken, src *Buffer, byteCount int64) (n int64, err error)
	// Flush forces any bytes already handed to Write down to downstream
	// storage or wire. It is distinct from emitting buffered bytes
	// (BufferedWriter.Emit): Flush only concerns bytes raw has already
	// accepted.
	Flush(ctx context.Context, token *CancelToken) error
	Close() error
}

// ioReaderBridge adapts a stdlib io.Reader (plus optional io.Closer) to
// RawReader. It ignores ctx/token since io.Reader has no cancellation
// hook; pair it with a Watchdog that closes the underlying reader on
// timeout to get the same effect. It reads directly into a segment drawn
// from segPool, so wrapping a net.Conn or os.File this way costs exactly
// one copy: the kernel-to-userspace one the read syscall itself performs.
type ioReaderBridge struct {
	r io.Reader
}

func (b *ioReaderBridge) ReadAtMostTo(_ context.Context, _ *CancelToken, dst *Buffer, byteCount int64) (int64, error) {
	if byteCount <= 0 || byteCount > int64(SegmentSize) {
		byteCount = int64(SegmentSize)
	}
	seg := segPool.take()
	n, err := b.r.Read(seg.data[:byteCount])
	if n <= 0 {
		segPool.recycle(seg)
		if err != nil && err != io.EOF {
			return 0, err
		}
		return -1, nil
	}
	seg.pos = 0
	seg.limit = n
	dst.appendSegment(seg)
	dst.size += int64(n)
	dst.gen++
	if err != nil && err != io.EOF {
		return int64(n), err
	}
	return int64(n), nil
}

func (b *ioReaderBridge) Close() error {
	if c, ok := b.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// NewReaderFromIO wraps an arbitrary io.Reader as a RawReader, so existing
// net.Conn, os.File, or bytes.Reader values can feed a BufferedReader
// directly.
func NewReaderFromIO(r io.Reader) RawReader {
	return &ioReaderBridge{r: r}
}

// ioWriterBridge adapts a stdlib io.Writer to RawWriter. io.Writer's
// contract (a short write is always accompanied by a non-nil error) means
// Write may safely drain all of byteCount from src up front.
type ioWriterBridge struct {
	w io.Writer
}

func (b *ioWriterBridge) Write(_ context.Context, _ *CancelToken, src *Buffer, byteCount int64) (int64, error) {
	raw, err := src.ReadByteArray(byteCount)
	if err != nil {
		return 0, err
	}
	n, err := b.w.Write(raw)
	return int64(n), err
}

// flusher is satisfied by *bufio.Writer and similar stdlib types that
// expose an explicit flush step.
type flusher interface {
	Flush() error
}

func (b *ioWriterBridge) Flush(_ context.Context, _ *CancelToken) error {
	if f, ok := b.w.(flusher); ok {
		return f.Flush()
	}
	return nil
}

func (b *ioWriterBridge) Close() error {
	if c, ok := b.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// NewWriterFromIO wraps an arbitrary io.Writer as a RawWriter.
func NewWriterFromIO(w io.Writer) RawWriter {
	return &ioWriterBridge{w: w}
}

// rawReaderAsIO adapts a RawReader back to io.Reader for callers that need
// to hand a BufferedReader's underlying source to stdlib code expecting
// one (e.g. io.Copy). Reads use context.Background and a nil CancelToken.
type rawReaderAsIO struct {
	r RawReader
}

func (a rawReaderAsIO) Read(p []byte) (int, error) {
	var scratch Buffer
	n, err := a.r.ReadAtMostTo(context.Background(), nil, &scratch, int64(len(p)))
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, io.EOF
	}
	raw, _ := scratch.ReadByteArray(n)
	return copy(p, raw), nil
}

// AsIOReader exposes r as a stdlib io.Reader.
func AsIOReader(r RawReader) io.Reader { return rawReaderAsIO{r: r} }

type rawWriterAsIO struct {
	w RawWriter
}

func (a rawWriterAsIO) Write(p []byte) (int, error) {
	var scratch Buffer
	_, _ = scratch.Write(p)
	n, err := a.w.Write(context.Background(), nil, &scratch, int64(len(p)))
	return int(n), err
}

// AsIOWriter exposes w as a stdlib io.Writer.
func AsIOWriter(w RawWriter) io.Writer { return rawWriterAsIO{w: w} }
