// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package jayo

import (
	"context"
	"io"
)

// BufferedReader pulls bytes on demand from a RawReader into an internal
// Buffer, and exposes the typed/structured read operations Buffer itself
// implements directly on top of that demand-driven fill. A BufferedReader
// has exactly one logical owner: in synchronous mode (the default) it
// holds no internal lock at all, since nothing but its owner ever touches
// it. Async mode (WithAsync) instead hands reads to a cooperating pump
// goroutine and does need synchronization; see async_reader.go.
type BufferedReader struct {
	raw  RawReader
	opts readerOptions
	buf  Buffer

	closed bool

	async *asyncReaderState // nil unless WithAsync was given
}

// NewBufferedReader wraps raw with demand-driven buffering.
func NewBufferedReader(raw RawReader, opts ...ReaderOption) *BufferedReader {
	o := defaultReaderOptions
	for _, opt := range opts {
		opt(&o)
	}
	r := &BufferedReader{raw: raw, opts: o}
	if o.async {
		r.async = newAsyncReaderState(r)
	}
	return r
}

// fill pulls at least one more chunk from raw directly into buf's segment
// chain (raw's own implementation decides whether that costs a copy; see
// RawReader). It returns filled=false once raw reports exhaustion (the
// -1, nil convention Buffer.Read itself uses), and a non-nil error only
// for cancellation-unrelated raw I/O failures.
func (r *BufferedReader) fill(ctx context.Context, token *CancelToken) (filled bool, err error) {
	if r.async != nil {
		return r.async.fill(ctx, token)
	}
	n, err := r.raw.ReadAtMostTo(ctx, token, &r.buf, int64(SegmentSize))
	if err != nil {
		return false, errIO("fill", err)
	}
	if n < 0 {
		return false, nil
	}
	return true, nil
}

// Require ensures at least n bytes are buffered, pulling from raw as
// needed. It fails with UnexpectedEOF if raw is exhausted first.
func (r *BufferedReader) Require(ctx context.Context, token *CancelToken, n int64) error {
	if r.closed {
		return errClosed("require")
	}
	for r.buf.ByteSize() < n {
		if err := checkCancel("require", token); err != nil {
			return err
		}
		filled, err := r.fill(ctx, token)
		if err != nil {
			return err
		}
		if !filled {
			return errUnexpectedEOF("require")
		}
	}
	return nil
}

// Request is like Require but reports whether n bytes became available
// instead of failing: it returns false (with no error) once raw is
// exhausted short of n bytes, and a non-nil error only for cancellation or
// a raw I/O failure other than exhaustion.
func (r *BufferedReader) Request(ctx context.Context, token *CancelToken, n int64) (bool, error) {
	if r.closed {
		return false, errClosed("request")
	}
	for r.buf.ByteSize() < n {
		if err := checkCancel("request", token); err != nil {
			return false, err
		}
		filled, err := r.fill(ctx, token)
		if err != nil {
			return false, err
		}
		if !filled {
			return false, nil
		}
	}
	return true, nil
}

// Exhausted reports whether the underlying source has no more bytes:
// neither buffered nor obtainable via a further Request(ctx, token, 1).
func (r *BufferedReader) Exhausted(ctx context.Context, token *CancelToken) (bool, error) {
	ok, err := r.Request(ctx, token, 1)
	return !ok, err
}

// ReadAtMostTo moves up to len(p) buffered bytes into p, pulling from raw
// first if the buffer is currently empty. It returns (0, nil) if p is
// empty, and (-1, nil) — matching Buffer.Read's own exhaustion convention
// — once raw is exhausted and nothing is buffered.
func (r *BufferedReader) ReadAtMostTo(ctx context.Context, token *CancelToken, p []byte) (int, error) {
	if r.closed {
		return 0, errClosed("readAtMostTo")
	}
	if len(p) == 0 {
		return 0, nil
	}
	if r.buf.ByteSize() == 0 {
		filled, err := r.fill(ctx, token)
		if err != nil {
			return 0, err
		}
		if !filled {
			return -1, nil
		}
	}
	raw, err := r.buf.ReadByteArray(min64(int64(len(p)), r.buf.ByteSize()))
	if err != nil {
		return 0, err
	}
	return copy(p, raw), nil
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

// ReadByte reads and removes a single byte, filling as needed.
func (r *BufferedReader) ReadByte(ctx context.Context, token *CancelToken) (byte, error) {
	if err := r.Require(ctx, token, 1); err != nil {
		return 0, err
	}
	return r.buf.ReadByte()
}

// ReadShort reads and removes 2 big-endian bytes, filling as needed.
func (r *BufferedReader) ReadShort(ctx context.Context, token *CancelToken) (int16, error) {
	if err := r.Require(ctx, token, 2); err != nil {
		return 0, err
	}
	return r.buf.ReadShort()
}

// ReadInt reads and removes 4 big-endian bytes, filling as needed.
func (r *BufferedReader) ReadInt(ctx context.Context, token *CancelToken) (int32, error) {
	if err := r.Require(ctx, token, 4); err != nil {
		return 0, err
	}
	return r.buf.ReadInt()
}

// ReadLong reads and removes 8 big-endian bytes, filling as needed.
func (r *BufferedReader) ReadLong(ctx context.Context, token *CancelToken) (int64, error) {
	if err := r.Require(ctx, token, 8); err != nil {
		return 0, err
	}
	return r.buf.ReadLong()
}

// ReadByteArray reads and removes exactly n bytes, filling as needed.
func (r *BufferedReader) ReadByteArray(ctx context.Context, token *CancelToken, n int64) ([]byte, error) {
	if err := r.Require(ctx, token, n); err != nil {
		return nil, err
	}
	return r.buf.ReadByteArray(n)
}

// ReadUtf8 reads and removes exactly n bytes as a string, filling as
// needed.
func (r *BufferedReader) ReadUtf8(ctx context.Context, token *CancelToken, n int64) (string, error) {
	raw, err := r.ReadByteArray(ctx, token, n)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// ReadUtf8CodePoint decodes and removes one UTF-8 code point, filling as
// needed for the longest sequence the lead byte could start.
func (r *BufferedReader) ReadUtf8CodePoint(ctx context.Context, token *CancelToken) (rune, error) {
	if err := r.Require(ctx, token, 1); err != nil {
		return 0, err
	}
	lead, _ := r.buf.GetByte(0)
	want := int64(1)
	switch {
	case lead&0xE0 == 0xC0:
		want = 2
	case lead&0xF0 == 0xE0:
		want = 3
	case lead&0xF8 == 0xF0:
		want = 4
	}
	// Best-effort: pull up to `want` bytes, but a short source (EOF mid
	// sequence) is exactly the case decodeMultibyte's own length check
	// already degrades to U+FFFD, so Request's result (ok and err alike)
	// is discarded here.
	if want > 1 {
		_, _ = r.Request(ctx, token, want)
	}
	return r.buf.ReadUtf8CodePoint()
}

// ReadDecimalLong scans and removes a base-10 integer, filling ahead one
// segment at a time while the buffered content is still entirely
// sign/digits. Each pass re-scans the buffer from its start.
func (r *BufferedReader) ReadDecimalLong(ctx context.Context, token *CancelToken) (int64, error) {
	for {
		n, complete := r.buf.decimalScanLen()
		if complete && n > 0 {
			break
		}
		ok, err := r.Request(ctx, token, r.buf.ByteSize()+1)
		if err != nil {
			return 0, err
		}
		if !ok {
			if n == 0 {
				return 0, errNumberFormat("readDecimalLong")
			}
			break
		}
	}
	return r.buf.ReadDecimalLong()
}

// ReadHexUnsignedLong scans and removes an unsigned hexadecimal integer,
// filling ahead as ReadDecimalLong does.
func (r *BufferedReader) ReadHexUnsignedLong(ctx context.Context, token *CancelToken) (uint64, error) {
	for {
		n := r.buf.hexScanLen()
		if n > 0 && n < r.buf.ByteSize() {
			break // a non-hex terminator was already seen
		}
		ok, err := r.Request(ctx, token, r.buf.ByteSize()+1)
		if err != nil {
			return 0, err
		}
		if !ok {
			if n == 0 {
				return 0, errNumberFormat("readHexUnsignedLong")
			}
			break
		}
	}
	return r.buf.ReadHexUnsignedLong()
}

// ReadUtf8Line reads and removes one line, accepting "\n", "\r\n", or EOF
// as its terminator; the terminator itself is not included in the
// returned string. ok is false if the source was already exhausted with no
// more bytes to return.
func (r *BufferedReader) ReadUtf8Line(ctx context.Context, token *CancelToken) (line string, ok bool, err error) {
	for {
		if _, consumeLen, found := r.buf.utf8LineScan(); found {
			contentLen, _, _ := r.buf.utf8LineScan()
			raw, rerr := r.buf.ReadByteArray(consumeLen)
			if rerr != nil {
				return "", false, rerr
			}
			return string(raw[:contentLen]), true, nil
		}
		more, rerr := r.Request(ctx, token, r.buf.ByteSize()+1)
		if rerr != nil {
			return "", false, rerr
		}
		if !more {
			if r.buf.ByteSize() == 0 {
				return "", false, nil
			}
			raw, rerr := r.buf.ReadByteArray(r.buf.ByteSize())
			if rerr != nil {
				return "", false, rerr
			}
			return string(raw), true, nil
		}
	}
}

// ReadUtf8LineStrict is like ReadUtf8Line but fails with UnexpectedEOF
// instead of returning the trailing unterminated content when the source
// ends without a line terminator.
func (r *BufferedReader) ReadUtf8LineStrict(ctx context.Context, token *CancelToken) (string, error) {
	for {
		if _, consumeLen, found := r.buf.utf8LineScan(); found {
			contentLen, _, _ := r.buf.utf8LineScan()
			raw, err := r.buf.ReadByteArray(consumeLen)
			if err != nil {
				return "", err
			}
			return string(raw[:contentLen]), nil
		}
		more, err := r.Request(ctx, token, r.buf.ByteSize()+1)
		if err != nil {
			return "", err
		}
		if !more {
			return "", errUnexpectedEOF("readUtf8LineStrict")
		}
	}
}

// IndexOf returns the offset of the first occurrence of b within the
// buffered and not-yet-exhausted source, starting the search at
// fromIndex, or -1 if the source is exhausted before b is found. It pulls
// additional bytes as needed but never re-scans bytes already known not to
// contain a match (spec §4.4).
func (r *BufferedReader) IndexOf(ctx context.Context, token *CancelToken, b byte, fromIndex int64) (int64, error) {
	return r.IndexOfRange(ctx, token, b, fromIndex, -1)
}

// IndexOfRange is IndexOf bounded above by toIndex (exclusive); toIndex < 0
// means unbounded. It returns -1 once toIndex or the source's end is
// reached without a match.
func (r *BufferedReader) IndexOfRange(ctx context.Context, token *CancelToken, b byte, fromIndex, toIndex int64) (int64, error) {
	scanned := fromIndex
	for {
		limit := r.buf.ByteSize()
		if toIndex >= 0 && toIndex < limit {
			limit = toIndex
		}
		for scanned < limit {
			c, _ := r.buf.GetByte(scanned)
			if c == b {
				return scanned, nil
			}
			scanned++
		}
		if toIndex >= 0 && scanned >= toIndex {
			return -1, nil
		}
		ok, err := r.Request(ctx, token, scanned+1)
		if err != nil {
			return -1, err
		}
		if !ok {
			return -1, nil
		}
	}
}

// IndexOfElement is IndexOf generalized to match any byte in set, rather
// than a single byte.
func (r *BufferedReader) IndexOfElement(ctx context.Context, token *CancelToken, set []byte, fromIndex int64) (int64, error) {
	scanned := fromIndex
	for {
		for scanned < r.buf.ByteSize() {
			c, _ := r.buf.GetByte(scanned)
			for _, s := range set {
				if c == s {
					return scanned, nil
				}
			}
			scanned++
		}
		ok, err := r.Request(ctx, token, scanned+1)
		if err != nil {
			return -1, err
		}
		if !ok {
			return -1, nil
		}
	}
}

// IndexOfByteString is IndexOf generalized to match a multi-byte needle
// rather than a single byte. Per the re-scan-bound rule, once more bytes
// have been pulled the next scan only resumes from
// max(fromIndex, lastBufferSize-len(needle)+1): a match spanning the old
// buffer boundary is never missed, and bytes already known not to start a
// match are never rescanned.
func (r *BufferedReader) IndexOfByteString(ctx context.Context, token *CancelToken, needle []byte, fromIndex int64) (int64, error) {
	if len(needle) == 0 {
		return -1, nil
	}
	scanned := fromIndex
	for {
		limit := r.buf.ByteSize() - int64(len(needle))
		for scanned <= limit {
			if r.buf.hasByteStringAt(scanned, needle) {
				return scanned, nil
			}
			scanned++
		}
		lastBufferSize := r.buf.ByteSize()
		ok, err := r.Request(ctx, token, lastBufferSize+1)
		if err != nil {
			return -1, err
		}
		if !ok {
			return -1, nil
		}
		if rescan := lastBufferSize - int64(len(needle)) + 1; rescan > scanned {
			scanned = rescan
		}
	}
}

// Skip discards n bytes from the source, filling as needed.
func (r *BufferedReader) Skip(ctx context.Context, token *CancelToken, n int64) error {
	if err := r.Require(ctx, token, n); err != nil {
		return err
	}
	return r.buf.Skip(n)
}

// RangeEquals reports whether the n bytes of the source starting at
// offset match p's first n bytes, filling as needed. It returns false (no
// error) if the source is exhausted before offset+n bytes are available.
func (r *BufferedReader) RangeEquals(ctx context.Context, token *CancelToken, offset int64, p []byte) (bool, error) {
	ok, err := r.Request(ctx, token, offset+int64(len(p)))
	if err != nil || !ok {
		return false, err
	}
	for i, want := range p {
		got, _ := r.buf.GetByte(offset + int64(i))
		if got != want {
			return false, nil
		}
	}
	return true, nil
}

// Close closes the underlying RawReader. Closing an already-closed reader
// is a no-op, never an error.
func (r *BufferedReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if r.async != nil {
		r.async.stop()
	}
	return r.raw.Close()
}

// AsIOReader exposes r as a stdlib io.Reader backed by
// ReadAtMostTo(context.Background(), nil, p).
func (r *BufferedReader) AsIOReader() io.Reader {
	return bufferedReaderAsIO{r: r}
}

type bufferedReaderAsIO struct {
	r *BufferedReader
}

func (a bufferedReaderAsIO) Read(p []byte) (int, error) {
	n, err := a.r.ReadAtMostTo(context.Background(), nil, p)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, io.EOF
	}
	return n, nil
}
