// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package jayo_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"code.hybscloud.com/jayo"
)

// chunkReader is a scripted RawReader that hands back its backing slice in
// chunkLimit-sized pieces, reporting exhaustion as (-1, nil).
type chunkReader struct {
	data       []byte
	off        int
	chunkLimit int
	closed     bool
}

func (r *chunkReader) ReadAtMostTo(_ context.Context, _ *jayo.CancelToken, dst *jayo.Buffer, byteCount int64) (int64, error) {
	if r.off >= len(r.data) {
		return -1, nil
	}
	n := r.chunkLimit
	if n <= 0 || int64(n) > byteCount {
		n = int(byteCount)
	}
	if rem := len(r.data) - r.off; rem < n {
		n = rem
	}
	_, _ = dst.Write(r.data[r.off : r.off+n])
	r.off += n
	return int64(n), nil
}

func (r *chunkReader) Close() error { r.closed = true; return nil }

func TestBufferedReaderRequireAndReadByteArray(t *testing.T) {
	raw := &chunkReader{data: []byte("hello, buffered world"), chunkLimit: 3}
	br := jayo.NewBufferedReader(raw)

	ctx := context.Background()
	got, err := br.ReadByteArray(ctx, nil, 5)
	if err != nil {
		t.Fatalf("ReadByteArray: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("got %q, want %q", got, "hello")
	}
}

func TestBufferedReaderExhaustedReportsUnexpectedEOF(t *testing.T) {
	raw := &chunkReader{data: []byte("abc")}
	br := jayo.NewBufferedReader(raw)
	ctx := context.Background()

	if _, err := br.ReadByteArray(ctx, nil, 10); err == nil {
		t.Fatalf("expected UnexpectedEOF")
	}
}

func TestBufferedReaderRequestReportsExhaustionWithoutError(t *testing.T) {
	raw := &chunkReader{data: []byte("abc")}
	br := jayo.NewBufferedReader(raw)
	ctx := context.Background()

	ok, err := br.Request(ctx, nil, 10)
	if err != nil {
		t.Fatalf("Request returned error: %v", err)
	}
	if ok {
		t.Fatalf("Request should report false when source is short")
	}
}

func TestBufferedReaderReadUtf8Line(t *testing.T) {
	raw := &chunkReader{data: []byte("line one\r\nline two\nline three"), chunkLimit: 4}
	br := jayo.NewBufferedReader(raw)
	ctx := context.Background()

	want := []string{"line one", "line two", "line three"}
	for _, w := range want {
		line, ok, err := br.ReadUtf8Line(ctx, nil)
		if err != nil {
			t.Fatalf("ReadUtf8Line: %v", err)
		}
		if !ok {
			t.Fatalf("expected a line, got none")
		}
		if line != w {
			t.Fatalf("got %q, want %q", line, w)
		}
	}
	if _, ok, err := br.ReadUtf8Line(ctx, nil); err != nil || ok {
		t.Fatalf("expected exhaustion, got ok=%v err=%v", ok, err)
	}
}

func TestBufferedReaderReadUtf8LineStrictFailsWithoutTerminator(t *testing.T) {
	raw := &chunkReader{data: []byte("no newline here")}
	br := jayo.NewBufferedReader(raw)
	ctx := context.Background()

	if _, err := br.ReadUtf8LineStrict(ctx, nil); err == nil {
		t.Fatalf("expected UnexpectedEOF")
	}
}

func TestBufferedReaderIndexOf(t *testing.T) {
	raw := &chunkReader{data: []byte("abcXdefXghi"), chunkLimit: 2}
	br := jayo.NewBufferedReader(raw)
	ctx := context.Background()

	idx, err := br.IndexOf(ctx, nil, 'X', 0)
	if err != nil || idx != 3 {
		t.Fatalf("IndexOf = %d, %v, want 3", idx, err)
	}
	idx2, err := br.IndexOf(ctx, nil, 'X', 4)
	if err != nil || idx2 != 7 {
		t.Fatalf("IndexOf from 4 = %d, %v, want 7", idx2, err)
	}
	idx3, err := br.IndexOf(ctx, nil, 'Z', 0)
	if err != nil || idx3 != -1 {
		t.Fatalf("IndexOf missing byte = %d, %v, want -1", idx3, err)
	}
}

func TestBufferedReaderIndexOfRange(t *testing.T) {
	raw := &chunkReader{data: []byte("abcXdefXghi"), chunkLimit: 2}
	br := jayo.NewBufferedReader(raw)
	ctx := context.Background()

	idx, err := br.IndexOfRange(ctx, nil, 'X', 0, 3)
	if err != nil || idx != -1 {
		t.Fatalf("IndexOfRange bounded before match = %d, %v, want -1", idx, err)
	}
	idx2, err := br.IndexOfRange(ctx, nil, 'X', 0, 4)
	if err != nil || idx2 != 3 {
		t.Fatalf("IndexOfRange bounded at match = %d, %v, want 3", idx2, err)
	}
}

func TestBufferedReaderIndexOfElement(t *testing.T) {
	raw := &chunkReader{data: []byte("abc,def;ghi"), chunkLimit: 2}
	br := jayo.NewBufferedReader(raw)
	ctx := context.Background()

	idx, err := br.IndexOfElement(ctx, nil, []byte(",;"), 0)
	if err != nil || idx != 3 {
		t.Fatalf("IndexOfElement = %d, %v, want 3", idx, err)
	}
	idx2, err := br.IndexOfElement(ctx, nil, []byte(",;"), 4)
	if err != nil || idx2 != 7 {
		t.Fatalf("IndexOfElement from 4 = %d, %v, want 7", idx2, err)
	}
	idx3, err := br.IndexOfElement(ctx, nil, []byte("Z"), 0)
	if err != nil || idx3 != -1 {
		t.Fatalf("IndexOfElement missing = %d, %v, want -1", idx3, err)
	}
}

func TestBufferedReaderIndexOfByteString(t *testing.T) {
	raw := &chunkReader{data: []byte("the quick brown fox"), chunkLimit: 3}
	br := jayo.NewBufferedReader(raw)
	ctx := context.Background()

	idx, err := br.IndexOfByteString(ctx, nil, []byte("brown"), 0)
	if err != nil || idx != 10 {
		t.Fatalf("IndexOfByteString = %d, %v, want 10", idx, err)
	}

	idx2, err := br.IndexOfByteString(ctx, nil, []byte("nope"), 0)
	if err != nil || idx2 != -1 {
		t.Fatalf("IndexOfByteString missing = %d, %v, want -1", idx2, err)
	}
}

// TestBufferedReaderIndexOfByteStringAcrossPullBoundary pulls one byte at a
// time so the needle straddles the old-buffer/new-pull boundary on every
// iteration, exercising the re-scan lower bound rule directly.
func TestBufferedReaderIndexOfByteStringAcrossPullBoundary(t *testing.T) {
	raw := &chunkReader{data: []byte("aaaaaneedleaaaaa"), chunkLimit: 1}
	br := jayo.NewBufferedReader(raw)
	ctx := context.Background()

	idx, err := br.IndexOfByteString(ctx, nil, []byte("needle"), 0)
	if err != nil || idx != 5 {
		t.Fatalf("IndexOfByteString = %d, %v, want 5", idx, err)
	}
}

func TestBufferedReaderReadDecimalAndHex(t *testing.T) {
	raw := &chunkReader{data: []byte("-42 1a2b"), chunkLimit: 2}
	br := jayo.NewBufferedReader(raw)
	ctx := context.Background()

	v, err := br.ReadDecimalLong(ctx, nil)
	if err != nil || v != -42 {
		t.Fatalf("ReadDecimalLong = %d, %v, want -42", v, err)
	}
	if err := br.Skip(ctx, nil, 1); err != nil {
		t.Fatalf("Skip: %v", err)
	}
	hv, err := br.ReadHexUnsignedLong(ctx, nil)
	if err != nil || hv != 0x1a2b {
		t.Fatalf("ReadHexUnsignedLong = %x, %v, want 1a2b", hv, err)
	}
}

func TestBufferedReaderPeekDoesNotConsume(t *testing.T) {
	raw := &chunkReader{data: []byte("peekable data"), chunkLimit: 3}
	br := jayo.NewBufferedReader(raw)
	ctx := context.Background()

	peek := br.Peek()
	got, err := peek.ReadByteArray(ctx, nil, 4)
	if err != nil || string(got) != "peek" {
		t.Fatalf("peek read = %q, %v", got, err)
	}

	full, err := br.ReadByteArray(ctx, nil, 13)
	if err != nil || string(full) != "peekable data" {
		t.Fatalf("original reader should still see everything: got %q, %v", full, err)
	}
}

func TestBufferedReaderCloseIsIdempotent(t *testing.T) {
	raw := &chunkReader{data: []byte("x")}
	br := jayo.NewBufferedReader(raw)
	if err := br.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := br.Close(); err != nil {
		t.Fatalf("second Close should be a no-op, got: %v", err)
	}
	if !raw.closed {
		t.Fatalf("underlying raw reader should be closed")
	}
}

func TestBufferedReaderAsIOReader(t *testing.T) {
	raw := &chunkReader{data: []byte("io bridge"), chunkLimit: 2}
	br := jayo.NewBufferedReader(raw)
	r := br.AsIOReader()

	all, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("io.ReadAll: %v", err)
	}
	if string(all) != "io bridge" {
		t.Fatalf("got %q", all)
	}
}

type errReader struct{}

func (errReader) ReadAtMostTo(context.Context, *jayo.CancelToken, *jayo.Buffer, int64) (int64, error) {
	return 0, errors.New("boom")
}
func (errReader) Close() error { return nil }

func TestBufferedReaderWrapsIOFailure(t *testing.T) {
	br := jayo.NewBufferedReader(errReader{})
	_, err := br.ReadByteArray(context.Background(), nil, 1)
	if err == nil {
		t.Fatalf("expected an error")
	}
	var jerr *jayo.Error
	if !errors.As(err, &jerr) || jerr.Kind != jayo.KindIO {
		t.Fatalf("expected KindIO, got %v", err)
	}
}

func TestBufferedReaderReadAtMostTo(t *testing.T) {
	raw := &chunkReader{data: []byte("hello"), chunkLimit: 3}
	br := jayo.NewBufferedReader(raw)
	ctx := context.Background()

	buf := make([]byte, 3)
	n, err := br.ReadAtMostTo(ctx, nil, buf)
	if err != nil || n != 3 || string(buf[:n]) != "hel" {
		t.Fatalf("ReadAtMostTo = %d %q, %v, want 3 %q, nil", n, buf[:n], err, "hel")
	}

	n, err = br.ReadAtMostTo(ctx, nil, buf)
	if err != nil || n != 2 || string(buf[:n]) != "lo" {
		t.Fatalf("ReadAtMostTo = %d %q, %v, want 2 %q, nil", n, buf[:n], err, "lo")
	}

	n, err = br.ReadAtMostTo(ctx, nil, buf)
	if err != nil || n != -1 {
		t.Fatalf("ReadAtMostTo at exhaustion = %d, %v, want -1, nil", n, err)
	}
}

func TestBufferedReaderReadAtMostToEmptyDst(t *testing.T) {
	raw := &chunkReader{data: []byte("hello")}
	br := jayo.NewBufferedReader(raw)

	n, err := br.ReadAtMostTo(context.Background(), nil, nil)
	if err != nil || n != 0 {
		t.Fatalf("ReadAtMostTo with empty dst = %d, %v, want 0, nil", n, err)
	}
}
