// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package jayo_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/jayo"
)

// wouldBlockReader alternates between reporting iox.ErrWouldBlock and
// handing out real data, so the async pump must pause and resume rather
// than treating ErrWouldBlock as terminal.
type wouldBlockReader struct {
	mu      sync.Mutex
	data    []byte
	off     int
	blocked bool
}

func (r *wouldBlockReader) ReadAtMostTo(_ context.Context, _ *jayo.CancelToken, dst *jayo.Buffer, byteCount int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.blocked {
		r.blocked = false
		return 0, iox.ErrWouldBlock
	}
	if r.off >= len(r.data) {
		return -1, nil
	}
	n := int(byteCount)
	if rem := len(r.data) - r.off; rem < n {
		n = rem
	}
	_, _ = dst.Write(r.data[r.off : r.off+n])
	r.off += n
	r.blocked = true
	return int64(n), nil
}

func (r *wouldBlockReader) Close() error { return nil }

func TestAsyncBufferedReaderResumesAfterWouldBlock(t *testing.T) {
	raw := &wouldBlockReader{data: []byte("async payload")}
	br := jayo.NewBufferedReader(raw, jayo.WithAsync())
	defer br.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	got, err := br.ReadByteArray(ctx, nil, int64(len("async payload")))
	if err != nil {
		t.Fatalf("ReadByteArray: %v", err)
	}
	if string(got) != "async payload" {
		t.Fatalf("got %q", got)
	}
}

func TestAsyncBufferedReaderReportsEOF(t *testing.T) {
	raw := &wouldBlockReader{data: []byte("short")}
	br := jayo.NewBufferedReader(raw, jayo.WithAsync())
	defer br.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := br.ReadByteArray(ctx, nil, 100); err == nil {
		t.Fatalf("expected UnexpectedEOF")
	}
}
