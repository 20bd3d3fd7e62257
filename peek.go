// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package jayo

import "context"

// peekRawReader is a RawReader view of a BufferedReader's already-filled
// buffer: reads are satisfied by sharing segments out of the parent's
// Buffer via CopyTo, without consuming it, so the peeking BufferedReader
// and its parent can be read independently. Once the cursor catches up to
// what has actually been filled, ReadAtMostTo pulls the parent forward via
// its own fill and hands the new bytes to the peeker too.
type peekRawReader struct {
	parent *BufferedReader
	pos    int64
}

func (p *peekRawReader) ReadAtMostTo(ctx context.Context, token *CancelToken, dst *Buffer, byteCount int64) (int64, error) {
	if p.pos >= p.parent.buf.ByteSize() {
		filled, err := p.parent.fill(ctx, token)
		if err != nil {
			return 0, err
		}
		if !filled {
			return -1, nil
		}
	}
	avail := p.parent.buf.ByteSize() - p.pos
	if avail <= 0 {
		return -1, nil
	}
	if byteCount > avail {
		byteCount = avail
	}
	if err := p.parent.buf.CopyTo(dst, p.pos, byteCount); err != nil {
		return 0, err
	}
	p.pos += byteCount
	return byteCount, nil
}

func (p *peekRawReader) Close() error { return nil }

// Peek returns a new BufferedReader over the same underlying source that
// shares already-buffered bytes with r (and pulls r forward to fetch more)
// without consuming anything from r itself. Bytes read through the peek
// reader remain available to r and any other outstanding peek readers.
func (r *BufferedReader) Peek() *BufferedReader {
	return NewBufferedReader(&peekRawReader{parent: r})
}
