// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package jayo

const (
	utf8ReplacementCodePoint = 0xFFFD
	utf8MaxCodePoint         = 0x10FFFF
)

// ReadUtf8CodePoint reads and removes one UTF-8 code point from the front
// of b. Malformed or overlong sequences, out-of-range values, and lone
// surrogate halves all decode to U+FFFD, consuming only the malformed
// sequence's lead byte so the next read starts at the byte after it,
// mirroring a permissive text terminal rather than a strict decoder. It fails with UnexpectedEOF only when b is empty.
func (b *Buffer) ReadUtf8CodePoint() (rune, error) {
	if b.size == 0 {
		return 0, errUnexpectedEOF("readUtf8CodePoint")
	}
	lead, _ := b.GetByte(0)

	switch {
	case lead&0x80 == 0:
		_ = b.Skip(1)
		return rune(lead), nil

	case lead&0xE0 == 0xC0:
		return b.decodeMultibyte(lead&0x1F, 1, 0x80, utf8MaxCodePoint)

	case lead&0xF0 == 0xE0:
		return b.decodeMultibyte(lead&0x0F, 2, 0x800, utf8MaxCodePoint)

	case lead&0xF8 == 0xF0:
		return b.decodeMultibyte(lead&0x07, 3, 0x10000, utf8MaxCodePoint)

	default:
		// Continuation byte or invalid lead (0x80-0xBF, 0xF8-0xFF) where a
		// lead byte was expected.
		_ = b.Skip(1)
		return utf8ReplacementCodePoint, nil
	}
}

// decodeMultibyte decodes the continuationCount continuation bytes
// following a lead byte already known to request them, given the lead
// byte's data bits. On any malformed continuation byte, or a value outside
// [min, max] (catching overlong encodings and out-of-range values), it
// returns U+FFFD and consumes only the lead byte, leaving the remainder of
// the malformed sequence for the next read to interpret afresh.
func (b *Buffer) decodeMultibyte(leadBits byte, continuationCount int, min, max rune) (rune, error) {
	if int64(1+continuationCount) > b.size {
		_ = b.Skip(1)
		return utf8ReplacementCodePoint, nil
	}

	value := rune(leadBits)
	for i := 1; i <= continuationCount; i++ {
		c, _ := b.GetByte(int64(i))
		if c&0xC0 != 0x80 {
			_ = b.Skip(1)
			return utf8ReplacementCodePoint, nil
		}
		value = value<<6 | rune(c&0x3F)
	}

	if value < min || value > max || (value >= 0xD800 && value <= 0xDFFF) {
		_ = b.Skip(1)
		return utf8ReplacementCodePoint, nil
	}

	_ = b.Skip(int64(1 + continuationCount))
	return value, nil
}

// WriteUtf8CodePoint appends r's UTF-8 encoding. Values outside the valid
// Unicode range, and lone surrogate halves, are encoded as U+FFFD.
func (b *Buffer) WriteUtf8CodePoint(r rune) error {
	if r < 0 || r > utf8MaxCodePoint || (r >= 0xD800 && r <= 0xDFFF) {
		r = utf8ReplacementCodePoint
	}

	switch {
	case r < 0x80:
		b.writeFixed([]byte{byte(r)})

	case r < 0x800:
		b.writeFixed([]byte{
			0xC0 | byte(r>>6),
			0x80 | byte(r&0x3F),
		})

	case r < 0x10000:
		b.writeFixed([]byte{
			0xE0 | byte(r>>12),
			0x80 | byte((r>>6)&0x3F),
			0x80 | byte(r&0x3F),
		})

	default:
		b.writeFixed([]byte{
			0xF0 | byte(r>>18),
			0x80 | byte((r>>12)&0x3F),
			0x80 | byte((r>>6)&0x3F),
			0x80 | byte(r&0x3F),
		})
	}
	return nil
}

// utf8LineScan locates the next line terminator in b, returning the length
// of the line's content (excluding the terminator) and the total number of
// bytes to Skip to consume the line including its terminator. found is
// false if no terminator is buffered.
func (b *Buffer) utf8LineScan() (contentLen, consumeLen int64, found bool) {
	var i int64
	for i < b.size {
		c, _ := b.GetByte(i)
		switch c {
		case '\n':
			return i, i + 1, true
		case '\r':
			if i+1 < b.size {
				next, _ := b.GetByte(i + 1)
				if next == '\n' {
					return i, i + 2, true
				}
			}
			// A '\r' not followed by '\n' is ordinary line content.
		}
		i++
	}
	return 0, 0, false
}
