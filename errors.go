// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package jayo

import (
	"errors"
	"fmt"
)

// Kind classifies the failures a Jayo operation can report. Kind is not a
// replacement for Go's usual sentinel-error matching: every Kind also has a
// matching sentinel var below so callers can use plain errors.Is.
type Kind uint8

const (
	// KindInvalidArgument reports a negative count, an out-of-range offset,
	// or an illegal state transition. Closing an already-closed object is
	// explicitly NOT an error (it is a no-op) and never produces this kind.
	KindInvalidArgument Kind = iota
	// KindClosed reports an operation on an object whose closed flag is
	// set, or on an endpoint closed by the watchdog.
	KindClosed
	// KindUnexpectedEOF reports that a demand-driven read exhausted the
	// underlying RawReader before the required byte count was met.
	KindUnexpectedEOF
	// KindCancelled reports that the current CancelToken was cancelled, or
	// that a wait was interrupted.
	KindCancelled
	// KindTimeout reports that the current CancelToken's deadline elapsed
	// or that the Watchdog fired.
	KindTimeout
	// KindIO reports an underlying transport failure.
	KindIO
	// KindCharacterCoding reports malformed UTF-8 encountered during an
	// exact-length decode.
	KindCharacterCoding
	// KindNumberFormat reports a non-digit byte where a digit was required.
	KindNumberFormat
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid argument"
	case KindClosed:
		return "closed"
	case KindUnexpectedEOF:
		return "unexpected EOF"
	case KindCancelled:
		return "cancelled"
	case KindTimeout:
		return "timeout"
	case KindIO:
		return "io"
	case KindCharacterCoding:
		return "character coding"
	case KindNumberFormat:
		return "number format"
	default:
		return "unknown"
	}
}

// Error is the concrete error type every Jayo operation returns for a
// classified failure. Op names the failing operation (e.g. "readByte").
// Err, when non-nil, is the wrapped underlying cause (set for KindIO, and
// optionally for others).
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("jayo: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("jayo: %s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel var for e.Kind, so callers may
// use errors.Is(err, jayo.ErrClosed) without reaching into the Kind field.
func (e *Error) Is(target error) bool {
	switch e.Kind {
	case KindInvalidArgument:
		return target == ErrInvalidArgument
	case KindClosed:
		return target == ErrClosed
	case KindUnexpectedEOF:
		return target == ErrUnexpectedEOF
	case KindCancelled:
		return target == ErrCancelled
	case KindTimeout:
		return target == ErrTimeout
	case KindIO:
		return target == ErrIO
	case KindCharacterCoding:
		return target == ErrCharacterCoding
	case KindNumberFormat:
		return target == ErrNumberFormat
	default:
		return false
	}
}

// Sentinel vars, one per Kind, for plain errors.Is matching.
var (
	ErrInvalidArgument  = errors.New("jayo: invalid argument")
	ErrClosed           = errors.New("jayo: closed")
	ErrUnexpectedEOF    = errors.New("jayo: unexpected EOF")
	ErrCancelled        = errors.New("jayo: cancelled")
	ErrTimeout          = errors.New("jayo: timeout")
	ErrIO               = errors.New("jayo: io")
	ErrCharacterCoding  = errors.New("jayo: character coding")
	ErrNumberFormat     = errors.New("jayo: number format")
)

// newErr builds a classified *Error for op, optionally wrapping cause.
func newErr(kind Kind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

func errInvalidArgument(op string) error { return newErr(KindInvalidArgument, op, nil) }
func errClosed(op string) error          { return newErr(KindClosed, op, nil) }
func errUnexpectedEOF(op string) error   { return newErr(KindUnexpectedEOF, op, nil) }
func errCancelled(op string) error       { return newErr(KindCancelled, op, nil) }
func errTimeout(op string) error         { return newErr(KindTimeout, op, nil) }
func errIO(op string, cause error) error { return newErr(KindIO, op, cause) }
func errNumberFormat(op string) error    { return newErr(KindNumberFormat, op, nil) }
