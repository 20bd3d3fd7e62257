// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package jayo

import (
	"sync"
	"time"
)

// CancelToken propagates cancellation and deadlines down an explicit chain
// of calls. Where a thread-local cancellation stack would be natural in a
// language with real TLS, Jayo instead has every derived token name its
// Parent directly: callers that fan out across goroutines pass the token
// along explicitly, which is both the idiomatic Go shape (see
// context.Context) and immune to the "which goroutine am I on" ambiguity a
// TLS-based design would hit.
type CancelToken struct {
	Parent *CancelToken

	mu        sync.Mutex
	cancelled bool
	shielded  bool
	deadline  time.Time // zero means none
}

// NewCancelToken returns a root token with no parent, no deadline, and not
// cancelled.
func NewCancelToken() *CancelToken {
	return &CancelToken{}
}

// Child returns a new token whose cancellation and deadline are inherited
// from t in addition to its own.
func (t *CancelToken) Child() *CancelToken {
	return &CancelToken{Parent: t}
}

// Cancel marks t (and therefore every token derived from it) cancelled.
// Cancel does not propagate upward: cancelling a child never cancels its
// parent.
func (t *CancelToken) Cancel() {
	t.mu.Lock()
	t.cancelled = true
	t.mu.Unlock()
}

// Shield marks t so that IsCancelled and the deadline walk stop at t: a
// shielded token reports its own state but never consults its Parent. This
// lets a cleanup path run to completion using the same token tree without
// being aborted by a cancellation that applies to the outer operation.
func (t *CancelToken) Shield() {
	t.mu.Lock()
	t.shielded = true
	t.mu.Unlock()
}

// IsCancelled reports whether t or, unless shielded, any ancestor of t has
// been cancelled.
func (t *CancelToken) IsCancelled() bool {
	for cur := t; cur != nil; {
		cur.mu.Lock()
		cancelled := cur.cancelled
		shielded := cur.shielded
		parent := cur.Parent
		cur.mu.Unlock()
		if cancelled {
			return true
		}
		if shielded {
			return false
		}
		cur = parent
	}
	return false
}

// SetTimeout arms t with a deadline d from now. It is equivalent to
// SetDeadline(time.Now().Add(d)).
func (t *CancelToken) SetTimeout(d time.Duration) {
	t.SetDeadline(time.Now().Add(d))
}

// SetDeadline arms t with an absolute deadline. A zero Time clears it.
func (t *CancelToken) SetDeadline(deadline time.Time) {
	t.mu.Lock()
	t.deadline = deadline
	t.mu.Unlock()
}

// Deadline returns the earliest deadline in effect for t: its own, or (if
// not shielded) the tighter of its own and its ancestors'. ok is false if
// no deadline applies anywhere in the chain.
func (t *CancelToken) Deadline() (deadline time.Time, ok bool) {
	for cur := t; cur != nil; {
		cur.mu.Lock()
		d := cur.deadline
		shielded := cur.shielded
		parent := cur.Parent
		cur.mu.Unlock()

		if !d.IsZero() && (deadline.IsZero() || d.Before(deadline)) {
			deadline = d
			ok = true
		}
		if shielded {
			break
		}
		cur = parent
	}
	return deadline, ok
}

// checkCancel returns a classified error if token is cancelled or its
// deadline has passed, else nil. token may be nil, meaning "no
// cancellation in effect."
func checkCancel(op string, token *CancelToken) error {
	if token == nil {
		return nil
	}
	if token.IsCancelled() {
		return errCancelled(op)
	}
	if d, ok := token.Deadline(); ok && !time.Now().Before(d) {
		return errTimeout(op)
	}
	return nil
}
