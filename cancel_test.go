// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package jayo_test

import (
	"testing"
	"time"

	"code.hybscloud.com/jayo"
)

func TestCancelTokenChildInheritsCancellation(t *testing.T) {
	parent := jayo.NewCancelToken()
	child := parent.Child()

	if child.IsCancelled() {
		t.Fatalf("fresh child should not be cancelled")
	}
	parent.Cancel()
	if !child.IsCancelled() {
		t.Fatalf("child should observe parent cancellation")
	}
}

func TestCancelTokenCancelDoesNotPropagateUpward(t *testing.T) {
	parent := jayo.NewCancelToken()
	child := parent.Child()
	child.Cancel()
	if parent.IsCancelled() {
		t.Fatalf("cancelling a child must not cancel its parent")
	}
}

func TestCancelTokenShieldBlocksParentCancellation(t *testing.T) {
	parent := jayo.NewCancelToken()
	child := parent.Child()
	child.Shield()
	parent.Cancel()
	if child.IsCancelled() {
		t.Fatalf("shielded child should not observe parent cancellation")
	}
}

func TestCancelTokenDeadlineIsTighterOfChainAndIsInheritable(t *testing.T) {
	parent := jayo.NewCancelToken()
	parent.SetTimeout(time.Hour)
	child := parent.Child()
	child.SetTimeout(time.Minute)

	d, ok := child.Deadline()
	if !ok {
		t.Fatalf("expected a deadline")
	}
	if d.After(time.Now().Add(2 * time.Minute)) {
		t.Fatalf("deadline should be the tighter (child's), got %v", d)
	}
}

func TestCancelTokenNoDeadline(t *testing.T) {
	tok := jayo.NewCancelToken()
	if _, ok := tok.Deadline(); ok {
		t.Fatalf("fresh token should have no deadline")
	}
}
