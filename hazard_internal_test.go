// ©ForgeQueue Contributors 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !nohazard

package coreq

import "testing"

func TestHazardDomainProtectAndRetire(t *testing.T) {
	hp := newHazardDomain(2)
	var slot atomicSegment
	seg := newCRQSegment(4, 0, defaultSegConfig())
	slot.Store(seg)

	protected := hp.protect(kHpTail, 0, &slot)
	if protected != ringSegment(seg) {
		t.Fatal("protect returned a different segment than was stored")
	}

	hp.retire(seg, 0)
	if !hp.isProtected(seg) {
		t.Fatal("retired-but-still-protected segment was dropped from bookkeeping")
	}

	hp.clear(kHpTail, 0)
	hp.retire(nil, 0)
	if hp.isProtected(seg) {
		t.Fatal("segment still reported protected after its hazard slot was cleared")
	}
}
