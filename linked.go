// ©ForgeQueue Contributors 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coreq

import (
	"unsafe"

	"code.hybscloud.com/atomix"
)

// segmentFactory builds a fresh ring segment starting at the given
// logical index, using whichever variant (Variant-C, Variant-P, Variant-M)
// the enclosing queue was configured for.
type segmentFactory func(start uint64) ringSegment

// linkedAdapter chains ring segments into an unbounded MPMC queue: when a
// segment closes under contention, one thread links a fresh segment onto
// it and both head and tail eventually migrate onto the chain. Retired
// segments are reclaimed once no thread's hazard pointer still refers to
// them.
type linkedAdapter struct {
	head atomicSegment
	tail atomicSegment
	hp   *hazardDomain

	newSeg     segmentFactory
	ringSize   int
	maxThreads int
	draining   atomix.Bool
}

func newLinkedAdapter(ringSize, maxThreads int, newSeg segmentFactory) *linkedAdapter {
	sentinel := newSeg(0)
	a := &linkedAdapter{
		hp:         newHazardDomain(maxThreads),
		newSeg:     newSeg,
		ringSize:   ringSize,
		maxThreads: maxThreads,
	}
	a.head.Store(sentinel)
	a.tail.Store(sentinel)
	return a
}

func (a *linkedAdapter) drain() { a.draining.StoreRelease(true) }

func (a *linkedAdapter) push(item unsafe.Pointer, tid int) bool {
	if a.draining.LoadAcquire() {
		return false
	}
	ltail := a.hp.protect(kHpTail, tid, &a.tail)
	for {
		if ltail2 := a.tail.Load(); ltail2 != ltail {
			ltail = a.hp.protect(kHpTail, tid, &a.tail)
			continue
		}
		if lnext := ltail.loadNext(); lnext != nil {
			if a.tail.CompareAndSwap(ltail, lnext) {
				ltail = a.hp.protectDirect(kHpTail, tid, lnext)
			} else {
				ltail = a.hp.protect(kHpTail, tid, &a.tail)
			}
			continue
		}
		if ltail.push(item, tid) {
			a.hp.clear(kHpTail, tid)
			return true
		}
		if a.draining.LoadAcquire() {
			a.hp.clear(kHpTail, tid)
			return false
		}
		newTail := a.newSeg(ltail.nextStartIndex())
		newTail.push(item, tid)
		if ltail.casNext(nil, newTail) {
			a.tail.CompareAndSwap(ltail, newTail)
			a.hp.clear(kHpTail, tid)
			return true
		}
		ltail = a.hp.protectDirect(kHpTail, tid, a.tail.Load())
	}
}

func (a *linkedAdapter) pop(tid int) unsafe.Pointer {
	lhead := a.hp.protect(kHpHead, tid, &a.head)
	for {
		if lhead2 := a.head.Load(); lhead2 != lhead {
			lhead = a.hp.protect(kHpHead, tid, &a.head)
			continue
		}
		item := lhead.pop(tid)
		if item == nil {
			if lnext := lhead.loadNext(); lnext != nil {
				item = lhead.pop(tid)
				if item == nil {
					if a.head.CompareAndSwap(lhead, lnext) {
						a.hp.retire(lhead, tid)
						lhead = a.hp.protectDirect(kHpHead, tid, lnext)
					} else {
						lhead = a.hp.protect(kHpHead, tid, &a.head)
					}
					continue
				}
			}
		}
		a.hp.clear(kHpHead, tid)
		return item
	}
}

func (a *linkedAdapter) length(tid int) uint64 {
	lh := a.hp.protect(kHpHead, tid, &a.head)
	lt := a.hp.protect(kHpTail, tid, &a.tail)
	t := lt.tailIdx()
	h := lh.headIdx()
	a.hp.clearAll(tid)
	if t > h {
		return t - h
	}
	return 0
}

func (a *linkedAdapter) cap() int { return a.ringSize }
