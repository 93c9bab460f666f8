// ©ForgeQueue Contributors 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coreq

import (
	"unsafe"

	"code.hybscloud.com/atomix"
)

// boundedItemAdapter caps the total number of *items* live in the queue at
// once (as opposed to boundedSegmentAdapter's segment-count cap), gating
// admission on the live pushed/popped counters, re-read on every push
// attempt so a pop on any other thread is immediately visible. checkPush
// is a per-thread fast path only: once a thread's segment push fails, its
// later attempts (in this call and in later calls) check isClosed()
// instead of pushing into the segment again, until the tail itself moves,
// mirroring the original's per-thread skip optimization.
type boundedItemAdapter struct {
	head atomicSegment
	tail atomicSegment
	hp   *hazardDomain

	itemsPushed atomix.Uint64
	itemsPopped atomix.Uint64

	newSeg     segmentFactory
	ringSize   int
	itemCap    uint64
	maxThreads int

	checkPush []bool
}

func newBoundedItemAdapter(itemCap, maxThreads int, newSeg segmentFactory) *boundedItemAdapter {
	sentinel := newSeg(0)
	a := &boundedItemAdapter{
		hp:         newHazardDomain(maxThreads),
		newSeg:     newSeg,
		ringSize:   sentinel.cap(),
		itemCap:    uint64(itemCap),
		maxThreads: maxThreads,
		checkPush:  make([]bool, maxThreads),
	}
	a.head.Store(sentinel)
	a.tail.Store(sentinel)
	return a
}

func (a *boundedItemAdapter) push(item unsafe.Pointer, tid int) bool {
	ltail := a.hp.protect(kHpTail, tid, &a.tail)
	for {
		// Re-read the live counters on every iteration, never cached
		// across calls: a pop on any other thread must be visible to
		// the very next push on this one.
		if a.itemsPushed.LoadAcquire()-a.itemsPopped.LoadAcquire() >= a.itemCap {
			a.hp.clear(kHpTail, tid)
			return false
		}
		if ltail2 := a.tail.Load(); ltail2 != ltail {
			a.checkPush[tid] = false
			ltail = a.hp.protect(kHpTail, tid, &a.tail)
			continue
		}
		if lnext := ltail.loadNext(); lnext != nil {
			if a.tail.CompareAndSwap(ltail, lnext) {
				ltail = a.hp.protectDirect(kHpTail, tid, lnext)
			} else {
				ltail = a.hp.protect(kHpTail, tid, &a.tail)
			}
			a.checkPush[tid] = false
			continue
		}
		if a.checkPush[tid] {
			a.checkPush[tid] = ltail.isClosed()
		}
		if !a.checkPush[tid] {
			if ltail.push(item, tid) {
				a.itemsPushed.AddAcqRel(1)
				a.hp.clear(kHpTail, tid)
				return true
			}
			a.checkPush[tid] = true
		}
		newTail := a.newSeg(ltail.nextStartIndex())
		newTail.push(item, tid)
		if ltail.casNext(nil, newTail) {
			a.itemsPushed.AddAcqRel(1)
			a.tail.CompareAndSwap(ltail, newTail)
			a.checkPush[tid] = false
			a.hp.clear(kHpTail, tid)
			return true
		}
		ltail = a.hp.protectDirect(kHpTail, tid, a.tail.Load())
		a.checkPush[tid] = false
	}
}

func (a *boundedItemAdapter) pop(tid int) unsafe.Pointer {
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
		if item != nil {
			a.itemsPopped.AddAcqRel(1)
		}
		return item
	}
}

func (a *boundedItemAdapter) length(tid int) uint64 {
	pushed := a.itemsPushed.LoadAcquire()
	popped := a.itemsPopped.LoadAcquire()
	if pushed > popped {
		return pushed - popped
	}
	return 0
}

func (a *boundedItemAdapter) capacity() int { return int(a.itemCap) }

func (a *boundedItemAdapter) cap() int { return a.ringSize }
