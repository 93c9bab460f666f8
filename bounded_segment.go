// ©ForgeQueue Contributors 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coreq

import (
	"unsafe"

	"code.hybscloud.com/atomix"
)

// boundedSegmentAdapter caps the number of *segments* live at once rather
// than the number of items: pushes into a fresh segment are refused once
// maxSegments segments are already chained, but a segment that's already
// linked always finishes accepting the push that triggered its creation.
// Total capacity is therefore maxSegments*ringSize, spread over
// variable-length segments rather than a hard item count (see
// boundedItemAdapter for the alternative).
type boundedSegmentAdapter struct {
	head atomicSegment
	tail atomicSegment
	hp   *hazardDomain

	segmentTail atomix.Uint64
	segmentHead atomix.Uint64

	newSeg      segmentFactory
	ringSize    int
	maxSegments int
	maxThreads  int
}

func newBoundedSegmentAdapter(totalCapacity, maxSegments, maxThreads int, newSeg func(ringSize int, start uint64) ringSegment) *boundedSegmentAdapter {
	if maxSegments < 1 {
		maxSegments = 1
	}
	perSegment := roundToPow2(totalCapacity) / maxSegments
	if perSegment < 2 {
		perSegment = 2
	}
	factory := func(start uint64) ringSegment { return newSeg(perSegment, start) }
	sentinel := factory(0)
	a := &boundedSegmentAdapter{
		hp:          newHazardDomain(maxThreads),
		newSeg:      factory,
		ringSize:    perSegment,
		maxSegments: maxSegments,
		maxThreads:  maxThreads,
	}
	a.head.Store(sentinel)
	a.tail.Store(sentinel)
	return a
}

func (a *boundedSegmentAdapter) push(item unsafe.Pointer, tid int) bool {
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

		curTail := a.segmentTail.LoadAcquire()
		curHead := a.segmentHead.LoadAcquire()
		if curTail-curHead+1 >= uint64(a.maxSegments) {
			a.hp.clear(kHpTail, tid)
			return false
		}

		newTail := a.newSeg(ltail.nextStartIndex())
		newTail.push(item, tid)
		if ltail.casNext(nil, newTail) {
			oldTail := ltail
			a.tail.CompareAndSwap(ltail, newTail)
			curTail = a.segmentTail.LoadAcquire()
			curHead = a.segmentHead.LoadAcquire()
			if curTail-curHead+1 >= uint64(a.maxSegments) {
				// Raced past the cap while linking; close the old segment
				// so it stops accepting further pushes even though it's
				// still reachable until the head catches up to it.
				oldTail.closeForce()
			}
			a.segmentTail.AddAcqRel(1)
			a.hp.clear(kHpTail, tid)
			return true
		}
		ltail = a.hp.protectDirect(kHpTail, tid, a.tail.Load())
	}
}

func (a *boundedSegmentAdapter) pop(tid int) unsafe.Pointer {
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
						a.segmentHead.AddAcqRel(1)
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

// length is not tracked precisely across a variable number of
// variable-content segments; the original leaves this unimplemented for
// the same reason.
func (a *boundedSegmentAdapter) length(tid int) uint64 { return 0 }

func (a *boundedSegmentAdapter) cap() int { return a.ringSize }

func (a *boundedSegmentAdapter) segmentCount() uint64 {
	return a.segmentTail.LoadAcquire()
}
