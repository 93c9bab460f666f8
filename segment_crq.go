// ©ForgeQueue Contributors 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coreq

import (
	"unsafe"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// crqCell packs a slot's (value, index) pair into one atomically
// compare-and-swappable word pair: lo holds the epoch/unsafe-tagged index,
// hi holds the payload pointer bits (0 means empty).
type crqCell struct {
	entry atomix.Uint128
	_     cellPad
}

// crqSegment is a fixed-size ring implementing Variant-C: a producer and
// a consumer each claim a ticket via FAA, then race a single double-word
// CAS on the cell to publish or consume the value together with its
// epoch. Two threads never contend on separate words, so there's no
// window where a torn (value, index) pair is observable.
type crqSegment struct {
	tail atomix.Uint64
	_    pad
	head atomix.Uint64
	_    pad
	next atomicSegment

	cells    []crqCell
	remap    cacheRemap
	ringSize uint64
	mask     uint64
	cfg      segConfig
}

func newCRQSegment(requested int, start uint64, cfg segConfig) *crqSegment {
	ringSize := ringSizeFor(requested, cfg.disablePow2)
	s := &crqSegment{
		cells:    make([]crqCell, ringSize),
		ringSize: ringSize,
		mask:     ringSize - 1,
		cfg:      cfg,
	}
	s.remap = newCacheRemap(ringSize, uint64(unsafe.Sizeof(crqCell{})))
	for i := start; i < start+ringSize; i++ {
		s.cells[s.slot(i)].entry.StoreRelaxed(i, 0)
	}
	s.head.StoreRelaxed(start)
	s.tail.StoreRelaxed(start)
	return s
}

func (s *crqSegment) slot(i uint64) uint64 {
	if s.cfg.disablePow2 {
		return s.remap.at(i % s.ringSize)
	}
	return s.remap.at(i & s.mask)
}

func (s *crqSegment) push(item unsafe.Pointer, tid int) bool {
	tryClose := 0
	sw := spin.Wait{}
	for {
		ticket := s.tail.AddAcqRel(1) - 1
		if isClosedTail(ticket) {
			return false
		}
		cell := &s.cells[s.slot(ticket)]
		lo, hi := cell.entry.LoadAcquire()
		if hi == 0 {
			if epochOf(lo) <= ticket {
				if !isUnsafeIdx(lo) || s.head.LoadAcquire() < ticket {
					if cell.entry.CompareAndSwapAcqRel(lo, hi, ticket, uint64(uintptr(item))) {
						return true
					}
				}
			}
		}
		if ticket >= s.head.LoadAcquire()+s.ringSize {
			tryClose++
			if closeSegment(&s.tail, ticket, tryClose > s.cfg.tryCloseBudget) {
				return false
			}
		}
		sw.Once()
	}
}

func (s *crqSegment) pop(tid int) unsafe.Pointer {
	if s.cfg.cautiousDequeue && segIsEmpty(&s.head, &s.tail) {
		return nil
	}
	sw := spin.Wait{}
	for {
		ticket := s.head.AddAcqRel(1) - 1
		cell := &s.cells[s.slot(ticket)]
		r := 0
		var tt uint64
	inner:
		for {
			lo, hi := cell.entry.LoadAcquire()
			idx := epochOf(lo)
			unsafeBit := isUnsafeIdx(lo)
			if idx > ticket {
				break inner
			}
			if hi != 0 {
				if idx == ticket {
					if cell.entry.CompareAndSwapAcqRel(lo, hi, orUnsafeIdx(unsafeBit, ticket+s.ringSize), 0) {
						return unsafe.Pointer(uintptr(hi))
					}
				} else if cell.entry.CompareAndSwapAcqRel(lo, hi, setUnsafeIdx(idx), hi) {
					break inner
				}
			} else {
				if r&0xff == 0 {
					tt = s.tail.LoadAcquire()
				}
				closed := isClosedTail(tt)
				t := tailIndex(tt)
				if unsafeBit || t < ticket+1 || closed || r > 4096 {
					if cell.entry.CompareAndSwapAcqRel(lo, hi, orUnsafeIdx(unsafeBit, ticket+s.ringSize), 0) {
						break inner
					}
				}
				r++
			}
			sw.Once()
		}
		if tailIndex(s.tail.LoadAcquire()) <= ticket+1 {
			fixState(&s.head, &s.tail)
			return nil
		}
	}
}

func (s *crqSegment) isEmpty() bool          { return segIsEmpty(&s.head, &s.tail) }
func (s *crqSegment) isClosed() bool         { return isClosedTail(s.tail.LoadAcquire()) }
func (s *crqSegment) headIdx() uint64        { return s.head.LoadAcquire() }
func (s *crqSegment) tailIdx() uint64        { return tailIndex(s.tail.LoadAcquire()) }
func (s *crqSegment) nextStartIndex() uint64 { return s.tailIdx() - 1 }
func (s *crqSegment) loadNext() ringSegment  { return s.next.Load() }
func (s *crqSegment) casNext(old, cur ringSegment) bool {
	return s.next.CompareAndSwap(old, cur)
}
func (s *crqSegment) closeForce()  { forceCloseTail(&s.tail) }
func (s *crqSegment) length() uint64 { return segLength(&s.head, &s.tail) }
func (s *crqSegment) cap() int       { return int(s.ringSize) }
