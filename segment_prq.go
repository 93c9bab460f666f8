// ©ForgeQueue Contributors 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coreq

import (
	"unsafe"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// prqCell holds a value and an index as two independently CAS-able words,
// rather than one packed word pair. Variant-P trades a second atomic for
// only ever needing single-word CAS, at the cost of a reserved marker
// value to protect the cell mid-publish.
type prqCell struct {
	val atomix.Uintptr
	idx atomix.Uint64
	_   cellPad
}

// prqSegment implements Variant-P. A producer claims val via CAS from nil
// to a thread-local "reserved" marker, then CASes idx forward, then CASes
// val from the marker to the real item; if the idx CAS loses the race the
// marker is rolled back. A consumer only ever needs to store nil into val
// once it has established (via idx) that it's the sole owner of the slot.
type prqSegment struct {
	tail atomix.Uint64
	_    pad
	head atomix.Uint64
	_    pad
	next atomicSegment

	cells    []prqCell
	remap    cacheRemap
	ringSize uint64
	mask     uint64
	cfg      segConfig
}

func newPRQSegment(requested int, start uint64, cfg segConfig) *prqSegment {
	ringSize := ringSizeFor(requested, cfg.disablePow2)
	s := &prqSegment{
		cells:    make([]prqCell, ringSize),
		ringSize: ringSize,
		mask:     ringSize - 1,
		cfg:      cfg,
	}
	s.remap = newCacheRemap(ringSize, uint64(unsafe.Sizeof(prqCell{})))
	for i := start; i < start+ringSize; i++ {
		slot := s.slot(i)
		s.cells[slot].val.StoreRelaxed(0)
		s.cells[slot].idx.StoreRelaxed(i)
	}
	s.head.StoreRelaxed(start)
	s.tail.StoreRelaxed(start)
	return s
}

func (s *prqSegment) slot(i uint64) uint64 {
	if s.cfg.disablePow2 {
		return s.remap.at(i % s.ringSize)
	}
	return s.remap.at(i & s.mask)
}

// isReserved reports whether a val word is a per-thread reserved marker
// (odd, per reservedMarker) rather than an item pointer. Item pointers are
// assumed word-aligned, so their LSB is always 0.
func isReserved(v uintptr) bool { return v&1 != 0 }

func reservedMarker(tid int) uintptr { return uintptr((tid << 1) | 1) }

func (s *prqSegment) push(item unsafe.Pointer, tid int) bool {
	tryClose := 0
	marker := reservedMarker(tid)
	sw := spin.Wait{}
	for {
		ticket := s.tail.AddAcqRel(1) - 1
		if isClosedTail(ticket) {
			return false
		}
		cell := &s.cells[s.slot(ticket)]
		idx := cell.idx.LoadAcquire()
		val := cell.val.LoadAcquire()
		if val == 0 {
			if epochOf(idx) <= ticket {
				if !isUnsafeIdx(idx) || s.head.LoadAcquire() <= ticket {
					if cell.val.CompareAndSwapAcqRel(0, marker) {
						if cell.idx.CompareAndSwapAcqRel(idx, ticket+s.ringSize) {
							if cell.val.CompareAndSwapAcqRel(marker, uintptr(item)) {
								return true
							}
							// slot was reclaimed by a consumer between the two CASes; retry.
						} else {
							cell.val.CompareAndSwapAcqRel(marker, 0)
						}
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

func (s *prqSegment) pop(tid int) unsafe.Pointer {
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
			cellIdx := cell.idx.LoadAcquire()
			val := cell.val.LoadAcquire()
			if cellIdx != cell.idx.LoadAcquire() {
				continue
			}
			unsafeBit := isUnsafeIdx(cellIdx)
			idx := epochOf(cellIdx)
			if idx > ticket+s.ringSize {
				break inner
			}
			if val != 0 && !isReserved(val) {
				if idx == ticket+s.ringSize {
					cell.val.StoreRelease(0)
					return unsafe.Pointer(val)
				}
				if unsafeBit {
					if cell.idx.LoadAcquire() == cellIdx {
						break inner
					}
				} else if cell.idx.CompareAndSwapAcqRel(cellIdx, setUnsafeIdx(idx)) {
					break inner
				}
			} else {
				if r&0xff == 0 {
					tt = s.tail.LoadAcquire()
				}
				closed := isClosedTail(tt)
				t := tailIndex(tt)
				if unsafeBit || t < ticket+1 || closed || r > 4096 {
					if isReserved(val) && !cell.val.CompareAndSwapAcqRel(val, 0) {
						continue
					}
					if cell.idx.CompareAndSwapAcqRel(cellIdx, orUnsafeIdx(unsafeBit, ticket+s.ringSize)) {
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

func (s *prqSegment) isEmpty() bool          { return segIsEmpty(&s.head, &s.tail) }
func (s *prqSegment) isClosed() bool         { return isClosedTail(s.tail.LoadAcquire()) }
func (s *prqSegment) headIdx() uint64        { return s.head.LoadAcquire() }
func (s *prqSegment) tailIdx() uint64        { return tailIndex(s.tail.LoadAcquire()) }
func (s *prqSegment) nextStartIndex() uint64 { return s.tailIdx() - 1 }
func (s *prqSegment) loadNext() ringSegment  { return s.next.Load() }
func (s *prqSegment) casNext(old, cur ringSegment) bool {
	return s.next.CompareAndSwap(old, cur)
}
func (s *prqSegment) closeForce()    { forceCloseTail(&s.tail) }
func (s *prqSegment) length() uint64 { return segLength(&s.head, &s.tail) }
func (s *prqSegment) cap() int       { return int(s.ringSize) }
