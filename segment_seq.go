// ©ForgeQueue Contributors 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coreq

import (
	"unsafe"

	"code.hybscloud.com/atomix"
)

// seqCell pairs a plain (non-atomic) value with an atomic sequence number.
// The sequence CAS is the sole synchronization point: whichever producer
// wins the CAS on tail owns the cell and may write val directly, then
// publishes it with a release store to seq.
type seqCell struct {
	seq atomix.Uint64
	val uintptr
	_   cellPad
}

// seqSegment implements Variant-M: a CAS loop on tail/head (rather than
// FAA) paired with a per-cell sequence number, so a claimant's ticket is
// deterministic proof of full/empty rather than a race-prone FAA
// observation. Because of that determinism, closing on overflow is
// immediate and unconditional here, unlike the FAA-based variants which
// tolerate a budget of spurious retries first (see DESIGN.md).
type seqSegment struct {
	tail atomix.Uint64
	_    pad
	head atomix.Uint64
	_    pad
	next atomicSegment

	cells    []seqCell
	remap    cacheRemap
	ringSize uint64
	mask     uint64
	cfg      segConfig
}

func newSeqSegment(requested int, start uint64, cfg segConfig) *seqSegment {
	ringSize := ringSizeFor(requested, cfg.disablePow2)
	s := &seqSegment{
		cells:    make([]seqCell, ringSize),
		ringSize: ringSize,
		mask:     ringSize - 1,
		cfg:      cfg,
	}
	s.remap = newCacheRemap(ringSize, uint64(unsafe.Sizeof(seqCell{})))
	for i := start; i < start+ringSize; i++ {
		slot := s.slot(i)
		s.cells[slot].val = 0
		s.cells[slot].seq.StoreRelaxed(i)
	}
	s.head.StoreRelaxed(start)
	s.tail.StoreRelaxed(start)
	return s
}

func (s *seqSegment) slot(i uint64) uint64 {
	if s.cfg.disablePow2 {
		return s.remap.at(i % s.ringSize)
	}
	return s.remap.at(i & s.mask)
}

func (s *seqSegment) push(item unsafe.Pointer, tid int) bool {
	bo := boundedBackoff{}
	for {
		ticket := s.tail.LoadRelaxed()
		if isClosedTail(ticket) {
			return false
		}
		cell := &s.cells[s.slot(ticket)]
		seq := cell.seq.LoadAcquire()
		switch {
		case ticket == seq:
			if s.tail.CompareAndSwapRelaxed(ticket, ticket+1) {
				cell.val = uintptr(item)
				cell.seq.StoreRelease(seq + 1)
				return true
			}
		case ticket > seq:
			// Deterministic overflow: this ticket was won via CAS, so the
			// ring being behind schedule means it's genuinely full now.
			if closeSegment(&s.tail, ticket-1, true) {
				return false
			}
		}
		bo.wait()
	}
}

func (s *seqSegment) pop(tid int) unsafe.Pointer {
	if s.cfg.cautiousDequeue && segIsEmpty(&s.head, &s.tail) {
		return nil
	}
	bo := boundedBackoff{}
	for {
		ticket := s.head.LoadRelaxed()
		cell := &s.cells[s.slot(ticket)]
		seq := cell.seq.LoadAcquire()
		diff := int64(seq) - int64(ticket+1)
		switch {
		case diff == 0:
			if s.head.CompareAndSwapRelaxed(ticket, ticket+1) {
				item := unsafe.Pointer(cell.val)
				cell.val = 0
				cell.seq.StoreRelease(ticket + s.ringSize)
				return item
			}
		case diff < 0:
			if segIsEmpty(&s.head, &s.tail) {
				return nil
			}
		}
		bo.wait()
	}
}

func (s *seqSegment) isEmpty() bool          { return segIsEmpty(&s.head, &s.tail) }
func (s *seqSegment) isClosed() bool         { return isClosedTail(s.tail.LoadAcquire()) }
func (s *seqSegment) headIdx() uint64        { return s.head.LoadAcquire() }
func (s *seqSegment) tailIdx() uint64        { return tailIndex(s.tail.LoadAcquire()) }
func (s *seqSegment) nextStartIndex() uint64 { return s.tailIdx() - 1 }
func (s *seqSegment) loadNext() ringSegment  { return s.next.Load() }
func (s *seqSegment) casNext(old, cur ringSegment) bool {
	return s.next.CompareAndSwap(old, cur)
}
func (s *seqSegment) closeForce()    { forceCloseTail(&s.tail) }
func (s *seqSegment) length() uint64 { return segLength(&s.head, &s.tail) }
func (s *seqSegment) cap() int       { return int(s.ringSize) }

// boundedSeqSegment is Variant-M used standalone (never linked, never
// closes): the original's BoundedMTQueue. A bounded ring simply refuses
// once tail has lapped head instead of ever setting the closing bit.
type boundedSeqSegment struct {
	seqSegment
}

func newBoundedSeqSegment(requested int, cfg segConfig) *boundedSeqSegment {
	return &boundedSeqSegment{seqSegment: *newSeqSegment(requested, 0, cfg)}
}

func (s *boundedSeqSegment) push(item unsafe.Pointer, tid int) bool {
	bo := boundedBackoff{}
	for {
		ticket := s.tail.LoadRelaxed()
		cell := &s.cells[s.slot(ticket)]
		seq := cell.seq.LoadAcquire()
		switch {
		case ticket == seq:
			if s.tail.CompareAndSwapRelaxed(ticket, ticket+1) {
				cell.val = uintptr(item)
				cell.seq.StoreRelease(seq + 1)
				return true
			}
		case ticket > seq:
			return false
		}
		bo.wait()
	}
}

func (s *boundedSeqSegment) length() uint64 {
	t := s.tail.LoadRelaxed()
	h := s.head.LoadRelaxed()
	if t > h {
		return t - h
	}
	return 0
}
