// ©ForgeQueue Contributors 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coreq

import "unsafe"

// SegmentVariant selects the ring-segment algorithm used by a
// segment-chained queue.
type SegmentVariant int

const (
	// VariantCRQ allocates cell indices with a fetch-and-add and commits
	// each cell with a single double-word compare-and-swap on a packed
	// (value, index) pair.
	VariantCRQ SegmentVariant = iota
	// VariantPRQ allocates cell indices with a fetch-and-add like
	// VariantCRQ, but commits each cell with two single-word
	// compare-and-swaps guarded by a reserved marker value.
	VariantPRQ
	// VariantMTQ allocates cell indices with a compare-and-swap loop
	// against a per-cell sequence number instead of a fetch-and-add.
	VariantMTQ
)

// SegmentConfig tunes the per-instance behavior of a segment-chained
// queue's ring segments.
type SegmentConfig struct {
	// DisablePow2 keeps the requested per-segment size exactly as given
	// instead of rounding up to the next power of 2.
	DisablePow2 bool
	// TryCloseBudget is the number of failed push attempts a Variant-C
	// or Variant-P segment tolerates before forcing itself closed. Not
	// consulted by Variant-M, whose CAS-based ticket allocation makes an
	// overflow observation conclusive rather than possibly spurious.
	TryCloseBudget int
	// CautiousDequeue makes pop() check whether the segment looks empty
	// before claiming a head ticket, returning empty at once if so; this
	// trades one extra branch for fewer contended head increments.
	CautiousDequeue bool
}

func (c SegmentConfig) toInternal() segConfig {
	cfg := defaultSegConfig()
	cfg.disablePow2 = c.DisablePow2
	cfg.cautiousDequeue = c.CautiousDequeue
	if c.TryCloseBudget > 0 {
		cfg.tryCloseBudget = c.TryCloseBudget
	}
	return cfg
}

func segmentFactoryFor(variant SegmentVariant, cfg segConfig) func(ringSize int, start uint64) ringSegment {
	switch variant {
	case VariantPRQ:
		return func(ringSize int, start uint64) ringSegment { return newPRQSegment(ringSize, start, cfg) }
	case VariantMTQ:
		return func(ringSize int, start uint64) ringSegment { return newSeqSegment(ringSize, start, cfg) }
	default:
		return func(ringSize int, start uint64) ringSegment { return newCRQSegment(ringSize, start, cfg) }
	}
}

// SegmentedPtr is the common interface implemented by the segment-chained
// queues below, over unsafe.Pointer payloads. Unlike [ProducerPtr] and
// [ConsumerPtr], both methods take a caller-supplied tid: the
// hazard-pointer scheme protecting the segment chain needs a stable
// per-thread slot, something the SPSC family never required.
type SegmentedPtr interface {
	Enqueue(elem unsafe.Pointer, tid int) error
	Dequeue(tid int) (unsafe.Pointer, error)
}

// UnboundedPtr is an unbounded MPMC queue of unsafe.Pointer values built
// by linking ring segments end to end as they fill; see [NewUnbounded].
type UnboundedPtr struct {
	a *linkedAdapter
}

// NewUnbounded creates an unbounded MPMC queue using the given ring
// segment variant, each segment sized to ringSize (rounded up to a power
// of 2 unless cfg disables that), and maxThreads distinct caller
// identities for hazard-pointer bookkeeping.
func NewUnbounded(variant SegmentVariant, ringSize, maxThreads int, cfg SegmentConfig) *UnboundedPtr {
	if ringSize < 2 || maxThreads < 1 {
		panic("coreq: NewUnbounded requires ringSize >= 2 and maxThreads >= 1")
	}
	internal := cfg.toInternal()
	factory := segmentFactoryFor(variant, internal)
	newSeg := func(start uint64) ringSegment { return factory(ringSize, start) }
	return &UnboundedPtr{a: newLinkedAdapter(ringSize, maxThreads, newSeg)}
}

// Enqueue adds elem to the queue. Enqueue never blocks and only fails
// (ErrWouldBlock) after [UnboundedPtr.Drain] has been called.
func (q *UnboundedPtr) Enqueue(elem unsafe.Pointer, tid int) error {
	if q.a.push(elem, tid) {
		return nil
	}
	return ErrWouldBlock
}

// Dequeue removes and returns an element, or ErrWouldBlock if empty.
func (q *UnboundedPtr) Dequeue(tid int) (unsafe.Pointer, error) {
	if item := q.a.pop(tid); item != nil {
		return item, nil
	}
	return nil, ErrWouldBlock
}

// Drain marks the queue as no longer accepting enqueues: every later
// Enqueue returns ErrWouldBlock. Dequeue is unaffected; it keeps returning
// the remaining items and then ErrWouldBlock, with no separate
// end-of-stream signal.
func (q *UnboundedPtr) Drain() { q.a.drain() }

// Len returns an approximation of the number of items currently queued.
func (q *UnboundedPtr) Len(tid int) uint64 { return q.a.length(tid) }

// BoundedSegmentsPtr is an MPMC queue of unsafe.Pointer values that caps
// the number of live ring segments rather than the number of items; see
// [NewBoundedSegments].
type BoundedSegmentsPtr struct {
	a *boundedSegmentAdapter
}

// NewBoundedSegments creates a queue whose total capacity is
// approximately totalCapacity, spread across at most maxSegments chained
// ring segments.
func NewBoundedSegments(variant SegmentVariant, totalCapacity, maxSegments, maxThreads int, cfg SegmentConfig) *BoundedSegmentsPtr {
	if totalCapacity < 2 || maxSegments < 1 || maxThreads < 1 {
		panic("coreq: NewBoundedSegments requires totalCapacity >= 2, maxSegments >= 1, maxThreads >= 1")
	}
	internal := cfg.toInternal()
	factory := segmentFactoryFor(variant, internal)
	return &BoundedSegmentsPtr{a: newBoundedSegmentAdapter(totalCapacity, maxSegments, maxThreads, factory)}
}

// Enqueue adds elem to the queue, or returns ErrAllocationFailed if doing
// so would require exceeding the configured segment cap.
func (q *BoundedSegmentsPtr) Enqueue(elem unsafe.Pointer, tid int) error {
	if q.a.push(elem, tid) {
		return nil
	}
	return ErrAllocationFailed
}

// Dequeue removes and returns an element, or ErrWouldBlock if empty.
func (q *BoundedSegmentsPtr) Dequeue(tid int) (unsafe.Pointer, error) {
	if item := q.a.pop(tid); item != nil {
		return item, nil
	}
	return nil, ErrWouldBlock
}

// SegmentCount returns the number of segments linked so far.
func (q *BoundedSegmentsPtr) SegmentCount() uint64 { return q.a.segmentCount() }

// BoundedItemsPtr is an MPMC queue of unsafe.Pointer values that caps the
// number of live items directly, independent of how many ring segments
// that requires; see [NewBoundedItems].
type BoundedItemsPtr struct {
	a *boundedItemAdapter
}

// NewBoundedItems creates a queue that never holds more than itemCap
// items at once, backed by ring segments sized to hold itemCap items in
// one segment.
func NewBoundedItems(variant SegmentVariant, itemCap, maxThreads int, cfg SegmentConfig) *BoundedItemsPtr {
	if itemCap < 2 || maxThreads < 1 {
		panic("coreq: NewBoundedItems requires itemCap >= 2 and maxThreads >= 1")
	}
	internal := cfg.toInternal()
	factory := segmentFactoryFor(variant, internal)
	newSeg := func(start uint64) ringSegment { return factory(itemCap, start) }
	return &BoundedItemsPtr{a: newBoundedItemAdapter(itemCap, maxThreads, newSeg)}
}

// Enqueue adds elem to the queue, or returns ErrAllocationFailed once
// itemCap items are already live.
func (q *BoundedItemsPtr) Enqueue(elem unsafe.Pointer, tid int) error {
	if q.a.push(elem, tid) {
		return nil
	}
	return ErrAllocationFailed
}

// Dequeue removes and returns an element, or ErrWouldBlock if empty.
func (q *BoundedItemsPtr) Dequeue(tid int) (unsafe.Pointer, error) {
	if item := q.a.pop(tid); item != nil {
		return item, nil
	}
	return nil, ErrWouldBlock
}

// Len returns the number of items currently live.
func (q *BoundedItemsPtr) Len(tid int) uint64 { return q.a.length(tid) }

// Cap returns the configured item cap.
func (q *BoundedItemsPtr) Cap() int { return q.a.capacity() }

// BoundedMTQ is a single fixed-size Variant-M ring used directly, with no
// segment chaining and no closing: once full it simply refuses further
// pushes until the consumer catches up. Unlike [NewBoundedItems], there is
// only ever one ring segment and no hazard-pointer bookkeeping at all.
type BoundedMTQ struct {
	s *boundedSeqSegment
}

// NewBoundedMTQ creates a standalone bounded Variant-M ring of the given
// capacity (rounded up to a power of 2 unless cfg disables that).
func NewBoundedMTQ(capacity int, cfg SegmentConfig) *BoundedMTQ {
	if capacity < 2 {
		panic("coreq: NewBoundedMTQ requires capacity >= 2")
	}
	return &BoundedMTQ{s: newBoundedSeqSegment(capacity, cfg.toInternal())}
}

// Enqueue adds elem to the ring, or returns ErrWouldBlock if full.
func (q *BoundedMTQ) Enqueue(elem unsafe.Pointer, tid int) error {
	if q.s.push(elem, tid) {
		return nil
	}
	return ErrWouldBlock
}

// Dequeue removes and returns an element, or ErrWouldBlock if empty.
func (q *BoundedMTQ) Dequeue(tid int) (unsafe.Pointer, error) {
	if item := q.s.pop(tid); item != nil {
		return item, nil
	}
	return nil, ErrWouldBlock
}

// Len returns the number of items currently queued.
func (q *BoundedMTQ) Len() uint64 { return q.s.length() }

// Cap returns the ring's capacity.
func (q *BoundedMTQ) Cap() int { return q.s.cap() }
