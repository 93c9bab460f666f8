// ©ForgeQueue Contributors 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package coreq provides bounded and unbounded FIFO queue implementations
// for pointer-sized payloads.
//
// The fixed-capacity family is a single-producer single-consumer Lamport
// ring buffer ([NewSPSC], [NewSPSCIndirect], [NewSPSCPtr]) — the one
// shape that needs no thread identity to run safely. Every
// multi-producer or multi-consumer shape is built instead from chained
// ring segments: [NewUnbounded] grows without limit by linking fresh
// segments as old ones fill, [NewBoundedSegments] caps the number of
// live segments, and [NewBoundedItems] caps the number of live items
// regardless of how many segments that takes. [NewBoundedMTQ] is a
// single such ring used directly with no chaining at all. [NewMesh]
// emulates a multi-producer multi-consumer queue as a grid of
// single-producer single-consumer rings, avoiding CAS entirely at the
// cost of scanning across rows or columns under contention.
//
// # Quick Start
//
//	q := coreq.NewSPSC[Event](1024)
//	q := coreq.NewUnbounded(coreq.VariantCRQ, 1024, maxThreads, coreq.SegmentConfig{})
//
// Builder API for the SPSC family:
//
//	q := coreq.BuildSPSC[Event](coreq.New(1024).SingleProducer().SingleConsumer())
//
// # Basic Usage
//
//	// Create a queue
//	q := coreq.NewSPSC[int](1024)
//
//	// Enqueue (non-blocking)
//	value := 42
//	err := q.Enqueue(&value)
//	if coreq.IsWouldBlock(err) {
//	    // Queue is full - handle backpressure
//	}
//
//	// Dequeue (non-blocking)
//	elem, err := q.Dequeue()
//	if coreq.IsWouldBlock(err) {
//	    // Queue is empty - try again later
//	}
//
// # Common Patterns
//
// Pipeline Stage (SPSC):
//
//	// Stage 1 → Queue → Stage 2
//	q := coreq.NewSPSC[Data](1024)
//
//	go func() { // Producer (Stage 1)
//	    backoff := iox.Backoff{}
//	    for data := range input {
//	        for q.Enqueue(&data) != nil {
//	            backoff.Wait()
//	        }
//	        backoff.Reset()
//	    }
//	}()
//
//	go func() { // Consumer (Stage 2)
//	    backoff := iox.Backoff{}
//	    for {
//	        data, err := q.Dequeue()
//	        if err != nil {
//	            backoff.Wait()
//	            continue
//	        }
//	        backoff.Reset()
//	        process(data)
//	    }
//	}()
//
// Worker Pool (many producers, many consumers):
//
//	// Multiple submitters → Multiple workers, unbounded growth
//	maxThreads := numSubmitters + numWorkers
//	q := coreq.NewUnbounded(coreq.VariantCRQ, 4096, maxThreads, coreq.SegmentConfig{})
//
//	// Workers, each with a fixed tid in [numSubmitters, maxThreads)
//	for w := range numWorkers {
//	    go func(tid int) {
//	        for {
//	            job, err := q.Dequeue(tid)
//	            if err == nil {
//	                (*Job)(job).Run()
//	            }
//	        }
//	    }(numSubmitters + w)
//	}
//
//	// Submitters, each with a fixed tid in [0, numSubmitters)
//	func Submit(tid int, j Job) error {
//	    return q.Enqueue(unsafe.Pointer(&j), tid)
//	}
//
// All-to-All (many producers, many consumers, no unbounded growth):
//
//	m := coreq.NewMesh(producers, consumers, 256)
//	m.Push(producerID, unsafe.Pointer(&job))
//	item, err := m.Pop(consumerID)
//
// # Queue Variants
//
// Three payload shapes are available for the SPSC family:
//
//	NewSPSC[T]()      - Generic type-safe queue for any type
//	NewSPSCIndirect() - Queue for uintptr values (pool indices, handles)
//	NewSPSCPtr()      - Queue for unsafe.Pointer (zero-copy pointer passing)
//
// The segment-chained family ([NewUnbounded], [NewBoundedSegments],
// [NewBoundedItems], [NewBoundedMTQ]) and [NewMesh] all operate on
// unsafe.Pointer only, since their caller-supplied tid parameter has no
// natural generic counterpart.
//
// When to use Indirect:
//
//	// Buffer pool with index-based access
//	pool := make([][]byte, 1024)
//	freeList := coreq.NewSPSCIndirect(1024)
//
//	// Initialize free list with buffer indices
//	for i := range pool {
//	    pool[i] = make([]byte, 4096)
//	    freeList.Enqueue(uintptr(i))
//	}
//
//	// Allocate: get index from free list
//	idx, err := freeList.Dequeue()
//	buf := pool[idx]
//
//	// Free: return index to free list
//	freeList.Enqueue(idx)
//
// When to use Ptr:
//
//	// Zero-copy object passing between goroutines
//	q := coreq.NewSPSCPtr(1024)
//
//	// Producer creates object once
//	msg := &Message{Data: largePayload}
//	q.Enqueue(unsafe.Pointer(msg))
//
//	// Consumer receives same pointer - no copy
//	ptr, _ := q.Dequeue()
//	msg := (*Message)(ptr)
//
// # Segment-Chained Queues
//
// [New] and [BuildSPSC] size a queue's storage once at construction. The
// segment-chained family instead grows (or is bounded) by linking
// fixed-size ring segments end to end:
//
//	q := coreq.NewUnbounded(coreq.VariantCRQ, 1024, maxThreads, coreq.SegmentConfig{})
//	q := coreq.NewBoundedSegments(coreq.VariantPRQ, 1024, 4, maxThreads, coreq.SegmentConfig{})
//	q := coreq.NewBoundedItems(coreq.VariantMTQ, 4096, maxThreads, coreq.SegmentConfig{})
//
// Three ring segment variants are available, chosen by a [SegmentVariant]:
//
//	VariantCRQ - FAA index allocation, double-word CAS per cell
//	VariantPRQ - FAA index allocation, single-word CAS with a marker bit
//	VariantMTQ - CAS-loop ticket allocation with per-cell sequence numbers
//
// Retired segments are reclaimed with hazard pointers once no thread's
// traversal still refers to them; see [SegmentConfig] for tuning the
// close-retry budget and cautious-dequeue behavior. Every method on the
// segment-chained family and on [Mesh] takes an explicit tid identifying
// the calling goroutine — see [SegmentedPtr] — because that thread
// identity indexes the hazard-pointer table or the mesh's per-thread scan
// cursor. Callers own tid assignment: a fixed slice of numbered
// goroutines, not a value derived per call.
//
// [NewBoundedMTQ] builds a single Variant-M ring directly, with no
// chaining, no closing, and no hazard pointers at all — it just refuses
// pushes once full and accepts them again once the consumer drains it.
//
// # Error Handling
//
// Queues return [ErrWouldBlock] when operations cannot proceed. This error
// is sourced from [code.hybscloud.com/iox] for ecosystem consistency.
// [ErrAllocationFailed] is returned instead by [BoundedSegmentsPtr] and
// [BoundedItemsPtr] when a push cannot proceed because the configured
// segment or item cap is reached — retrying immediately will not help
// until a consumer makes room, unlike a transient [ErrWouldBlock].
//
//	// Retry loop with backoff
//	backoff := iox.Backoff{}
//	for {
//	    err := q.Enqueue(&item)
//	    if err == nil {
//	        backoff.Reset()
//	        break
//	    }
//	    if !coreq.IsWouldBlock(err) {
//	        return err // Unexpected error
//	    }
//	    backoff.Wait()
//	}
//
// For semantic error classification (delegates to iox):
//
//	coreq.IsWouldBlock(err)  // true if queue full/empty
//	coreq.IsSemantic(err)    // true if control flow signal
//	coreq.IsNonFailure(err)  // true if nil or ErrWouldBlock
//
// # Capacity and Length
//
// Capacity rounds up to the next power of 2 unless a [SegmentConfig]
// explicitly disables that for the segment-chained family:
//
//	q := coreq.NewSPSC[int](3)     // Actual capacity: 4
//	q := coreq.NewSPSC[int](4)     // Actual capacity: 4
//	q := coreq.NewSPSC[int](1000)  // Actual capacity: 1024
//	q := coreq.NewSPSC[int](1024)  // Actual capacity: 1024
//
// Minimum capacity is 2 (already a power of 2). Panic if capacity < 2.
//
// Length is intentionally not provided on the SPSC family because
// accurate counts in lock-free algorithms require expensive cross-core
// synchronization; the segment-chained family exposes an approximate
// Len(tid) where tracking it is cheap enough to be worth the caveat.
//
// # Thread Safety
//
// The SPSC family enforces exactly one producer goroutine and one
// consumer goroutine; violating that causes undefined behavior including
// data corruption and races. The segment-chained family and [Mesh] allow
// any number of producer and consumer goroutines, each identified by its
// own tid.
//
// # Graceful Shutdown
//
// [UnboundedPtr] grows without bound, so it has no natural "full" signal.
// Use the [Drainer] interface once producers are done to make every later
// Enqueue fail with [ErrWouldBlock]. Dequeue is unaffected: consumers
// drain the remaining items and then see [ErrWouldBlock] as usual, with
// no separate end-of-stream signal.
//
//	// Producer goroutines finish
//	prodWg.Wait()
//
//	// Signal no more enqueues will occur
//	if d, ok := q.(coreq.Drainer); ok {
//	    d.Drain()
//	}
//
//	// Enqueue now fails; consumers drain the remaining items
//
// Drain is a hint — the caller must ensure no further Enqueue calls will
// be made. The bounded segment-chained queues and the SPSC family do not
// implement [Drainer]; a full bounded queue and an empty one both signal
// through the ordinary [ErrWouldBlock]/[ErrAllocationFailed] path.
//
// # Race Detection
//
// Go's race detector is not designed for lock-free algorithm verification.
// The race detector tracks explicit synchronization primitives (mutex, channels,
// WaitGroup) but cannot observe happens-before relationships established through
// atomic memory orderings (acquire-release semantics).
//
// Lock-free queues use sequence numbers with acquire-release semantics to
// protect non-atomic data fields. These algorithms are correct, but the race
// detector may report false positives because it cannot track synchronization
// provided by atomic operations on separate variables.
//
// For lock-free algorithm correctness verification, use:
//   - Formal verification tools (TLA+, SPIN)
//   - Stress testing without race detector
//   - Memory model analysis
//
// Tests incompatible with race detection skip themselves at run time when
// [RaceEnabled] is true.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/iox] for semantic errors,
// [code.hybscloud.com/atomix] for atomic primitives with explicit
// memory ordering, [code.hybscloud.com/spin] for CPU pause instructions,
// and [github.com/cespare/xxhash/v2] to seed per-thread scan cursors in
// [Mesh] from a thread id.
package coreq
