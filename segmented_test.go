// ©ForgeQueue Contributors 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coreq_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"unsafe"

	"code.forgequeue.dev/coreq"
)

func ptrOf(v *int) unsafe.Pointer { return unsafe.Pointer(v) }

var variants = []struct {
	name    string
	variant coreq.SegmentVariant
}{
	{"CRQ", coreq.VariantCRQ},
	{"PRQ", coreq.VariantPRQ},
	{"MTQ", coreq.VariantMTQ},
}

func TestUnboundedFIFO(t *testing.T) {
	for _, v := range variants {
		t.Run(v.name, func(t *testing.T) {
			q := coreq.NewUnbounded(v.variant, 4, 4, coreq.SegmentConfig{})
			vals := make([]int, 16)
			for i := range vals {
				vals[i] = i
				if err := q.Enqueue(ptrOf(&vals[i]), 0); err != nil {
					t.Fatalf("Enqueue(%d): %v", i, err)
				}
			}
			for i := range vals {
				p, err := q.Dequeue(0)
				if err != nil {
					t.Fatalf("Dequeue(%d): %v", i, err)
				}
				got := *(*int)(p)
				if got != i {
					t.Fatalf("Dequeue(%d): got %d, want %d", i, got, i)
				}
			}
			if _, err := q.Dequeue(0); !errors.Is(err, coreq.ErrWouldBlock) {
				t.Fatalf("Dequeue on empty: got %v, want ErrWouldBlock", err)
			}
		})
	}
}

func TestUnboundedGrowsPastOneSegment(t *testing.T) {
	q := coreq.NewUnbounded(coreq.VariantCRQ, 4, 2, coreq.SegmentConfig{})
	vals := make([]int, 64)
	for i := range vals {
		vals[i] = i
		if err := q.Enqueue(ptrOf(&vals[i]), 0); err != nil {
			t.Fatalf("Enqueue(%d): %v", i, err)
		}
	}
	for i := range vals {
		p, err := q.Dequeue(0)
		if err != nil {
			t.Fatalf("Dequeue(%d): %v", i, err)
		}
		if *(*int)(p) != i {
			t.Fatalf("Dequeue(%d): got %d, want %d", i, *(*int)(p), i)
		}
	}
}

func TestUnboundedDrainStopsEnqueue(t *testing.T) {
	q := coreq.NewUnbounded(coreq.VariantPRQ, 4, 2, coreq.SegmentConfig{})
	v := 1
	if err := q.Enqueue(ptrOf(&v), 0); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	q.Drain()
	v2 := 2
	if err := q.Enqueue(ptrOf(&v2), 0); !errors.Is(err, coreq.ErrWouldBlock) {
		t.Fatalf("Enqueue after Drain: got %v, want ErrWouldBlock", err)
	}
	if _, err := q.Dequeue(0); err != nil {
		t.Fatalf("Dequeue after Drain should still return the queued item: %v", err)
	}
}

func TestUnboundedConcurrentProducersConsumers(t *testing.T) {
	const producers, consumers, perProducer = 4, 4, 2000
	q := coreq.NewUnbounded(coreq.VariantCRQ, 64, producers+consumers, coreq.SegmentConfig{})

	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func(tid int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				v := new(int)
				*v = i
				for q.Enqueue(unsafe.Pointer(v), tid) != nil {
				}
			}
		}(p)
	}

	var received atomic.Int64
	var cwg sync.WaitGroup
	cwg.Add(consumers)
	done := make(chan struct{})
	for c := 0; c < consumers; c++ {
		go func(tid int) {
			defer cwg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				if _, err := q.Dequeue(producers + tid); err == nil {
					received.Add(1)
				}
			}
		}(c)
	}

	wg.Wait()
	for received.Load() < int64(producers*perProducer) {
	}
	close(done)
	cwg.Wait()
}

func TestBoundedSegmentsCapsSegments(t *testing.T) {
	q := coreq.NewBoundedSegments(coreq.VariantCRQ, 8, 2, 4, coreq.SegmentConfig{})
	admitted := 0
	for i := 0; i < 100; i++ {
		v := i
		if err := q.Enqueue(ptrOf(&v), 0); err != nil {
			break
		}
		admitted++
	}
	if q.SegmentCount() > 2 {
		t.Fatalf("SegmentCount: got %d, want <= 2", q.SegmentCount())
	}
	if admitted == 0 {
		t.Fatal("expected at least one admitted item")
	}
}

func TestBoundedItemsCapsItems(t *testing.T) {
	q := coreq.NewBoundedItems(coreq.VariantPRQ, 8, 4, coreq.SegmentConfig{})
	for i := 0; i < 8; i++ {
		v := i
		if err := q.Enqueue(ptrOf(&v), 0); err != nil {
			t.Fatalf("Enqueue(%d): %v", i, err)
		}
	}
	v := 999
	if err := q.Enqueue(ptrOf(&v), 0); !errors.Is(err, coreq.ErrAllocationFailed) {
		t.Fatalf("Enqueue past cap: got %v, want ErrAllocationFailed", err)
	}
	if got := q.Len(0); got != 8 {
		t.Fatalf("Len: got %d, want 8", got)
	}
	if _, err := q.Dequeue(0); err != nil {
		t.Fatalf("Dequeue: %v", err)
	}
	if err := q.Enqueue(ptrOf(&v), 0); err != nil {
		t.Fatalf("Enqueue after pop should succeed: %v", err)
	}
}

func TestBoundedMTQFIFOAndFull(t *testing.T) {
	q := coreq.NewBoundedMTQ(4, coreq.SegmentConfig{})
	vals := make([]int, 4)
	for i := range vals {
		vals[i] = i
		if err := q.Enqueue(ptrOf(&vals[i]), 0); err != nil {
			t.Fatalf("Enqueue(%d): %v", i, err)
		}
	}
	extra := 99
	if err := q.Enqueue(ptrOf(&extra), 0); !errors.Is(err, coreq.ErrWouldBlock) {
		t.Fatalf("Enqueue past cap: got %v, want ErrWouldBlock", err)
	}
	for i := range vals {
		p, err := q.Dequeue(0)
		if err != nil {
			t.Fatalf("Dequeue(%d): %v", i, err)
		}
		if got := *(*int)(p); got != i {
			t.Fatalf("Dequeue(%d): got %d, want %d", i, got, i)
		}
	}
	if _, err := q.Dequeue(0); !errors.Is(err, coreq.ErrWouldBlock) {
		t.Fatalf("Dequeue on empty: got %v, want ErrWouldBlock", err)
	}
	// A BoundedMTQ never closes, unlike the chained Variant-M segments
	// used inside NewUnbounded/NewBoundedSegments/NewBoundedItems: it
	// should accept a fresh round of pushes after draining.
	v := 7
	if err := q.Enqueue(ptrOf(&v), 0); err != nil {
		t.Fatalf("Enqueue after drain: %v", err)
	}
}

// TestBoundedItemProducerConsumerRecovery is the regression test for the
// liveness fix in bounded_item.go: a producer thread that fills the queue
// and never calls pop itself must still be able to push again once a
// different thread drains an item.
func TestBoundedItemProducerConsumerRecovery(t *testing.T) {
	q := coreq.NewBoundedItems(coreq.VariantCRQ, 2, 2, coreq.SegmentConfig{})
	a, b, c := 1, 2, 3
	if err := q.Enqueue(ptrOf(&a), 0); err != nil {
		t.Fatalf("Enqueue a (tid 0): %v", err)
	}
	if err := q.Enqueue(ptrOf(&b), 0); err != nil {
		t.Fatalf("Enqueue b (tid 0): %v", err)
	}
	if err := q.Enqueue(ptrOf(&c), 0); !errors.Is(err, coreq.ErrAllocationFailed) {
		t.Fatalf("Enqueue over cap (tid 0): got %v, want ErrAllocationFailed", err)
	}

	// tid 0 is producer-only in this scenario; the pop happens on tid 1.
	if _, err := q.Dequeue(1); err != nil {
		t.Fatalf("Dequeue (tid 1): %v", err)
	}

	if err := q.Enqueue(ptrOf(&c), 0); err != nil {
		t.Fatalf("producer's next push after a different thread's pop should succeed, got: %v", err)
	}
}

func TestBoundedItemProducerConsumerRecoveryConcurrent(t *testing.T) {
	q := coreq.NewBoundedItems(coreq.VariantPRQ, 4, 2, coreq.SegmentConfig{})
	vals := make([]int, 4)
	for i := range vals {
		vals[i] = i
		if err := q.Enqueue(ptrOf(&vals[i]), 0); err != nil {
			t.Fatalf("fill Enqueue(%d): %v", i, err)
		}
	}
	if err := q.Enqueue(ptrOf(&vals[0]), 0); !errors.Is(err, coreq.ErrAllocationFailed) {
		t.Fatalf("Enqueue over cap: got %v, want ErrAllocationFailed", err)
	}

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for {
			if _, err := q.Dequeue(1); err == nil {
				return
			}
		}
	}()
	<-drained

	extra := 99
	pushed := make(chan error, 1)
	go func() { pushed <- q.Enqueue(ptrOf(&extra), 0) }()
	if err := <-pushed; err != nil {
		t.Fatalf("producer tid never pops but must resume pushing after a consumer-tid pop: %v", err)
	}
}

func collectMPMC(t *testing.T, variant coreq.SegmentVariant, producers, consumers, perProducer int) []int {
	t.Helper()
	q := coreq.NewUnbounded(variant, 64, producers+consumers, coreq.SegmentConfig{})
	total := producers * perProducer

	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func(tid int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				v := new(int)
				*v = tid*perProducer + i
				for q.Enqueue(unsafe.Pointer(v), tid) != nil {
				}
			}
		}(p)
	}

	var mu sync.Mutex
	popped := make([]int, 0, total)
	var count atomic.Int64
	done := make(chan struct{})
	var cwg sync.WaitGroup
	cwg.Add(consumers)
	for c := 0; c < consumers; c++ {
		go func(tid int) {
			defer cwg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				p, err := q.Dequeue(producers + tid)
				if err != nil {
					continue
				}
				mu.Lock()
				popped = append(popped, *(*int)(p))
				mu.Unlock()
				count.Add(1)
			}
		}(c)
	}

	wg.Wait()
	for count.Load() < int64(total) {
	}
	close(done)
	cwg.Wait()
	return popped
}

// TestConservationAcrossVariants checks invariant #1: every item pushed is
// eventually accounted for in the pop stream, once producers and consumers
// have both finished, across every ring segment variant.
func TestConservationAcrossVariants(t *testing.T) {
	const producers, consumers, perProducer = 4, 4, 5000
	for _, v := range variants {
		t.Run(v.name, func(t *testing.T) {
			popped := collectMPMC(t, v.variant, producers, consumers, perProducer)
			want := producers * perProducer
			if len(popped) != want {
				t.Fatalf("conservation: popped %d items, want %d", len(popped), want)
			}
		})
	}
}

// TestNoDuplicatesAcrossVariants checks invariant #3: no successfully
// pushed item is ever popped twice.
func TestNoDuplicatesAcrossVariants(t *testing.T) {
	const producers, consumers, perProducer = 4, 4, 5000
	for _, v := range variants {
		t.Run(v.name, func(t *testing.T) {
			popped := collectMPMC(t, v.variant, producers, consumers, perProducer)
			seen := make(map[int]bool, len(popped))
			for _, val := range popped {
				if seen[val] {
					t.Fatalf("value %d popped more than once", val)
				}
				seen[val] = true
			}
		})
	}
}

// TestNoPhantomItemsAcrossVariants checks invariant #4: pop never returns a
// value that was never pushed. Every producer tags its values in the
// disjoint range [tid*perProducer, (tid+1)*perProducer), so any value
// outside [0, producers*perProducer) is proof of a phantom.
func TestNoPhantomItemsAcrossVariants(t *testing.T) {
	const producers, consumers, perProducer = 4, 4, 5000
	for _, v := range variants {
		t.Run(v.name, func(t *testing.T) {
			popped := collectMPMC(t, v.variant, producers, consumers, perProducer)
			bound := producers * perProducer
			for _, val := range popped {
				if val < 0 || val >= bound {
					t.Fatalf("phantom item: %d was never pushed", val)
				}
			}
		})
	}
}

func TestBoundedItemsRepeatedOverCapPushFails(t *testing.T) {
	q := coreq.NewBoundedItems(coreq.VariantCRQ, 2, 2, coreq.SegmentConfig{})
	a, b, c := 1, 2, 3
	if err := q.Enqueue(ptrOf(&a), 0); err != nil {
		t.Fatalf("Enqueue a: %v", err)
	}
	if err := q.Enqueue(ptrOf(&b), 0); err != nil {
		t.Fatalf("Enqueue b: %v", err)
	}
	if err := q.Enqueue(ptrOf(&c), 0); !errors.Is(err, coreq.ErrAllocationFailed) {
		t.Fatalf("Enqueue over cap: got %v, want ErrAllocationFailed", err)
	}
	// A second call from the same thread re-reads the counters and must
	// reach the same verdict.
	if err := q.Enqueue(ptrOf(&c), 0); !errors.Is(err, coreq.ErrAllocationFailed) {
		t.Fatalf("Enqueue over cap (cached): got %v, want ErrAllocationFailed", err)
	}
}
