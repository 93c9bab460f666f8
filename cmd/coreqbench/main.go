// ©ForgeQueue Contributors 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command coreqbench drives a producer/consumer throughput benchmark
// across coreq's queue variants, pinning each worker goroutine to its own
// CPU when running on Linux.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"code.forgequeue.dev/coreq"
	"code.hybscloud.com/iox"
)

func main() {
	var (
		producers = flag.Int("producers", 4, "number of producer goroutines")
		consumers = flag.Int("consumers", 4, "number of consumer goroutines")
		perWorker = flag.Int("ops", 200000, "operations per producer")
		queueType = flag.String("queue", "unbounded", "queue under test: unbounded, bounded-items, mux, mesh, spsc")
		capacity  = flag.Int("capacity", 4096, "queue/segment capacity")
		pin       = flag.Bool("pin", true, "pin worker goroutines to CPUs when supported")
		duration  time.Duration
	)
	flag.Parse()

	slog.Info("starting benchmark",
		"queue", *queueType,
		"producers", *producers,
		"consumers", *consumers,
		"ops_per_producer", *perWorker,
		"capacity", *capacity,
		"gomaxprocs", runtime.GOMAXPROCS(0),
	)

	start := time.Now()
	total := runBenchmark(*queueType, *producers, *consumers, *perWorker, *capacity, *pin)
	duration = time.Since(start)

	slog.Info("benchmark complete",
		"total_ops", total,
		"elapsed", duration,
		"ops_per_sec", fmt.Sprintf("%.0f", float64(total)/duration.Seconds()),
	)
}

type benchQueue interface {
	Enqueue(elem unsafe.Pointer, tid int) error
	Dequeue(tid int) (unsafe.Pointer, error)
}

// muxAdapter and meshAdapter give the mutex-based baseline and the
// all-to-all mesh the same shape as the segment-chained queues above, so
// runBenchmark can drive all five variants through one code path.

type muxAdapter struct{ q *MuxQueue }

func (m muxAdapter) Enqueue(elem unsafe.Pointer, _ int) error {
	if m.q.push(elem) {
		return nil
	}
	return coreq.ErrWouldBlock
}

func (m muxAdapter) Dequeue(_ int) (unsafe.Pointer, error) {
	if item := m.q.pop(); item != nil {
		return item, nil
	}
	return nil, coreq.ErrWouldBlock
}

type meshAdapter struct {
	m          *coreq.Mesh
	producerOf func(tid int) int
	consumerOf func(tid int) int
}

func (a meshAdapter) Enqueue(elem unsafe.Pointer, tid int) error {
	return a.m.Push(a.producerOf(tid), elem)
}

func (a meshAdapter) Dequeue(tid int) (unsafe.Pointer, error) {
	return a.m.Pop(a.consumerOf(tid))
}

func runBenchmark(queueType string, producers, consumers, perWorker, capacity int, pin bool) int64 {
	maxThreads := producers + consumers
	var q benchQueue
	switch queueType {
	case "unbounded":
		q = coreq.NewUnbounded(coreq.VariantCRQ, capacity, maxThreads, coreq.SegmentConfig{})
	case "bounded-items":
		q = coreq.NewBoundedItems(coreq.VariantPRQ, capacity, maxThreads, coreq.SegmentConfig{})
	case "mux":
		q = muxAdapter{q: NewMuxQueue(capacity, true)}
	case "mesh":
		m := coreq.NewMesh(producers, consumers, capacity/max(producers, 1))
		q = meshAdapter{
			m:          m,
			producerOf: func(tid int) int { return tid },
			consumerOf: func(tid int) int { return tid - producers },
		}
	case "spsc":
		if producers != 1 || consumers != 1 {
			panic("coreqbench: spsc requires exactly one producer and one consumer")
		}
		q = fixedShapeAdapter{coreq.NewSPSCPtr(capacity)}
	default:
		q = coreq.NewUnbounded(coreq.VariantCRQ, capacity, maxThreads, coreq.SegmentConfig{})
	}

	var wg sync.WaitGroup
	var produced, consumed int64

	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func(tid int) {
			defer wg.Done()
			if pin {
				pinToCPU(tid)
			}
			backoff := iox.Backoff{}
			for i := 0; i < perWorker; i++ {
				v := new(int)
				*v = i
				for q.Enqueue(unsafe.Pointer(v), tid) != nil {
					backoff.Wait()
				}
				backoff.Reset()
			}
			atomic.AddInt64(&produced, int64(perWorker))
		}(p)
	}

	done := make(chan struct{})
	var cwg sync.WaitGroup
	cwg.Add(consumers)
	for c := 0; c < consumers; c++ {
		go func(tid int) {
			defer cwg.Done()
			if pin {
				pinToCPU(producers + tid)
			}
			backoff := iox.Backoff{}
			for {
				select {
				case <-done:
					return
				default:
				}
				if _, err := q.Dequeue(producers + tid); err == nil {
					atomic.AddInt64(&consumed, 1)
					backoff.Reset()
				} else {
					backoff.Wait()
				}
			}
		}(c)
	}

	wg.Wait()
	target := int64(producers * perWorker)
	for atomic.LoadInt64(&consumed) < target {
		time.Sleep(time.Millisecond)
	}
	close(done)
	cwg.Wait()

	return atomic.LoadInt64(&consumed)
}

// fixedShapeAdapter wraps a QueuePtr (no per-call thread id, satisfied
// only by SPSCPtr) behind benchQueue's tid-shaped interface so
// runBenchmark can drive both families uniformly.
type fixedShapeAdapter struct{ coreq.QueuePtr }

func (a fixedShapeAdapter) Enqueue(elem unsafe.Pointer, _ int) error { return a.QueuePtr.Enqueue(elem) }
func (a fixedShapeAdapter) Dequeue(_ int) (unsafe.Pointer, error)   { return a.QueuePtr.Dequeue() }

func init() {
	if _, ok := os.LookupEnv("COREQBENCH_QUIET"); ok {
		slog.SetLogLoggerLevel(slog.LevelWarn)
	}
}
