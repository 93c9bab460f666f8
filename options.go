// ©ForgeQueue Contributors 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coreq

import "unsafe"

// Options configures SPSC queue creation via Builder.
type Options struct {
	singleProducer bool
	singleConsumer bool
	capacity       int
}

// Builder creates SPSC queues with fluent configuration.
//
// SPSC is the only fixed-capacity family coreq's Builder constructs:
// the Lamport ring buffer requires no thread identity to operate safely,
// unlike the hazard-pointer-protected segment-chained family. Queues
// with more than one producer or consumer are built directly with
// [NewUnbounded], [NewBoundedSegments], [NewBoundedItems], or [NewMesh],
// all of which need a caller-supplied thread id per call.
//
// Example:
//
//	q := coreq.BuildSPSC[Event](coreq.New(1024).SingleProducer().SingleConsumer())
type Builder struct {
	opts Options
}

// New creates a queue builder with the given capacity.
//
// Capacity rounds up to the next power of 2.
// For example, capacity=4 results in actual capacity=4, capacity=1000 results
// in actual capacity=1024.
//
// Panics if capacity < 2.
func New(capacity int) *Builder {
	if capacity < 2 {
		panic("coreq: capacity must be >= 2")
	}
	return &Builder{opts: Options{capacity: capacity}}
}

// SingleProducer declares that only one goroutine will enqueue.
// Required (along with SingleConsumer) before any Build* method
// on this Builder will succeed.
func (b *Builder) SingleProducer() *Builder {
	b.opts.singleProducer = true
	return b
}

// SingleConsumer declares that only one goroutine will dequeue.
// Required (along with SingleProducer) before any Build* method
// on this Builder will succeed.
func (b *Builder) SingleConsumer() *Builder {
	b.opts.singleConsumer = true
	return b
}

func (b *Builder) requireSPSC(who string) {
	if !b.opts.singleProducer || !b.opts.singleConsumer {
		panic("coreq: " + who + " requires SingleProducer().SingleConsumer()")
	}
}

// BuildSPSC creates an SPSC queue with compile-time type safety.
// Panics if builder is not configured with SingleProducer().SingleConsumer().
func BuildSPSC[T any](b *Builder) *SPSC[T] {
	b.requireSPSC("BuildSPSC")
	return NewSPSC[T](b.opts.capacity)
}

// BuildIndirect creates an SPSCIndirect for uintptr values.
// Panics if builder is not configured with SingleProducer().SingleConsumer().
func (b *Builder) BuildIndirect() QueueIndirect {
	b.requireSPSC("BuildIndirect")
	return NewSPSCIndirect(b.opts.capacity)
}

// BuildIndirectSPSC creates an SPSC queue for uintptr values.
func (b *Builder) BuildIndirectSPSC() *SPSCIndirect {
	b.requireSPSC("BuildIndirectSPSC")
	return NewSPSCIndirect(b.opts.capacity)
}

// BuildPtr creates an SPSCPtr for unsafe.Pointer values.
// Panics if builder is not configured with SingleProducer().SingleConsumer().
func (b *Builder) BuildPtr() QueuePtr {
	b.requireSPSC("BuildPtr")
	return NewSPSCPtr(b.opts.capacity)
}

// BuildPtrSPSC creates an SPSC queue for unsafe.Pointer values.
func (b *Builder) BuildPtrSPSC() *SPSCPtr {
	b.requireSPSC("BuildPtrSPSC")
	return NewSPSCPtr(b.opts.capacity)
}

// roundToPow2 rounds n up to the next power of 2.
func roundToPow2(n int) int {
	if n < 2 {
		return 2
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

// ptrSize is the size of a pointer in bytes.
const ptrSize = int(unsafe.Sizeof(uintptr(0)))

// pad is cache line padding to prevent false sharing.
type pad [64]byte
