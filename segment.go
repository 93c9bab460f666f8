// ©ForgeQueue Contributors 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coreq

import (
	"sync/atomic"
	"unsafe"

	"code.hybscloud.com/atomix"
)

// ringSegment is the shape every bounded ring implementation (Variant-C,
// Variant-P, Variant-M) presents to the linked/bounded adapters. Adapters
// never know which variant they're chaining.
type ringSegment interface {
	push(item unsafe.Pointer, tid int) bool
	pop(tid int) unsafe.Pointer
	isEmpty() bool
	isClosed() bool
	headIdx() uint64
	tailIdx() uint64
	nextStartIndex() uint64
	loadNext() ringSegment
	casNext(old, cur ringSegment) bool
	closeForce()
	length() uint64
	cap() int
}

// segConfig carries the build-time-flag-equivalent knobs that vary per
// queue instance rather than per build (see SegmentConfig in segmented.go).
type segConfig struct {
	disablePow2     bool
	tryCloseBudget  int
	cautiousDequeue bool
}

const defaultTryCloseBudget = 10

func defaultSegConfig() segConfig {
	return segConfig{tryCloseBudget: defaultTryCloseBudget}
}

func ringSizeFor(requested int, disablePow2 bool) uint64 {
	if disablePow2 {
		if requested < 1 {
			requested = 1
		}
		return uint64(requested)
	}
	return uint64(roundToPow2(requested))
}

// tailIndex strips the closing marker from a raw tail word.
func tailIndex(t uint64) uint64 { return t &^ topBit }

// isClosedTail reports whether a raw tail word carries the closing marker.
func isClosedTail(t uint64) bool { return t&topBit != 0 }

// forceCloseTail sets the closing bit unconditionally via a CAS loop
// (atomix has no atomic-or; this is the standard emulation of one).
func forceCloseTail(tail *atomix.Uint64) {
	for {
		old := tail.LoadAcquire()
		if isClosedTail(old) {
			return
		}
		if tail.CompareAndSwapAcqRel(old, old|topBit) {
			return
		}
	}
}

// closeSegment attempts to close the segment at the ticket one past
// expectedTicket. A non-forced attempt only succeeds if tail hasn't moved
// since the ticket was observed; a forced attempt always succeeds.
func closeSegment(tail *atomix.Uint64, expectedTicket uint64, force bool) bool {
	if force {
		forceCloseTail(tail)
		return true
	}
	expected := expectedTicket + 1
	return tail.CompareAndSwapAcqRel(expected, expected|topBit)
}

// fixState repairs tail lagging behind head after a burst of dequeues
// outran enqueues (can happen once a segment is closed).
func fixState(head, tail *atomix.Uint64) {
	for {
		t := tail.LoadAcquire()
		h := head.LoadAcquire()
		if tail.LoadAcquire() != t {
			continue
		}
		if h > t {
			if tail.CompareAndSwapAcqRel(t, h) {
				return
			}
			continue
		}
		return
	}
}

func segIsEmpty(head, tail *atomix.Uint64) bool {
	return head.LoadAcquire() >= tailIndex(tail.LoadAcquire())
}

func segLength(head, tail *atomix.Uint64) uint64 {
	t := tailIndex(tail.LoadAcquire())
	h := head.LoadAcquire()
	if t > h {
		return t - h
	}
	return 0
}

// segBox is the concrete type stored in an atomic.Value / atomic.Pointer
// so that a nil ringSegment can be represented and compared without the
// classic "non-nil interface wrapping a nil pointer" trap: every store
// goes through this wrapper, so callers only ever compare its .s field,
// never the raw interface returned by an untyped nil.
type segBox struct{ s ringSegment }

// atomicSegment is a CAS-able, garbage-collector-safe holder for a
// ringSegment value.
//
// atomix has no generic or interface-shaped atomic pointer type (its
// confirmed surface is Bool/Int32/Int64/Uint64/Uint128/Uintptr), and
// storing a segment as a bare integer would hide the only live reference
// to it from the garbage collector. sync/atomic.Value holds a real,
// GC-traced interface value, so it's used here instead; see DESIGN.md.
type atomicSegment struct {
	v atomic.Value
}

func (a *atomicSegment) Load() ringSegment {
	v := a.v.Load()
	if v == nil {
		return nil
	}
	return v.(segBox).s
}

func (a *atomicSegment) Store(s ringSegment) {
	a.v.Store(segBox{s: s})
}

func (a *atomicSegment) CompareAndSwap(old, cur ringSegment) bool {
	return a.v.CompareAndSwap(segBox{s: old}, segBox{s: cur})
}
