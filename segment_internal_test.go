// ©ForgeQueue Contributors 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coreq

import (
	"testing"
	"unsafe"
)

func segmentFactories() map[string]func(ringSize int, start uint64) ringSegment {
	cfg := defaultSegConfig()
	return map[string]func(ringSize int, start uint64) ringSegment{
		"CRQ": func(ringSize int, start uint64) ringSegment { return newCRQSegment(ringSize, start, cfg) },
		"PRQ": func(ringSize int, start uint64) ringSegment { return newPRQSegment(ringSize, start, cfg) },
		"MTQ": func(ringSize int, start uint64) ringSegment { return newSeqSegment(ringSize, start, cfg) },
	}
}

func TestRingSegmentFIFOAndFull(t *testing.T) {
	for name, factory := range segmentFactories() {
		t.Run(name, func(t *testing.T) {
			seg := factory(4, 0)
			vals := make([]int, 4)
			for i := range vals {
				vals[i] = i
				if !seg.push(unsafe.Pointer(&vals[i]), 0) {
					t.Fatalf("push(%d) failed unexpectedly", i)
				}
			}
			if seg.isEmpty() {
				t.Fatal("segment reports empty right after filling it")
			}
			extra := 99
			if seg.push(unsafe.Pointer(&extra), 0) {
				t.Fatal("push succeeded past capacity")
			}
			if !seg.isClosed() {
				t.Fatal("segment should self-close once full")
			}
			for i := range vals {
				p := seg.pop(0)
				if p == nil {
					t.Fatalf("pop(%d) returned nil unexpectedly", i)
				}
				if got := *(*int)(p); got != i {
					t.Fatalf("pop(%d): got %d, want %d", i, got, i)
				}
			}
			// In the FAA-based variants (CRQ, PRQ) the failed push that
			// triggered closing consumed a tail ticket without ever
			// writing a value, so head only catches up with tail (and
			// isEmpty starts reporting true) after one more pop attempt
			// observes that ticket and gives up on it. Variant-M's failed
			// push takes no ticket, so its extra pop finds it already empty.
			if p := seg.pop(0); p != nil {
				t.Fatal("pop past the last real item returned non-nil")
			}
			if !seg.isEmpty() {
				t.Fatal("segment should be empty after draining it")
			}
		})
	}
}

func TestRingSegmentNextStartIndex(t *testing.T) {
	// nextStartIndex is only meaningful once a segment has actually
	// advanced its tail (typically once full, right before a fresh
	// segment gets linked onto it), so fill the segment first.
	for name, factory := range segmentFactories() {
		t.Run(name, func(t *testing.T) {
			seg := factory(4, 100)
			vals := make([]int, 4)
			for i := range vals {
				seg.push(unsafe.Pointer(&vals[i]), 0)
			}
			if got := seg.nextStartIndex(); got < 100 {
				t.Fatalf("nextStartIndex: got %d, want >= 100", got)
			}
		})
	}
}

func TestCacheRemapIdentityFallback(t *testing.T) {
	r := newCacheRemap(8, 3) // 3 doesn't divide 64 evenly
	if !r.identity {
		t.Fatal("expected identity fallback when cell size doesn't divide the cache line")
	}
	for i := uint64(0); i < 8; i++ {
		if r.at(i) != i {
			t.Fatalf("at(%d): got %d, want %d under identity", i, r.at(i), i)
		}
	}
}

func TestCacheRemapPermutes(t *testing.T) {
	r := newCacheRemap(16, 8) // 8 divides 64: cellsPerLine=8, numLines=2
	if r.identity {
		t.Fatal("expected a real permutation, not identity")
	}
	seen := make(map[uint64]bool)
	for i := uint64(0); i < 16; i++ {
		seen[r.at(i)] = true
	}
	if len(seen) != 16 {
		t.Fatalf("remap is not a bijection over the ring: got %d distinct outputs, want 16", len(seen))
	}
}
