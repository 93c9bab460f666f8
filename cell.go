// ©ForgeQueue Contributors 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coreq

// Variant-C and Variant-P cells keep an unsafe flag in the high bit of
// their index word and the cell's epoch in the low 63 bits; the closing
// marker on a segment's tail uses the same top bit.
const (
	topBit    = uint64(1) << 63
	indexMask = topBit - 1
)

// epochOf strips the unsafe bit, returning the plain epoch.
func epochOf(word uint64) uint64 { return word &^ topBit }

// isUnsafeIdx reports whether a cell's index word has been marked unsafe
// by a dequeuer that gave up waiting for it to fill.
func isUnsafeIdx(word uint64) bool { return word&topBit != 0 }

// setUnsafeIdx marks an index word unsafe, preserving the plain index.
func setUnsafeIdx(word uint64) uint64 { return word | topBit }

// orUnsafeIdx conditionally carries the unsafe bit forward onto a new index.
func orUnsafeIdx(wasUnsafe bool, word uint64) uint64 {
	if wasUnsafe {
		return word | topBit
	}
	return word
}

// cacheRemap scatters consecutive ring indices across cache lines so that
// FAA-adjacent producers/consumers don't collide on the same line.
//
// It is the identity mapping whenever the cell size doesn't divide evenly
// into a cache line. When cells are already padded out to a full line,
// cellsPerLine is 1 and the mapping works out to the identity as well,
// since one cell already occupies exactly one line.
type cacheRemap struct {
	numLines     uint64
	cellsPerLine uint64
	identity     bool
}

const cacheLineSize = 64

// newCacheRemap builds a remap table for a ring of ringSize cells, each
// cellSize bytes.
func newCacheRemap(ringSize, cellSize uint64) cacheRemap {
	if cellSize == 0 || cacheLineSize%cellSize != 0 {
		return cacheRemap{identity: true}
	}
	cellsPerLine := cacheLineSize / cellSize
	numLines := ringSize / cellsPerLine
	if numLines == 0 {
		return cacheRemap{identity: true}
	}
	return cacheRemap{numLines: numLines, cellsPerLine: cellsPerLine}
}

// at maps a logical ring index to its physical slot.
func (r cacheRemap) at(i uint64) uint64 {
	if r.identity {
		return i
	}
	return i%r.numLines*r.cellsPerLine + i/r.numLines
}
