// ©ForgeQueue Contributors 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !nohazard

package coreq

// hazardDomain tracks, per thread, which segments are currently being
// dereferenced by that thread (hp) and which segments that thread has
// unlinked but not yet reclaimed (retired). A segment is only dropped
// from the retired list once no thread's hazard slot points at it.
//
// Every hp/retired slot holds a real ringSegment interface value (not an
// integer bit pattern) so the garbage collector always sees a live
// reference for as long as it's protected or retired-but-unswept.
type hazardDomain struct {
	hp      [][hpSlots]atomicSegment
	retired [][]ringSegment // retired[tid] is only ever touched by thread tid
}

func newHazardDomain(maxThreads int) *hazardDomain {
	return &hazardDomain{
		hp:      make([][hpSlots]atomicSegment, maxThreads),
		retired: make([][]ringSegment, maxThreads),
	}
}

// protect publishes atom's current value into hazard slot (tid, slot) and
// returns it, guaranteeing the returned segment was live at some point
// after publication (the double-read pattern below detects the case where
// atom changed between the read and the publish).
func (d *hazardDomain) protect(slot, tid int, atom *atomicSegment) ringSegment {
	var n ringSegment
	for {
		ret := atom.Load()
		if ret == n {
			return ret
		}
		d.hp[tid][slot].Store(ret)
		n = ret
	}
}

// protectDirect publishes a segment that's already known to be current
// (e.g. one just loaded from an already-protected pointer's next link).
func (d *hazardDomain) protectDirect(slot, tid int, s ringSegment) ringSegment {
	d.hp[tid][slot].Store(s)
	return s
}

func (d *hazardDomain) clear(slot, tid int) {
	d.hp[tid][slot].Store(nil)
}

func (d *hazardDomain) clearAll(tid int) {
	for slot := range d.hp[tid] {
		d.hp[tid][slot].Store(nil)
	}
}

// retire records seg as unlinked and sweeps this thread's retired list,
// dropping every entry no hazard slot (of any thread) still points at so
// the garbage collector is free to reclaim it.
func (d *hazardDomain) retire(seg ringSegment, tid int) {
	if seg != nil {
		d.retired[tid] = append(d.retired[tid], seg)
	}
	kept := d.retired[tid][:0]
	for _, obj := range d.retired[tid] {
		if d.isProtected(obj) {
			kept = append(kept, obj)
		}
	}
	d.retired[tid] = kept
}

func (d *hazardDomain) isProtected(seg ringSegment) bool {
	for t := range d.hp {
		for slot := range d.hp[t] {
			if d.hp[t][slot].Load() == seg {
				return true
			}
		}
	}
	return false
}
