// ©ForgeQueue Contributors 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coreq

import (
	"unsafe"

	"github.com/cespare/xxhash/v2"
)

// Mesh emulates a P-producer, C-consumer MPMC queue out of a P×C grid of
// SPSCPtr rings: producer p only ever writes into row p, consumer c only
// ever reads from column c, so every cell has exactly one writer and one
// reader and needs no CAS at all.
//
// A push from producer p tries its own row starting at a cursor seeded
// from the calling thread id, round-robining across columns until one
// cell has room. A pop from consumer c does the same down its column.
// Cursors live one per producer and one per consumer rather than being
// shared process-wide, since a single shared cursor updated by many
// producers concurrently would itself be a race with no synchronization
// protecting it.
type Mesh struct {
	producers int
	consumers int
	cellCap   int
	cells     []*SPSCPtr // row-major: cells[p*consumers+c]

	pushCursor []uint64 // one per producer
	popCursor  []uint64 // one per consumer
}

// NewMesh builds a producers×consumers grid of SPSCPtr rings, each with
// capacity cellCap (rounded up to a power of 2 by SPSCPtr itself).
func NewMesh(producers, consumers, cellCap int) *Mesh {
	if producers < 1 || consumers < 1 {
		panic("coreq: mesh needs at least one producer and one consumer")
	}
	m := &Mesh{
		producers:  producers,
		consumers:  consumers,
		cellCap:    cellCap,
		cells:      make([]*SPSCPtr, producers*consumers),
		pushCursor: make([]uint64, producers),
		popCursor:  make([]uint64, consumers),
	}
	for i := range m.cells {
		m.cells[i] = NewSPSCPtr(cellCap)
	}
	for p := 0; p < producers; p++ {
		m.pushCursor[p] = seedCursor(p, 'P')
	}
	for c := 0; c < consumers; c++ {
		m.popCursor[c] = seedCursor(c, 'C')
	}
	return m
}

// seedCursor derives a starting column/row offset from a thread id so
// that distinct threads fan out across the grid instead of all starting
// at column/row 0 and colliding on the same cells under load.
func seedCursor(tid int, role byte) uint64 {
	var buf [9]byte
	buf[0] = role
	for i := 0; i < 8; i++ {
		buf[1+i] = byte(uint64(tid) >> (8 * i))
	}
	return xxhash.Sum64(buf[:])
}

// Push enqueues item from producer p, scanning across consumer columns
// until one has room. Returns ErrWouldBlock if every column in row p is
// currently full.
func (m *Mesh) Push(p int, item unsafe.Pointer) error {
	row := p * m.consumers
	start := m.pushCursor[p]
	for i := 0; i < m.consumers; i++ {
		c := int((start + uint64(i)) % uint64(m.consumers))
		if err := m.cells[row+c].Enqueue(item); err == nil {
			m.pushCursor[p] = start + uint64(i) + 1
			return nil
		}
	}
	return ErrWouldBlock
}

// Pop dequeues an item for consumer c, scanning across producer rows
// until one has an item. Returns ErrWouldBlock if every row's column c
// cell is currently empty.
func (m *Mesh) Pop(c int) (unsafe.Pointer, error) {
	start := m.popCursor[c]
	for i := 0; i < m.producers; i++ {
		p := int((start + uint64(i)) % uint64(m.producers))
		item, err := m.cells[p*m.consumers+c].Dequeue()
		if err == nil {
			m.popCursor[c] = start + uint64(i) + 1
			return item, nil
		}
	}
	return nil, ErrWouldBlock
}

// Producers returns the number of producer rows.
func (m *Mesh) Producers() int { return m.producers }

// Consumers returns the number of consumer columns.
func (m *Mesh) Consumers() int { return m.consumers }

// CellCap returns the per-cell capacity (rounded up to a power of 2).
func (m *Mesh) CellCap() int { return m.cells[0].Cap() }
