// ©ForgeQueue Contributors 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coreq

// Hazard-slot indices, shared across every adapter that uses a
// hazardDomain. Each adapter protects at most a tail and a head pointer
// at a time.
const (
	kHpTail = 0
	kHpHead = 1
	hpSlots = 2
)
