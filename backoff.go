// ©ForgeQueue Contributors 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coreq

import "code.hybscloud.com/spin"

// backoffMin and backoffMax bound Variant-M's exponential retry backoff at
// 128 and 1024 busy-wait cycles respectively, per the segment's CAS-loop
// design: unlike the FAA-based variants it has no natural rate limiter on
// contended retries, so it needs one of its own.
const (
	backoffMin = 128
	backoffMax = 1024
)

// boundedBackoff ramps a CPU-pause spin between backoffMin and backoffMax
// busy cycles, doubling on each unsuccessful attempt.
type boundedBackoff struct {
	cycles int
	sw     spin.Wait
}

func (b *boundedBackoff) wait() {
	if b.cycles < backoffMin {
		b.cycles = backoffMin
	}
	for i := 0; i < b.cycles; i++ {
		b.sw.Once()
	}
	b.cycles *= 2
	if b.cycles > backoffMax {
		b.cycles = backoffMax
	}
}
