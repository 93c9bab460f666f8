// ©ForgeQueue Contributors 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build nopad

package coreq

// cellPad is empty: cells are packed tightly, trading false sharing for
// memory density.
type cellPad [0]byte

const cellPaddingEnabled = false
