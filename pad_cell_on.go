// ©ForgeQueue Contributors 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !nopad

package coreq

// cellPad rounds a 16-byte (value, index) cell up to a 64-byte cache line
// so consecutive ring slots never share a line.
type cellPad [64 - 16]byte

const cellPaddingEnabled = true
