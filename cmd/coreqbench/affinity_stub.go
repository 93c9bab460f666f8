// ©ForgeQueue Contributors 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !linux

package main

// pinToCPU is a no-op outside Linux; sched_setaffinity has no portable
// equivalent and the benchmark still runs correctly without pinning.
func pinToCPU(id int) {}
