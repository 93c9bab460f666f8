// ©ForgeQueue Contributors 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package main

import (
	"log/slog"
	"runtime"

	"golang.org/x/sys/unix"
)

// pinToCPU locks the calling goroutine to its own OS thread and pins that
// thread to CPU id % NumCPU, spreading worker goroutines across cores
// instead of leaving affinity to the scheduler.
func pinToCPU(id int) {
	runtime.LockOSThread()
	ncpu := runtime.NumCPU()
	if ncpu == 0 {
		return
	}
	var set unix.CPUSet
	set.Set(id % ncpu)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		slog.Warn("sched_setaffinity failed", "cpu", id%ncpu, "err", err)
	}
}
