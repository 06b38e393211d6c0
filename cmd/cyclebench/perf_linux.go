//go:build linux

package main

import (
	"fmt"
	"runtime"

	"github.com/cwbudde/refcycles"
	perf "github.com/hodgesds/perf-utils"
)

// perfCycles counts the core cycles of one ConstLatencyLoop(budget) with a
// perf_event hardware counter, independently of the TSC.
func perfCycles(budget uint64) (uint64, error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	var acc uint64

	profile, err := perf.CPUCycles(func() error {
		acc = refcycles.ConstLatencyLoop(budget)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("perf cpu-cycles: %w", err)
	}

	return profile.Value + acc, nil
}
