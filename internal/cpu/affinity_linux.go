//go:build linux

package cpu

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// PinToCPU locks the calling goroutine to its OS thread and restricts that
// thread to the given logical CPU. The returned restore func puts back the
// previous affinity mask and unlocks the thread; it must be called from the
// same goroutine.
func PinToCPU(cpuID int) (func(), error) {
	if cpuID < 0 {
		return nil, fmt.Errorf("cpu: invalid cpu index %d", cpuID)
	}

	runtime.LockOSThread()

	var prev unix.CPUSet
	if err := unix.SchedGetaffinity(0, &prev); err != nil {
		runtime.UnlockOSThread()
		return nil, fmt.Errorf("cpu: get affinity: %w", err)
	}

	var set unix.CPUSet
	set.Set(cpuID)

	if err := unix.SchedSetaffinity(0, &set); err != nil {
		runtime.UnlockOSThread()
		return nil, fmt.Errorf("cpu: pin to cpu %d: %w", cpuID, err)
	}

	return func() {
		_ = unix.SchedSetaffinity(0, &prev)
		runtime.UnlockOSThread()
	}, nil
}

// PinnedCPU returns the single logical CPU the calling thread is restricted
// to, or -1 when the thread may run on several.
func PinnedCPU() int {
	set := unix.CPUSet{}
	if err := unix.SchedGetaffinity(0, &set); err != nil || set.Count() != 1 {
		return -1
	}

	for i := 0; i < len(set)*64; i++ {
		if set.IsSet(i) {
			return i
		}
	}

	return -1
}
