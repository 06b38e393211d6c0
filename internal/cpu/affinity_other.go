//go:build !linux

package cpu

import (
	"fmt"
	"runtime"
)

// PinToCPU only locks the goroutine to its OS thread: thread affinity is not
// available through golang.org/x/sys/unix on this platform.
func PinToCPU(cpuID int) (func(), error) {
	if cpuID < 0 {
		return nil, fmt.Errorf("cpu: invalid cpu index %d", cpuID)
	}

	runtime.LockOSThread()

	return runtime.UnlockOSThread, nil
}

// PinnedCPU is unknown on this platform.
func PinnedCPU() int {
	return -1
}
