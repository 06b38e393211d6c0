//go:build arm64

package cpu

import (
	"runtime"

	"golang.org/x/sys/cpu"
)

// detectFeaturesImpl performs CPU feature detection on arm64 systems.
//
// The generic timer (CNTVCT_EL0) runs at the fixed CNTFRQ_EL0 rate on every
// ARMv8 implementation, so it is reported as invariant.
func detectFeaturesImpl() Features {
	return Features{
		HasInvariantTSC: true,
		HasNEON:         cpu.ARM64.HasASIMD,
		Architecture:    runtime.GOARCH,
	}
}

func detectArchitecture() string {
	return runtime.GOARCH
}
