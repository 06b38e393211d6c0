//go:build amd64

package cpu

import (
	"fmt"
	"runtime"

	tcpu "github.com/templexxx/cpu"
	"golang.org/x/sys/cpu"
)

// detectFeaturesImpl performs CPU feature detection on amd64 systems.
//
// golang.org/x/sys/cpu does not expose the invariant TSC bit (CPUID
// 0x80000007 EDX[8]), so that and the family signature come from
// github.com/templexxx/cpu.
func detectFeaturesImpl() Features {
	return Features{
		HasInvariantTSC: tcpu.X86.HasInvariantTSC,
		HasSSE2:         cpu.X86.HasSSE2,
		Signature:       fmt.Sprintf("%s_%d", tcpu.X86.Signature, tcpu.X86.SteppingID),
		Architecture:    runtime.GOARCH,
	}
}

func detectArchitecture() string {
	return runtime.GOARCH
}
