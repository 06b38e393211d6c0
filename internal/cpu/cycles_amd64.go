//go:build amd64

package cpu

const highPrecision = true

// readCycleCounter reads the CPU timestamp counter using RDTSC.
// Implemented in cycles_amd64.s
//
//go:noescape
func readCycleCounter() uint64

// getCounterFrequencyHz returns 0: the TSC rate is not architecturally exposed
// and must be calibrated.
func getCounterFrequencyHz() uint64 {
	return 0
}
