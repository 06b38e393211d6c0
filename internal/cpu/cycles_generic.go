//go:build !amd64 && !arm64

package cpu

import "time"

const highPrecision = false

// genericEpoch keeps fallback readings small and monotonic.
var genericEpoch = time.Now()

// readCycleCounter falls back to the monotonic clock on platforms without
// assembly support. Returns nanoseconds since package load.
func readCycleCounter() uint64 {
	return uint64(time.Since(genericEpoch).Nanoseconds())
}

// getCounterFrequencyHz reports 1 GHz: fallback readings are nanoseconds.
func getCounterFrequencyHz() uint64 {
	return 1_000_000_000
}
