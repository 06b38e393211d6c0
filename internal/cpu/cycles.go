package cpu

// ReadCycleCounter reads the CPU's free-running cycle counter (TSC on x86,
// CNTVCT on ARM). The counter is not synchronized across cores and on some
// hardware its rate follows frequency scaling.
// On platforms without assembly support, falls back to time.Now().
func ReadCycleCounter() uint64 {
	return readCycleCounter()
}

// CyclesSince returns the number of counter ticks elapsed since start.
func CyclesSince(start uint64) uint64 {
	return ReadCycleCounter() - start
}

// CounterFrequencyHz returns the architectural counter frequency in Hz:
// CNTFRQ_EL0 on ARM64, 1 GHz for the time.Now() fallback. It is 0 on AMD64,
// where the TSC rate has to be calibrated.
func CounterFrequencyHz() uint64 {
	return counterFrequencyHz
}

// HighPrecision reports whether the counter is backed by a hardware
// instruction rather than the time.Now() fallback.
func HighPrecision() bool {
	return highPrecision
}

// counterFrequencyHz is read once at package load time.
var counterFrequencyHz uint64

func init() {
	counterFrequencyHz = getCounterFrequencyHz()
}
