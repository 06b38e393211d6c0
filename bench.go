package refcycles

import "testing"

// Stopper implements the Stop() method.
type Stopper func()

// Stop calls the given stopper.
func (s Stopper) Stop() { s() }

// ReportCycles measures the rest of a benchmark with a CycleCounter and, on
// Stop, reports ticks/op and clocks/op next to ns/op:
//
//	func BenchmarkParse(b *testing.B) {
//		defer refcycles.ReportCycles(b).Stop()
//		for b.Loop() {
//			parse()
//		}
//	}
//
// Calibration happens after the timer is stopped.
func ReportCycles(b *testing.B, opts ...CounterOption) Stopper {
	m := NewCycleCounter(opts...)
	b.ResetTimer()
	start := m.Start()

	return Stopper(func() {
		ticks := m.End(start)
		b.StopTimer()

		if b.N == 0 {
			return
		}

		n := float64(b.N)
		b.ReportMetric(float64(ticks)/n, "ticks/op")
		b.ReportMetric(m.ToF64(ticks)/n, "clocks/op")
	})
}
