package refcycles

import (
	"fmt"
	"strconv"
)

// Measurement is the backend a benchmarking harness uses to time one
// iteration batch. I is the in-flight state between Start and End, V the
// measured value.
type Measurement[I, V any] interface {
	Start() I
	End(i I) V
	Add(v1, v2 V) V
	Zero() V
	// ToF64 converts a value to the float the harness does statistics on.
	ToF64(v V) float64
	Formatter() ValueFormatter
}

// ValueFormatter renders values produced by a Measurement.
type ValueFormatter interface {
	FormatValue(value float64) string
	FormatThroughput(t Throughput, value float64) string
	// ScaleValues may rescale values in place and returns their unit.
	ScaleValues(typical float64, values []float64) string
	ScaleThroughputs(typical float64, t Throughput, values []float64) string
	ScaleForMachines(values []float64) string
}

// ThroughputKind selects the unit of a Throughput.
type ThroughputKind int

const (
	// Bytes counts bytes processed per iteration.
	Bytes ThroughputKind = iota
	// Elements counts elements processed per iteration.
	Elements
)

// Throughput is the amount of work done by one iteration.
type Throughput struct {
	Kind  ThroughputKind
	Count uint64
}

// BytesThroughput is n bytes per iteration.
func BytesThroughput(n uint64) Throughput {
	return Throughput{Kind: Bytes, Count: n}
}

// ElementsThroughput is n elements per iteration.
func ElementsThroughput(n uint64) Throughput {
	return Throughput{Kind: Elements, Count: n}
}

func (t Throughput) unit() string {
	if t.Kind == Elements {
		return "elem/c"
	}

	return "b/c"
}

// CycleCounter measures in cycle-counter ticks and reports reference
// cycles. By default every ToF64 call recalibrates, which is slow but never
// stale; WithCachedCalibration trades that for speed.
type CycleCounter struct {
	cache *CachedCalibration
}

var _ Measurement[CycleInstant, uint64] = (*CycleCounter)(nil)

// CounterOption configures a CycleCounter.
type CounterOption func(*CycleCounter)

// WithCachedCalibration makes ToF64 use c instead of calibrating per call.
func WithCachedCalibration(c *CachedCalibration) CounterOption {
	return func(m *CycleCounter) {
		m.cache = c
	}
}

// NewCycleCounter returns a CycleCounter with opts applied.
func NewCycleCounter(opts ...CounterOption) *CycleCounter {
	m := &CycleCounter{}
	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Start captures the counter at the beginning of an iteration batch.
func (m *CycleCounter) Start() CycleInstant {
	return Now()
}

// End returns the raw counter ticks since i.
func (m *CycleCounter) End(i CycleInstant) uint64 {
	return i.Elapsed()
}

// Add sums two tick counts.
func (m *CycleCounter) Add(v1, v2 uint64) uint64 {
	return v1 + v2
}

// Zero is the additive identity for Add.
func (m *CycleCounter) Zero() uint64 {
	return 0
}

// ToF64 scales raw ticks to reference cycles.
func (m *CycleCounter) ToF64(v uint64) float64 {
	return m.Calibration().RefCycles(v)
}

// Calibration returns the calibration ToF64 uses. A failing cache falls
// back to an unpinned MeasureFrequency.
func (m *CycleCounter) Calibration() FreqInfo {
	if m.cache != nil {
		if info, err := m.cache.Get(); err == nil {
			return info
		}
	}

	return MeasureFrequency()
}

// Formatter returns a CycleFormatter.
func (m *CycleCounter) Formatter() ValueFormatter {
	return CycleFormatter{}
}

// CycleFormatter labels values in clocks and throughput per clock.
type CycleFormatter struct{}

// FormatValue renders value as "1234.500 clocks".
func (CycleFormatter) FormatValue(value float64) string {
	return fmt.Sprintf("%.3f clocks", value)
}

// FormatThroughput renders work per clock, e.g. "512 b/c" or "3.5 elem/c".
func (CycleFormatter) FormatThroughput(t Throughput, value float64) string {
	rate := float64(t.Count) / value
	return strconv.FormatFloat(rate, 'f', -1, 64) + " " + t.unit()
}

// ScaleValues leaves values unscaled and returns "clocks".
func (CycleFormatter) ScaleValues(_ float64, _ []float64) string {
	return "clocks"
}

// ScaleThroughputs leaves values unscaled and returns "b/c" or "elem/c".
func (CycleFormatter) ScaleThroughputs(_ float64, t Throughput, _ []float64) string {
	return t.unit()
}

// ScaleForMachines leaves values unscaled and returns "clocks".
func (CycleFormatter) ScaleForMachines(_ []float64) string {
	return "clocks"
}
