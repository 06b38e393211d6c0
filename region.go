package refcycles

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/cwbudde/refcycles/internal/cpu"
)

const defaultRegionName = "default_name"

// SampleRegion accumulates counter-tick samples of one code region.
//
//	r := refcycles.NewNamedRegion("parse", true)
//	defer r.Close()
//	for range n {
//		s := r.OpenSample()
//		parse()
//		s.Close()
//	}
//
// A region is not safe for concurrent use. At most one Sample may be open
// against it; OpenSample panics with ErrRegionBusy otherwise.
type SampleRegion struct {
	name          string
	dumpOnRelease bool
	out           io.Writer

	count uint64
	sum   uint64

	open     bool
	released bool
}

// NewRegion returns an unnamed region that prints nothing on Close.
func NewRegion() *SampleRegion {
	return NewNamedRegion(defaultRegionName, false)
}

// NewNamedRegion returns a region labelled name. If dumpOnRelease is set,
// Close writes the average to the region's output (os.Stderr by default).
func NewNamedRegion(name string, dumpOnRelease bool) *SampleRegion {
	return &SampleRegion{
		name:          name,
		dumpOnRelease: dumpOnRelease,
		out:           os.Stderr,
	}
}

// Name returns the region label.
func (r *SampleRegion) Name() string {
	return r.name
}

// SetOutput redirects the Close diagnostic line.
func (r *SampleRegion) SetOutput(w io.Writer) {
	r.out = w
}

// OpenSample starts a sample. The counter is read last so that setup cost
// stays out of the sample.
func (r *SampleRegion) OpenSample() *Sample {
	if r.open {
		panic(fmt.Errorf("%w: %q", ErrRegionBusy, r.name))
	}

	r.open = true
	s := &Sample{region: r}
	s.start = cpu.ReadCycleCounter()

	return s
}

// Measure records one sample around a call of f. The sample is recorded even
// if f panics.
func (r *SampleRegion) Measure(f func()) {
	s := r.OpenSample()
	defer s.Close()

	f()
}

// AverageSample returns the mean sample in counter ticks, or NaN if no
// sample has completed.
func (r *SampleRegion) AverageSample() float64 {
	return float64(r.sum) / float64(r.count)
}

// TotalTime returns the sum of all samples in counter ticks.
func (r *SampleRegion) TotalTime() uint64 {
	return r.sum
}

// Count returns the number of completed samples.
func (r *SampleRegion) Count() uint64 {
	return r.count
}

// Close releases the region, writing "<name>: <average> ref.cycles" if the
// region was created with dumpOnRelease. Further calls do nothing.
func (r *SampleRegion) Close() {
	if r.released {
		return
	}

	r.released = true

	if r.dumpOnRelease {
		avg := strconv.FormatFloat(r.AverageSample(), 'f', -1, 64)
		fmt.Fprintf(r.out, "%s: %s ref.cycles\n", r.name, avg)
	}
}

func (r *SampleRegion) record(ticks uint64) {
	r.count++
	r.sum += ticks
}

// Sample is an open measurement against a SampleRegion. Close it on every
// path, typically with defer.
type Sample struct {
	region  *SampleRegion
	start   uint64
	end     uint64
	stopped bool
	closed  bool
}

// Stop records the end timestamp without releasing the sample, so that
// bookkeeping between Stop and Close is not measured. Only the first call
// has an effect.
func (s *Sample) Stop() {
	if s.stopped {
		return
	}

	s.end = cpu.ReadCycleCounter()
	s.stopped = true
}

// Duration returns the sample length in counter ticks, or 0 before Stop.
func (s *Sample) Duration() uint64 {
	if !s.stopped {
		return 0
	}

	return s.end - s.start
}

// Close stops the sample if needed, adds its duration to the region and
// releases the region for the next sample. Only the first call has an effect.
func (s *Sample) Close() {
	if s.closed {
		return
	}

	s.Stop()
	s.closed = true
	s.region.record(s.end - s.start)
	s.region.open = false
}

const (
	perfBatch    = 100
	perfMinTicks = 10_000_000
)

// MeasureFunctionPerf returns the average counter ticks per call of f. It
// times batches of 100 calls until at least 10M ticks have been recorded.
// Multiply by a calibration's TSCScaling to get reference cycles.
func MeasureFunctionPerf(f func()) float64 {
	r := NewRegion()

	for r.TotalTime() < perfMinTicks {
		s := r.OpenSample()
		for range perfBatch {
			f()
		}
		s.Close()
	}

	return r.AverageSample() / perfBatch
}
