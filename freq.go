package refcycles

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/cwbudde/refcycles/internal/cpu"
	"gonum.org/v1/gonum/stat"
)

const (
	// DefaultCalibrationBudget is the ConstLatencyLoop budget used for one
	// calibration run: long enough to dwarf the cost of the clock reads.
	DefaultCalibrationBudget = 1_000_000

	// frequencyStep is the granularity reported frequencies are rounded to.
	frequencyStep = 50_000_000
)

// FreqInfo is the result of one calibration.
type FreqInfo struct {
	// Frequency is the core clock in Hz (GHz for MeasureFrequencyGHz).
	Frequency float64

	// TSCScaling is the number of core reference cycles per counter tick.
	// Multiply a raw counter delta by it to get reference cycles.
	TSCScaling float64
}

// GHz returns f with Frequency converted from Hz to GHz.
func (f FreqInfo) GHz() FreqInfo {
	f.Frequency /= 1e9
	return f
}

// RefCycles converts a raw counter delta to core reference cycles.
func (f FreqInfo) RefCycles(ticks uint64) float64 {
	return float64(ticks) * f.TSCScaling
}

// MeasureFrequency times a DefaultCalibrationBudget ConstLatencyLoop against
// both the wall clock and the cycle counter. The wall clock gives the core
// frequency, the counter gives TSCScaling.
//
// Work on a sibling SMT thread of the same core skews the result; nothing
// here detects that.
func MeasureFrequency() FreqInfo {
	return measureOnce(DefaultCalibrationBudget)
}

// MeasureFrequencyGHz is MeasureFrequency with Frequency in GHz.
func MeasureFrequencyGHz() FreqInfo {
	return MeasureFrequency().GHz()
}

func measureOnce(budget uint64) FreqInfo {
	start := time.Now()
	tsStart := cpu.ReadCycleCounter()
	acc := ConstLatencyLoop(budget)
	tsEnd := cpu.ReadCycleCounter()
	elapsed := time.Since(start)

	// acc is always 0; adding it keeps the loop result live.
	ns := float64(elapsed.Nanoseconds()) + float64(acc)
	freq := float64(budget) * 1e9 / ns
	freq = math.Round(freq/frequencyStep) * frequencyStep

	return FreqInfo{
		Frequency:  freq,
		TSCScaling: float64(budget) / float64(tsEnd-tsStart),
	}
}

// Calibrator runs configurable calibrations. The zero value is not usable;
// create one with NewCalibrator.
type Calibrator struct {
	budget uint64
	warmup uint64
	rounds int
	pinCPU int
}

// CalibrationOption configures a Calibrator.
type CalibrationOption func(*Calibrator)

// WithBudget sets the ConstLatencyLoop budget of each round. It must be a
// positive multiple of 4.
// Default is DefaultCalibrationBudget.
func WithBudget(cycles uint64) CalibrationOption {
	return func(c *Calibrator) {
		c.budget = cycles
	}
}

// WithWarmup runs ConstLatencyLoop(cycles) before measuring so the core
// has left its idle P-state. Default is no warmup.
func WithWarmup(cycles uint64) CalibrationOption {
	return func(c *Calibrator) {
		c.warmup = cycles
	}
}

// WithRounds sets how many calibrations to run. With more than one round
// each field of the result is the median across rounds.
// Default is 1.
func WithRounds(n int) CalibrationOption {
	return func(c *Calibrator) {
		c.rounds = n
	}
}

// WithPinnedCPU runs the calibration pinned to the given logical CPU.
// Pinning removes migration noise only; an SMT sibling still skews results.
func WithPinnedCPU(cpuID int) CalibrationOption {
	return func(c *Calibrator) {
		c.pinCPU = cpuID
	}
}

// NewCalibrator returns a Calibrator with opts applied.
func NewCalibrator(opts ...CalibrationOption) (*Calibrator, error) {
	c := &Calibrator{
		budget: DefaultCalibrationBudget,
		rounds: 1,
		pinCPU: -1,
	}

	for _, opt := range opts {
		opt(c)
	}

	if err := CheckLoopCycles(c.budget); err != nil {
		return nil, fmt.Errorf("calibration budget: %w", err)
	}

	if c.budget == 0 {
		return nil, fmt.Errorf("calibration budget: %w: must be positive", ErrInvalidCycles)
	}

	if err := CheckLoopCycles(c.warmup); err != nil {
		return nil, fmt.Errorf("calibration warmup: %w", err)
	}

	if c.rounds < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRounds, c.rounds)
	}

	return c, nil
}

// Measure runs the configured calibration. The only error source is CPU
// pinning.
func (c *Calibrator) Measure() (FreqInfo, error) {
	if c.pinCPU >= 0 {
		restore, err := cpu.PinToCPU(c.pinCPU)
		if err != nil {
			return FreqInfo{}, err
		}
		defer restore()
	}

	if c.warmup > 0 {
		ConstLatencyLoop(c.warmup)
	}

	if c.rounds == 1 {
		return measureOnce(c.budget), nil
	}

	freqs := make([]float64, c.rounds)
	scales := make([]float64, c.rounds)

	for i := range c.rounds {
		info := measureOnce(c.budget)
		freqs[i] = info.Frequency
		scales[i] = info.TSCScaling
	}

	return FreqInfo{
		Frequency:  median(freqs),
		TSCScaling: median(scales),
	}, nil
}

func median(values []float64) float64 {
	sort.Float64s(values)
	return stat.Quantile(0.5, stat.Empirical, values, nil)
}

// CachedCalibration memoizes a calibration. It is safe for concurrent use,
// but the cached value describes whichever core ran the calibration and goes
// stale when the core changes frequency; prefer calibrating on demand unless
// the overhead matters.
type CachedCalibration struct {
	// MaxAge bounds how long a value is served. Zero means until Refresh.
	MaxAge time.Duration

	calibrate func() (FreqInfo, error)

	mu    sync.Mutex
	info  FreqInfo
	taken time.Time
	valid bool
}

// NewCachedCalibration caches results of c. A nil c uses MeasureFrequency.
func NewCachedCalibration(c *Calibrator, maxAge time.Duration) *CachedCalibration {
	calibrate := func() (FreqInfo, error) {
		return MeasureFrequency(), nil
	}
	if c != nil {
		calibrate = c.Measure
	}

	return &CachedCalibration{MaxAge: maxAge, calibrate: calibrate}
}

// Get returns the cached calibration, calibrating first if there is none or
// it is older than MaxAge.
func (c *CachedCalibration) Get() (FreqInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.valid && (c.MaxAge <= 0 || time.Since(c.taken) < c.MaxAge) {
		return c.info, nil
	}

	return c.refreshLocked()
}

// Refresh recalibrates unconditionally.
func (c *CachedCalibration) Refresh() (FreqInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.refreshLocked()
}

func (c *CachedCalibration) refreshLocked() (FreqInfo, error) {
	info, err := c.calibrate()
	if err != nil {
		return FreqInfo{}, err
	}

	c.info = info
	c.taken = time.Now()
	c.valid = true

	return info, nil
}
