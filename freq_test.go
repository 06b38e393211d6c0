package refcycles

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestMeasureFrequency(t *testing.T) {
	skipIfLowPrecision(t)

	ConstLatencyLoop(200_000_000) // Warmup CPU

	for range 5 {
		info := MeasureFrequency()
		t.Logf("Current CPU freq: %.2fGHz, tsc scaling %.4f", info.Frequency/1e9, info.TSCScaling)

		if info.Frequency <= 0 || info.TSCScaling <= 0 {
			t.Fatalf("non-positive calibration: %+v", info)
		}

		if math.Mod(info.Frequency, frequencyStep) != 0 {
			t.Errorf("Frequency %v is not a multiple of 50 MHz", info.Frequency)
		}
	}
}

func TestMeasureFrequencyGHz(t *testing.T) {
	skipIfLowPrecision(t)

	info := MeasureFrequencyGHz()
	if info.Frequency <= 0 || info.Frequency > 20 {
		t.Errorf("Frequency = %v GHz, out of range", info.Frequency)
	}
}

func TestFreqInfoConversions(t *testing.T) {
	t.Parallel()

	info := FreqInfo{Frequency: 3.2e9, TSCScaling: 1.5}

	if got := info.GHz(); got.Frequency != 3.2 || got.TSCScaling != 1.5 {
		t.Errorf("GHz() = %+v", got)
	}

	if info.Frequency != 3.2e9 {
		t.Error("GHz() modified the receiver")
	}

	if got := info.RefCycles(1000); got != 1500 {
		t.Errorf("RefCycles(1000) = %v, want 1500", got)
	}
}

// TestTSCScalingRoundTrip checks that scaling the counter delta of a known
// loop reproduces its cycle budget within 5%. Timing-sensitive: it warms up
// first and allows a few attempts before failing.
func TestTSCScalingRoundTrip(t *testing.T) {
	skipIfLowPrecision(t)

	if testing.Short() {
		t.Skip("timing-sensitive; skipped in -short mode")
	}

	const (
		budget   = 100_000_000
		accuracy = 0.05
		attempts = 3
	)

	ConstLatencyLoop(budget) // Warmup CPU

	var lastErr float64

	for attempt := range attempts {
		r := NewRegion()
		for range 10 {
			s := r.OpenSample()
			ConstLatencyLoop(budget)
			s.Close()
		}

		info := MeasureFrequency()
		measured := r.AverageSample() * info.TSCScaling
		lastErr = math.Abs(budget-measured) / budget

		t.Logf("attempt %d: %+v expected %d, measured %.0f (%.2f%%)",
			attempt, info, budget, measured, lastErr*100)

		if lastErr < accuracy {
			return
		}
	}

	t.Errorf("measured cycles off by %.2f%%, want < %.0f%%", lastErr*100, accuracy*100)
}

func TestNewCalibratorValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts []CalibrationOption
		want error
	}{
		{"zero budget", []CalibrationOption{WithBudget(0)}, ErrInvalidCycles},
		{"budget not multiple of 4", []CalibrationOption{WithBudget(1_000_001)}, ErrInvalidCycles},
		{"budget too large", []CalibrationOption{WithBudget(0xFFFFFFFF)}, ErrInvalidCycles},
		{"warmup invalid", []CalibrationOption{WithWarmup(3)}, ErrInvalidCycles},
		{"zero rounds", []CalibrationOption{WithRounds(0)}, ErrInvalidRounds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewCalibrator(tt.opts...)
			if !errors.Is(err, tt.want) {
				t.Errorf("NewCalibrator() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCalibratorDefaults(t *testing.T) {
	t.Parallel()

	c, err := NewCalibrator()
	if err != nil {
		t.Fatalf("NewCalibrator() error = %v", err)
	}

	if c.budget != DefaultCalibrationBudget || c.rounds != 1 || c.pinCPU != -1 || c.warmup != 0 {
		t.Errorf("unexpected defaults: %+v", *c)
	}
}

func TestCalibratorRounds(t *testing.T) {
	skipIfLowPrecision(t)

	c, err := NewCalibrator(WithRounds(7), WithWarmup(10_000_000), WithBudget(400_000))
	if err != nil {
		t.Fatalf("NewCalibrator() error = %v", err)
	}

	info, err := c.Measure()
	if err != nil {
		t.Fatalf("Measure() error = %v", err)
	}

	if info.Frequency <= 0 || info.TSCScaling <= 0 {
		t.Errorf("non-positive calibration: %+v", info)
	}

	t.Logf("median of 7: %+v", info)
}

func TestCalibratorPinned(t *testing.T) {
	skipIfLowPrecision(t)

	c, err := NewCalibrator(WithPinnedCPU(0))
	if err != nil {
		t.Fatalf("NewCalibrator() error = %v", err)
	}

	info, err := c.Measure()
	if err != nil {
		t.Skipf("cannot pin: %v", err)
	}

	if info.TSCScaling <= 0 {
		t.Errorf("TSCScaling = %v", info.TSCScaling)
	}
}

func TestMedian(t *testing.T) {
	t.Parallel()

	if got := median([]float64{5, 1, 3}); got != 3 {
		t.Errorf("median odd = %v, want 3", got)
	}

	if got := median([]float64{4, 1, 3, 2}); got != 2 {
		t.Errorf("median even = %v, want 2 (lower median)", got)
	}
}

func newCountingCache(maxAge time.Duration) (*CachedCalibration, *int) {
	calls := 0
	c := &CachedCalibration{
		MaxAge: maxAge,
		calibrate: func() (FreqInfo, error) {
			calls++
			return FreqInfo{Frequency: float64(calls), TSCScaling: 1}, nil
		},
	}

	return c, &calls
}

func TestCachedCalibrationGet(t *testing.T) {
	t.Parallel()

	c, calls := newCountingCache(0)

	first, err := c.Get()
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	for range 3 {
		got, _ := c.Get()
		if got != first {
			t.Errorf("Get() = %+v, want cached %+v", got, first)
		}
	}

	if *calls != 1 {
		t.Errorf("calibrated %d times, want 1", *calls)
	}
}

func TestCachedCalibrationRefresh(t *testing.T) {
	t.Parallel()

	c, calls := newCountingCache(0)

	_, _ = c.Get()
	refreshed, _ := c.Refresh()
	got, _ := c.Get()

	if *calls != 2 || got != refreshed || got.Frequency != 2 {
		t.Errorf("calls=%d got=%+v refreshed=%+v", *calls, got, refreshed)
	}
}

func TestCachedCalibrationMaxAge(t *testing.T) {
	t.Parallel()

	c, calls := newCountingCache(time.Millisecond)

	_, _ = c.Get()
	time.Sleep(5 * time.Millisecond)
	_, _ = c.Get()

	if *calls != 2 {
		t.Errorf("calibrated %d times, want 2 after expiry", *calls)
	}
}

func TestCachedCalibrationError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	c := &CachedCalibration{calibrate: func() (FreqInfo, error) { return FreqInfo{}, boom }}

	if _, err := c.Get(); !errors.Is(err, boom) {
		t.Errorf("Get() error = %v, want boom", err)
	}

	if c.valid {
		t.Error("failed calibration was cached")
	}
}

func TestNewCachedCalibrationDefault(t *testing.T) {
	skipIfLowPrecision(t)

	c := NewCachedCalibration(nil, 0)

	info, err := c.Get()
	if err != nil || info.TSCScaling <= 0 {
		t.Errorf("Get() = %+v, %v", info, err)
	}
}

func BenchmarkMeasureFrequency(b *testing.B) {
	for b.Loop() {
		_ = MeasureFrequency()
	}
}
