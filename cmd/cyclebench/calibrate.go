package main

import (
	"math"
	"sync/atomic"

	"github.com/cwbudde/refcycles"
	"github.com/cwbudde/refcycles/internal/cpu"
	"github.com/spf13/cobra"
	"github.com/templexxx/tsc"
)

func newCalibrateCmd() *cobra.Command {
	var (
		rounds int
		budget uint64
		warmup uint64
	)

	cmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Measure core frequency and counter scaling",
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			pin, _ := cmd.Flags().GetInt("cpu")

			w, out, done, err := openOutput(cmd)
			if err != nil {
				return err
			}
			defer func() { err = closeOutput(done, err) }()

			report, err := runCalibration(budget, warmup, rounds, pin)
			if err != nil {
				return err
			}

			return w.writeCalibration(out, report)
		},
	}

	cmd.Flags().IntVar(&rounds, "rounds", 9, "calibration rounds (median is reported)")
	cmd.Flags().Uint64Var(&budget, "budget", refcycles.DefaultCalibrationBudget, "loop cycles per round (multiple of 4)")
	cmd.Flags().Uint64Var(&warmup, "warmup", 200_000_000, "warmup loop cycles (multiple of 4)")

	return cmd
}

// countPerfCycles is replaced in tests.
var countPerfCycles = perfCycles

// runCalibration calibrates and runs the cross-checks. With pin >= 0 all of
// them run on that CPU.
func runCalibration(budget, warmup uint64, rounds, pin int) (calibrationReport, error) {
	c, err := refcycles.NewCalibrator(
		refcycles.WithBudget(budget),
		refcycles.WithWarmup(warmup),
		refcycles.WithRounds(rounds),
	)
	if err != nil {
		return calibrationReport{}, err
	}

	if pin >= 0 {
		restore, err := cpu.PinToCPU(pin)
		if err != nil {
			return calibrationReport{}, err
		}
		defer restore()
	}

	info, err := c.Measure()
	if err != nil {
		return calibrationReport{}, err
	}

	features := cpu.DetectFeatures()

	report := calibrationReport{
		Architecture:       features.Architecture,
		InvariantTSC:       features.HasInvariantTSC,
		Signature:          features.Signature,
		HasSSE2:            features.HasSSE2,
		HasNEON:            features.HasNEON,
		PinnedCPU:          pin,
		Rounds:             rounds,
		Budget:             budget,
		FrequencyGHz:       info.GHz().Frequency,
		TSCScaling:         info.TSCScaling,
		CounterFrequencyHz: cpu.CounterFrequencyHz(),
		TSCLibFrequencyHz:  tscLibFrequency(),
	}

	cycles, err := countPerfCycles(budget)
	if err != nil {
		report.PerfError = err.Error()
	} else {
		report.PerfCycles = cycles
	}

	return report, nil
}

// tscLibFrequency returns the counter rate calibrated by
// github.com/templexxx/tsc, or 0 when it is not usable on this machine.
func tscLibFrequency() float64 {
	if !tsc.Enabled {
		return 0
	}

	coeff := math.Float64frombits(atomic.LoadUint64(&tsc.Coeff))
	if coeff <= 0 {
		return 0
	}

	return 1e9 / coeff
}
