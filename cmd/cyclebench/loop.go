package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/cwbudde/refcycles"
	"github.com/cwbudde/refcycles/internal/cpu"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"
)

func newLoopCmd() *cobra.Command {
	var (
		budgetList string
		iters      int
		warmup     int
		dump       bool
	)

	cmd := &cobra.Command{
		Use:   "loop",
		Short: "Time ConstLatencyLoop budgets in reference cycles",
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			budgets, err := parseBudgets(budgetList)
			if err != nil {
				return err
			}

			if iters < 1 {
				return fmt.Errorf("iters must be positive, got %d", iters)
			}

			pin, _ := cmd.Flags().GetInt("cpu")
			if pin >= 0 {
				restore, err := cpu.PinToCPU(pin)
				if err != nil {
					return err
				}
				defer restore()
			}

			w, out, done, err := openOutput(cmd)
			if err != nil {
				return err
			}
			defer func() { err = closeOutput(done, err) }()

			report := runLoops(budgets, iters, warmup, dump)

			return w.writeLoop(out, report)
		},
	}

	cmd.Flags().StringVar(&budgetList, "budgets", "10000,20000,100000,200000", "comma-separated loop cycle budgets")
	cmd.Flags().IntVar(&iters, "iters", 50, "samples per budget")
	cmd.Flags().IntVar(&warmup, "warmup", 5, "warmup runs per budget")
	cmd.Flags().BoolVar(&dump, "dump", false, "print each region's average to stderr")

	return cmd
}

func runLoops(budgets []uint64, iters, warmup int, dump bool) loopReport {
	results := make([]loopResult, 0, len(budgets))
	samples := make([]float64, iters)

	for _, budget := range budgets {
		for range warmup {
			refcycles.ConstLatencyLoop(budget)
		}

		region := refcycles.NewNamedRegion(fmt.Sprintf("cycle_%d", budget), dump)
		region.SetOutput(os.Stderr)

		for i := range iters {
			s := region.OpenSample()
			refcycles.ConstLatencyLoop(budget)
			s.Stop()
			samples[i] = float64(s.Duration())
			s.Close()
		}

		region.Close()

		results = append(results, loopResult{
			Budget:      budget,
			Samples:     region.Count(),
			MeanTicks:   region.AverageSample(),
			StdDevTicks: stat.StdDev(samples, nil),
		})
	}

	// Calibrate after the loops so the core is warm.
	info := refcycles.MeasureFrequency()

	for i := range results {
		res := &results[i]
		res.RefCycles = res.MeanTicks * info.TSCScaling
		res.ErrorPct = (res.RefCycles - float64(res.Budget)) / float64(res.Budget) * 100
	}

	return loopReport{
		Iters:      iters,
		Warmup:     warmup,
		TSCScaling: info.TSCScaling,
		Results:    results,
	}
}

func parseBudgets(list string) ([]uint64, error) {
	parts := strings.Split(list, ",")

	out := make([]uint64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		var n uint64

		if _, err := fmt.Sscanf(part, "%d", &n); err != nil {
			return nil, fmt.Errorf("invalid budget %q: %w", part, err)
		}

		if err := refcycles.CheckLoopCycles(n); err != nil {
			return nil, err
		}

		out = append(out, n)
	}

	if len(out) == 0 {
		return nil, errors.New("no budgets specified")
	}

	return out, nil
}
