package main

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

type calibrationReport struct {
	Architecture string `yaml:"architecture"`
	InvariantTSC bool   `yaml:"invariant_tsc"`
	Signature    string `yaml:"signature,omitempty"`
	HasSSE2      bool   `yaml:"sse2"`
	HasNEON      bool   `yaml:"neon"`
	PinnedCPU    int    `yaml:"pinned_cpu"`
	Rounds       int    `yaml:"rounds"`
	Budget       uint64 `yaml:"budget"`

	FrequencyGHz float64 `yaml:"frequency_ghz"`
	TSCScaling   float64 `yaml:"tsc_scaling"`

	// CounterFrequencyHz is the architectural counter rate, when exposed.
	CounterFrequencyHz uint64 `yaml:"counter_frequency_hz,omitempty"`
	// TSCLibFrequencyHz is the counter rate github.com/templexxx/tsc calibrated.
	TSCLibFrequencyHz float64 `yaml:"tsc_lib_frequency_hz,omitempty"`
	// PerfCycles is the perf_event core-cycle count of one loop run.
	PerfCycles uint64 `yaml:"perf_cycles,omitempty"`
	PerfError  string `yaml:"perf_error,omitempty"`
}

type loopResult struct {
	Budget      uint64  `yaml:"budget"`
	Samples     uint64  `yaml:"samples"`
	MeanTicks   float64 `yaml:"mean_ticks"`
	StdDevTicks float64 `yaml:"stddev_ticks"`
	RefCycles   float64 `yaml:"ref_cycles"`
	ErrorPct    float64 `yaml:"error_pct"`
}

type loopReport struct {
	Iters      int          `yaml:"iters"`
	Warmup     int          `yaml:"warmup"`
	TSCScaling float64      `yaml:"tsc_scaling"`
	Results    []loopResult `yaml:"results"`
}

// reportWriter renders command results.
type reportWriter interface {
	writeCalibration(w io.Writer, r calibrationReport) error
	writeLoop(w io.Writer, r loopReport) error
}

type textReport struct{}

func (textReport) writeCalibration(w io.Writer, r calibrationReport) error {
	var sb strings.Builder

	sb.WriteString("=== Calibration ===\n\n")
	sb.WriteString(fmt.Sprintf("Architecture: %s\n", r.Architecture))
	sb.WriteString(fmt.Sprintf("Invariant TSC: %v\n", r.InvariantTSC))

	if r.Signature != "" {
		sb.WriteString(fmt.Sprintf("Signature: %s\n", r.Signature))
	}

	sb.WriteString(fmt.Sprintf("SSE2: %v, NEON: %v\n", r.HasSSE2, r.HasNEON))

	if r.PinnedCPU >= 0 {
		sb.WriteString(fmt.Sprintf("Pinned CPU: %d\n", r.PinnedCPU))
	}

	sb.WriteString(fmt.Sprintf("Rounds: %d x %d cycles\n\n", r.Rounds, r.Budget))

	sb.WriteString(fmt.Sprintf("Core frequency: %.2f GHz\n", r.FrequencyGHz))
	sb.WriteString(fmt.Sprintf("TSC scaling: %.6f ref.cycles/tick\n", r.TSCScaling))
	sb.WriteString(fmt.Sprintf("Counter rate: %.2f MHz\n", r.FrequencyGHz*1e3/r.TSCScaling))

	if r.CounterFrequencyHz > 0 {
		sb.WriteString(fmt.Sprintf("Architectural counter rate: %.2f MHz\n", float64(r.CounterFrequencyHz)/1e6))
	}

	if r.TSCLibFrequencyHz > 0 {
		sb.WriteString(fmt.Sprintf("templexxx/tsc counter rate: %.2f MHz\n", r.TSCLibFrequencyHz/1e6))
	}

	switch {
	case r.PerfCycles > 0:
		sb.WriteString(fmt.Sprintf("perf cpu-cycles for %d-cycle loop: %d\n", r.Budget, r.PerfCycles))
	case r.PerfError != "":
		sb.WriteString(fmt.Sprintf("perf cpu-cycles: unavailable (%s)\n", r.PerfError))
	}

	_, err := io.WriteString(w, sb.String())

	return err
}

func (textReport) writeLoop(w io.Writer, r loopReport) error {
	if _, err := fmt.Fprintf(w, "iters=%d warmup=%d tsc_scaling=%.6f\n", r.Iters, r.Warmup, r.TSCScaling); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "%12s  %14s  %12s  %14s  %8s\n", "budget", "ticks", "stddev", "ref.cycles", "err%"); err != nil {
		return err
	}

	for _, res := range r.Results {
		_, err := fmt.Fprintf(w, "%12d  %14.1f  %12.1f  %14.1f  %8.2f\n",
			res.Budget, res.MeanTicks, res.StdDevTicks, res.RefCycles, res.ErrorPct)
		if err != nil {
			return err
		}
	}

	return nil
}

type yamlReport struct{}

func (yamlReport) writeCalibration(w io.Writer, r calibrationReport) error {
	return writeYAML(w, r)
}

func (yamlReport) writeLoop(w io.Writer, r loopReport) error {
	return writeYAML(w, r)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	return enc.Close()
}
