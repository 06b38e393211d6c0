// Command cyclebench calibrates the cycle counter and times the constant
// latency loop in reference cycles.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

const (
	formatText = "text"
	formatYAML = "yaml"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "cyclebench",
		Short:        "Cycle-accurate calibration and latency-loop benchmarks",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("format", formatText, "output format: text or yaml")
	root.PersistentFlags().Int("cpu", -1, "pin measurements to this logical CPU (-1: no pinning)")
	root.PersistentFlags().StringP("output", "o", "", "write output to a file instead of stdout")

	root.AddCommand(newCalibrateCmd(), newLoopCmd())

	return root
}

// openOutput resolves the persistent --format and --output flags. The
// returned close func must be called once the report is written.
func openOutput(cmd *cobra.Command) (reportWriter, io.Writer, func() error, error) {
	format, _ := cmd.Flags().GetString("format")
	path, _ := cmd.Flags().GetString("output")

	var w reportWriter

	switch format {
	case formatText:
		w = textReport{}
	case formatYAML:
		w = yamlReport{}
	default:
		return nil, nil, nil, fmt.Errorf("unknown format %q", format)
	}

	if path == "" {
		return w, cmd.OutOrStdout(), func() error { return nil }, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}

	return w, f, f.Close, nil
}

// closeOutput runs the close func from openOutput. A close failure is
// returned only if err, the result of writing the report, is nil.
func closeOutput(done func() error, err error) error {
	if cerr := done(); cerr != nil && err == nil {
		return fmt.Errorf("failed to close output: %w", cerr)
	}

	return err
}
