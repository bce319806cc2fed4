package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"text/tabwriter"

	"trade-audit/internal/metrics"
)

// Report runs the metrics-only pipeline and renders the bundle as a
// fixed-width text report.
func (a *App) Report(ctx context.Context, opts ReportOptions) error {
	if opts.InputPath == "" {
		return errors.New("--input must be provided")
	}

	tbl, err := a.buildTable(opts.InputPath)
	if err != nil {
		return err
	}

	bundle := metrics.Compute(tbl, a.Logger)

	if opts.OutputPath == "" {
		renderBundle(os.Stdout, bundle)
		return nil
	}
	return a.writeReport(opts.OutputPath, bundle)
}

func (a *App) writeReport(path string, bundle metrics.Bundle) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer file.Close()

	renderBundle(file, bundle)
	return nil
}

func renderBundle(w io.Writer, bundle metrics.Bundle) {
	writer := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	for _, category := range bundle.Categories() {
		fmt.Fprintf(writer, "%s METRICS\n", strings.ToUpper(category))
		for _, name := range bundle.Names(category) {
			fmt.Fprintf(writer, "  %s\t%s\n", name, formatMetric(bundle[category][name]))
		}
		fmt.Fprintln(writer)
	}

	writer.Flush()
}

// formatMetric keeps sentinels readable: Inf means "unbounded", NaN means
// "undefined for this series".
func formatMetric(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	case math.IsNaN(v):
		return "n/a"
	case v == math.Trunc(v) && math.Abs(v) < 1e9:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}
