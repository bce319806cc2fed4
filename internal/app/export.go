package app

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"trade-audit/internal/features"
	"trade-audit/internal/loader"
)

// Export renders the widened table as CSV and/or an equity/drawdown PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.InputPath == "" {
		return errors.New("--input must be provided")
	}
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	tbl, err := a.buildTable(opts.InputPath)
	if err != nil {
		return err
	}

	if opts.CSVPath != "" {
		if err := ensureDir(opts.CSVPath); err != nil {
			return err
		}
		if err := loader.WriteFeatureTable(opts.CSVPath, tbl); err != nil {
			return err
		}
		a.Logger.Info().Str("path", opts.CSVPath).Msg("feature table exported")
	}

	if opts.PNGPath != "" {
		if err := writeEquityPNG(opts.PNGPath, tbl, opts.MaxPoints); err != nil {
			return err
		}
		a.Logger.Info().Str("path", opts.PNGPath).Msg("equity chart exported")
	}

	return nil
}

// writeEquityPNG plots balance and peak balance against time with drawdown
// on the secondary axis, downsampled to at most max points.
func writeEquityPNG(path string, tbl *features.Table, max int) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	s := tbl.Series()
	drawdownCol := tbl.MustColumn("drawdown")

	idx := downsampleIndexes(s.Len(), max)
	x := make([]time.Time, len(idx))
	balance := make([]float64, len(idx))
	peak := make([]float64, len(idx))
	drawdown := make([]float64, len(idx))
	for i, j := range idx {
		t := s.At(j)
		x[i] = t.Timestamp
		balance[i] = t.Balance.InexactFloat64()
		peak[i] = t.PeakBalance.InexactFloat64()
		drawdown[i] = drawdownCol[j]
	}

	valueFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.0f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Balance",
			ValueFormatter: valueFormatter,
		},
		YAxisSecondary: chart.YAxis{
			Name:           "Drawdown",
			ValueFormatter: valueFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Balance",
				XValues: x,
				YValues: balance,
			},
			chart.TimeSeries{
				Name:    "Peak",
				XValues: x,
				YValues: peak,
			},
			chart.TimeSeries{
				Name:    "Drawdown",
				XValues: x,
				YValues: drawdown,
				YAxis:   chart.YAxisSecondary,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func downsampleIndexes(n, max int) []int {
	if max <= 0 || n <= max {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}

	out := make([]int, 0, max)
	step := float64(n-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= n {
			idx = n - 1
		}
		out = append(out, idx)
	}
	return out
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
