package app

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	chart "github.com/wcharczuk/go-chart/v2"

	"p2pool-monitor/internal/format"
	"p2pool-monitor/internal/model"
)

// Export writes the current worker table as CSV and/or a hashrate bar chart.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}
	opts.MaxBars = a.Config.ResolveMaxBars(opts.MaxBars)

	stratum, err := a.fetchStratum(ctx)
	if err != nil {
		return err
	}
	workers := stratum.DecodedWorkers()
	if len(workers) == 0 {
		a.Logger.Info().Msg("no workers to export")
		return nil
	}
	a.Logger.Info().Int("workers", len(workers)).Msg("exporting workers")

	if opts.CSVPath != "" {
		if err := writeWorkersCSV(a.resolvePath(opts.CSVPath), workers); err != nil {
			return err
		}
	}
	if opts.PNGPath != "" {
		if err := writeWorkersPNG(a.resolvePath(opts.PNGPath), topWorkers(workers, opts.MaxBars), a.Config.Export.ChartWidth); err != nil {
			return err
		}
	}
	return nil
}

// resolvePath places bare file names under export.dir.
func (a *App) resolvePath(path string) string {
	if filepath.IsAbs(path) || filepath.Dir(path) != "." || a.Config.Export.Dir == "" {
		return path
	}
	return filepath.Join(a.Config.Export.Dir, path)
}

// topWorkers returns at most max workers by descending hashrate.
func topWorkers(workers []model.WorkerRecord, max int) []model.WorkerRecord {
	sorted := append([]model.WorkerRecord(nil), workers...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Hashrate > sorted[j].Hashrate })
	if max > 0 && len(sorted) > max {
		sorted = sorted[:max]
	}
	return sorted
}

func writeWorkersCSV(path string, workers []model.WorkerRecord) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"name", "address", "hashrate", "difficulty", "uptime_seconds"}); err != nil {
		return err
	}
	for _, wk := range workers {
		record := []string{
			wk.Name,
			wk.Address,
			strconv.FormatInt(wk.Hashrate, 10),
			strconv.FormatInt(wk.Difficulty, 10),
			strconv.FormatInt(wk.Uptime, 10),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func writeWorkersPNG(path string, workers []model.WorkerRecord, width int) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	if width <= 0 {
		width = 1280
	}

	bars := make([]chart.Value, 0, len(workers))
	peak := 1.0
	for _, wk := range workers {
		bars = append(bars, chart.Value{
			Label: format.Shorten(wk.Name, 6),
			Value: float64(wk.Hashrate),
		})
		peak = max(peak, float64(wk.Hashrate))
	}

	graph := chart.BarChart{
		Title:  "Worker hashrate",
		Width:  width,
		Height: width * 9 / 16,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		BarWidth: 40,
		YAxis: chart.YAxis{
			// a fixed range keeps single-bar and all-zero charts renderable
			Range: &chart.ContinuousRange{Min: 0, Max: peak * 1.1},
			ValueFormatter: func(v interface{}) string {
				return format.Hashrate(v)
			},
		},
		Bars: bars,
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
