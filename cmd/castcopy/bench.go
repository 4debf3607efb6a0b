package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/urfave/cli/v3"
	"gonum.org/v1/gonum/stat"

	"github.com/born-ml/castcopy/internal/engine"
	"github.com/born-ml/castcopy/internal/queue"
)

// benchResult summarizes per-copy wall times in seconds.
type benchResult struct {
	Runs     int     `json:"runs"`
	Bytes    int     `json:"bytes"`
	Mean     float64 `json:"mean_s"`
	StdDev   float64 `json:"stddev_s"`
	Median   float64 `json:"median_s"`
	Min      float64 `json:"min_s"`
	GBPerSec float64 `json:"gb_per_s"`
}

func summarize(samples []float64, bytes int) benchResult {
	sorted := slices.Clone(samples)
	slices.Sort(sorted)
	mean, std := stat.MeanStdDev(sorted, nil)
	if len(sorted) < 2 {
		std = 0
	}
	r := benchResult{
		Runs:   len(sorted),
		Bytes:  bytes,
		Mean:   mean,
		StdDev: std,
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		Min:    sorted[0],
	}
	if mean > 0 {
		r.GBPerSec = float64(bytes) / mean / 1e9
	}
	return r
}

func benchCmd() *cli.Command {
	var (
		views  viewFlagValues
		warmup int64
		runs   int64
		asJSON bool
	)

	flags := viewFlags(&views)
	flags = append(flags,
		&cli.Int64Flag{
			Name:        "warmup",
			Usage:       "number of warmup copies",
			Value:       2,
			Destination: &warmup,
		},
		&cli.Int64Flag{
			Name:        "runs",
			Aliases:     []string{"n"},
			Usage:       "number of timed copies",
			Value:       20,
			Destination: &runs,
		},
		&cli.BoolFlag{Name: "json", Usage: "print JSON", Destination: &asJSON},
	)

	return &cli.Command{
		Name:  "bench",
		Usage: "Time repeated copies of one layout",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if runs < 1 {
				return fmt.Errorf("runs must be at least 1, got %d", runs)
			}
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			log, err := setupLogger(s, os.Stderr)
			if err != nil {
				return err
			}
			spec, err := views.spec(s.Device)
			if err != nil {
				return err
			}
			src, dst, err := spec.build()
			if err != nil {
				return err
			}
			defer closeViews(src, dst)

			q := queue.New(s.QueueConfig(log))
			defer q.Close()
			e := engine.New(s.EngineOptions(log))
			defer func() { _ = e.Scratch().Clear() }()

			report, err := e.Plan(src, dst)
			if err != nil {
				return err
			}
			log.Info("benchmark starting",
				"strategy", report.Plan.Strategy.String(),
				"elements", report.Plan.NumElements,
				"staged", report.Guard.Staged,
				"workers", q.Workers(),
				"warmup", warmup,
				"runs", runs,
			)

			for range warmup {
				if err := e.CopyCast(ctx, src, dst, q); err != nil {
					return err
				}
			}
			samples := make([]float64, 0, runs)
			for range runs {
				start := time.Now()
				if err := e.CopyCast(ctx, src, dst, q); err != nil {
					return err
				}
				samples = append(samples, time.Since(start).Seconds())
			}

			bytes := src.NumElements() * (src.ItemSize() + dst.ItemSize())
			res := summarize(samples, bytes)
			if asJSON {
				return writeJSON(os.Stdout, res)
			}
			return printBench(os.Stdout, res)
		},
	}
}

func printBench(w io.Writer, r benchResult) error {
	d := func(sec float64) time.Duration { return time.Duration(sec * float64(time.Second)) }
	_, err := fmt.Fprintf(w,
		"runs:    %d\nbytes:   %d\nmean:    %s (± %s)\nmedian:  %s\nmin:     %s\nthroughput: %.2f GB/s\n",
		r.Runs, r.Bytes, d(r.Mean), d(r.StdDev), d(r.Median), d(r.Min), r.GBPerSec)
	return err
}
