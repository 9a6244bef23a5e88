package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tasknet/dispatch/internal/balancer"
	"github.com/tasknet/dispatch/internal/metrics"
)

var statusWorkersFile string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pool health, quality trend, and load distribution",
	Long: `Show the rolling quality trend, system health against benchmarks,
and (when a worker file is supplied) the load distribution report.

Examples:
  dispatch status
  dispatch status --workers workers.json`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		engine, err := newMetricsEngine()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		health, err := engine.Health(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()

		scoreStr := fmt.Sprintf("%.1f", health.Score)
		switch {
		case health.Score >= 80:
			scoreStr = green(scoreStr)
		case health.Score >= 50:
			scoreStr = yellow(scoreStr)
		default:
			scoreStr = red(scoreStr)
		}

		fmt.Printf("\nSystem health: %s / 100\n\n", scoreStr)
		trend := health.Trend
		fmt.Printf("  Quality (last %d days): mean %.2f over %d sample(s), %s\n",
			trend.WindowDays, trend.Mean, trend.SampleCount, trendLabel(trend.Direction))

		fmt.Printf("\n  Benchmarks:\n")
		fmt.Printf("    quality score     %.2f\n", health.Benchmarks[metrics.BenchmarkQuality])
		fmt.Printf("    completion rate   %.2f\n", health.Benchmarks[metrics.BenchmarkCompletion])
		fmt.Printf("    error rate        %.2f\n", health.Benchmarks[metrics.BenchmarkError])
		fmt.Printf("    response hours    %.2f\n", health.Benchmarks[metrics.BenchmarkResponse])

		if statusWorkersFile != "" {
			workers, err := loadWorkers(statusWorkersFile)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			report := balancer.New().Distribution(workers, nil)
			fmt.Printf("\n  Load distribution: %d worker(s), %.1f%% utilized, %d overloaded (%s)\n",
				report.TotalWorkers, report.OverallUtilization, report.OverloadedWorkers, report.Status)

			fmt.Println()
			for _, w := range workers {
				load := fmt.Sprintf("%.0f%%", w.LoadPercentage())
				if w.LoadPercentage() > balancer.OverloadThreshold*100 {
					load = red(load)
				}
				fmt.Printf("    %-16s %-20s %s of %.0fh, %s\n",
					w.ID, w.PrimarySpecialization, load, w.MaxCapacityHours, w.Availability)
			}
		}
		fmt.Println()
	},
}

func trendLabel(t metrics.Trend) string {
	switch t {
	case metrics.TrendImproving:
		return color.New(color.FgGreen).Sprint("improving")
	case metrics.TrendDeclining:
		return color.New(color.FgRed).Sprint("declining")
	default:
		return "stable"
	}
}

func init() {
	statusCmd.Flags().StringVar(&statusWorkersFile, "workers", "", "JSON file with the worker pool for the load report")
	rootCmd.AddCommand(statusCmd)
}
