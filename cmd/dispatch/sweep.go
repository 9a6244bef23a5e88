package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tasknet/dispatch/internal/escalation"
)

var sweepWatch bool

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Escalate overdue escalations",
	Long: `Run the overdue sweep: every non-terminal escalation past its
resolution target is escalated to the next level with a fresh target.

With --watch the sweep runs on the configured interval until interrupted.

Examples:
  dispatch sweep
  dispatch sweep --watch`,
	Run: func(cmd *cobra.Command, args []string) {
		manager, err := newEscalationManager()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if sweepWatch {
			sweeper, err := escalation.NewSweeper(manager, cfg.Escalation.SweepInterval)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Printf("Sweeping every %s (ctrl-c to stop)\n", cfg.Escalation.SweepInterval)
			sweeper.Run(ctx)
			return
		}

		result, err := manager.SweepOverdue(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("\n%s Sweep complete: %d overdue checked, %d escalated\n\n",
			green("✓"), result.Checked, result.Escalated)
	},
}

func init() {
	sweepCmd.Flags().BoolVar(&sweepWatch, "watch", false, "keep sweeping on the configured interval")
	rootCmd.AddCommand(sweepCmd)
}
