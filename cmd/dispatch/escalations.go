package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tasknet/dispatch/internal/expert"
	"github.com/tasknet/dispatch/internal/types"
)

var escalationsCmd = &cobra.Command{
	Use:   "escalations",
	Short: "List and manage active escalations",
	Long: `List active escalations and drive them through the workflow.

Examples:
  dispatch escalations                       # List active escalations
  dispatch escalations stats --days 7        # Activity summary
  dispatch escalations start ESC_...         # pending → in_progress
  dispatch escalations assign ESC_...        # Pick and assign the best expert
  dispatch escalations review ESC_...        # → under_review
  dispatch escalations resolve ESC_... -m "fixed in rev 2"`,
	Run: func(cmd *cobra.Command, args []string) {
		manager, err := newEscalationManager()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		active, err := manager.Active(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if len(active) == 0 {
			green := color.New(color.FgGreen).SprintFunc()
			fmt.Printf("\n%s No active escalations\n\n", green("✓"))
			return
		}

		cyan := color.New(color.FgCyan).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		fmt.Printf("\n%d active escalation(s):\n\n", len(active))
		for _, e := range active {
			level := string(e.Level)
			if e.Level == types.LevelCritical || e.Level == types.LevelHigh {
				level = red(level)
			}
			fmt.Printf("  %s  [%s] %s  %s\n", cyan(e.ID), level, e.Status, e.DeliverableID)
			if e.ResolutionTarget != nil {
				fmt.Printf("    due %s", e.ResolutionTarget.Format("2006-01-02 15:04"))
				if e.ExpertAssigned != "" {
					fmt.Printf("  expert: %s", e.ExpertAssigned)
				}
				fmt.Println()
			}
		}
		fmt.Println()
	},
}

var escalationStatsDays int

var escalationStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize escalation activity",
	Run: func(cmd *cobra.Command, args []string) {
		manager, err := newEscalationManager()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		stats, err := manager.Stats(context.Background(), escalationStatsDays)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("\nEscalations over the last %d day(s):\n\n", stats.PeriodDays)
		for _, level := range []types.EscalationLevel{types.LevelLow, types.LevelMedium, types.LevelHigh, types.LevelCritical} {
			fmt.Printf("  %-10s %d\n", level, stats.CountsByLevel[level])
		}
		fmt.Printf("\n  Active: %d\n", stats.ActiveEscalations)
		if stats.AverageResolutionHrs > 0 {
			fmt.Printf("  Average resolution: %.1fh\n", stats.AverageResolutionHrs)
		}
		fmt.Println()
	},
}

var escalationPendingSince string

var escalationPendingCmd = &cobra.Command{
	Use:   "pending <deliverable-id>",
	Short: "Escalate a deliverable stuck awaiting review",
	Long: `Check how long a deliverable has been awaiting review and open a
medium escalation when it is past the pending timeout (default 24h).

Examples:
  dispatch escalations pending DELIV-42 --since 2026-08-27T09:00:00Z`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		since, err := time.Parse(time.RFC3339, escalationPendingSince)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: --since must be RFC3339: %v\n", err)
			os.Exit(1)
		}

		manager, err := newEscalationManager()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		esc, err := manager.EscalatePendingTimeout(context.Background(), args[0], since)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if esc == nil {
			fmt.Printf("%s is within the pending timeout, no escalation opened\n", args[0])
			return
		}
		yellow := color.New(color.FgYellow).SprintFunc()
		fmt.Printf("%s Opened %s at %s for %s\n", yellow("!"), esc.ID, esc.Level, args[0])
	},
}

var escalationStartCmd = &cobra.Command{
	Use:   "start <escalation-id>",
	Short: "Move a pending escalation to in_progress",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		manager, err := newEscalationManager()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		esc, err := manager.UpdateStatus(context.Background(), args[0], types.EscalationInProgress)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s is now %s\n", esc.ID, esc.Status)
	},
}

var escalationAssignCmd = &cobra.Command{
	Use:   "assign <escalation-id>",
	Short: "Select and assign the best available expert",
	Long: `Select the best available expert for the escalation's workflow step
and assign them.

The expert pool comes from the roster (see "dispatch experts"). Selection
weighs expertise coverage, workload headroom, and response time, damped by
historical success rate.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		manager, err := newEscalationManager()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		esc, err := store.GetEscalation(ctx, args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		// The manager already carries the loaded step definitions.
		required := []string{"quality_assurance"}
		if step, ok := manager.StepFor(esc.Level); ok && len(step.RequiredExpertise) > 0 {
			required = step.RequiredExpertise
		}

		pool, err := store.ListExperts(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		best, err := expert.Select(pool, required)
		if errors.Is(err, expert.ErrNoExpertsAvailable) {
			fmt.Fprintf(os.Stderr, "Error: no available expert covers %v\n", required)
			os.Exit(1)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if _, err := manager.AssignExpert(ctx, esc.ID, best.ID); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Assigned expert %s (%s) to %s\n", green("✓"), best.ID, best.Name, esc.ID)
	},
}

var escalationReviewCmd = &cobra.Command{
	Use:   "review <escalation-id>",
	Short: "Move an escalation to under_review",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		manager, err := newEscalationManager()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		esc, err := manager.UpdateStatus(context.Background(), args[0], types.EscalationUnderReview)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s is now %s\n", esc.ID, esc.Status)
	},
}

var escalationResolveNotes string

var escalationResolveCmd = &cobra.Command{
	Use:   "resolve <escalation-id>",
	Short: "Resolve an escalation under review",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		manager, err := newEscalationManager()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		esc, err := manager.Resolve(context.Background(), args[0], escalationResolveNotes)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Resolved %s\n", green("✓"), esc.ID)
	},
}

func init() {
	escalationStatsCmd.Flags().IntVar(&escalationStatsDays, "days", 7, "trailing period in days")
	escalationResolveCmd.Flags().StringVarP(&escalationResolveNotes, "notes", "m", "", "resolution notes")
	escalationPendingCmd.Flags().StringVar(&escalationPendingSince, "since", "", "when the deliverable entered review (RFC3339)")
	escalationPendingCmd.MarkFlagRequired("since")

	escalationsCmd.AddCommand(escalationPendingCmd)
	escalationsCmd.AddCommand(escalationStatsCmd)
	escalationsCmd.AddCommand(escalationStartCmd)
	escalationsCmd.AddCommand(escalationAssignCmd)
	escalationsCmd.AddCommand(escalationReviewCmd)
	escalationsCmd.AddCommand(escalationResolveCmd)
	rootCmd.AddCommand(escalationsCmd)
}
