package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tasknet/dispatch/internal/types"
)

var (
	gateDeliverablesFile string
	gateStage            string
)

var gateCmd = &cobra.Command{
	Use:   "gate",
	Short: "Run deliverables through a quality gate stage",
	Long: `Score a batch of deliverables at a pipeline stage and record the
approve / needs_revision / reject decisions.

Failing scores open escalations automatically based on the configured
score-to-level bands.

Examples:
  dispatch gate --deliverables batch.json --stage input_validation
  dispatch gate --deliverables batch.json --stage pm_approval`,
	Run: func(cmd *cobra.Command, args []string) {
		stage := types.QualityStage(gateStage)
		if !stage.IsValid() {
			fmt.Fprintf(os.Stderr, "Error: invalid stage %q (want input_validation, content_review, or pm_approval)\n", gateStage)
			os.Exit(1)
		}

		deliverables, err := loadDeliverables(gateDeliverablesFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		engine, err := newGateEngine()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		results, err := engine.ExecuteBatch(context.Background(), deliverables, stage)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()

		fmt.Printf("\nQuality gate %s (threshold %.1f):\n\n", stage, engine.Threshold(stage))
		for _, r := range results {
			var mark string
			switch r.Decision {
			case types.DecisionApproved:
				mark = green("✓")
			case types.DecisionNeedsRevision:
				mark = yellow("~")
			default:
				mark = red("✗")
			}
			fmt.Printf("  %s %s  %.1f  %s\n", mark, r.DeliverableID, r.Score, r.Decision)
		}
		fmt.Println()
	},
}

func init() {
	gateCmd.Flags().StringVar(&gateDeliverablesFile, "deliverables", "", "JSON file with the deliverable batch (required)")
	gateCmd.Flags().StringVar(&gateStage, "stage", "", "pipeline stage (required)")
	_ = gateCmd.MarkFlagRequired("deliverables")
	_ = gateCmd.MarkFlagRequired("stage")
	rootCmd.AddCommand(gateCmd)
}
