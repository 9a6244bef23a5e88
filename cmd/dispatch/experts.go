package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tasknet/dispatch/internal/types"
)

var expertsCmd = &cobra.Command{
	Use:   "experts",
	Short: "Manage the expert roster",
	Long: `List the expert roster or load experts from a JSON file.

Examples:
  dispatch experts
  dispatch experts load --file roster.json`,
	Run: func(cmd *cobra.Command, args []string) {
		experts, err := store.ListExperts(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if len(experts) == 0 {
			fmt.Println("\nNo experts in the roster. Load some with: dispatch experts load --file roster.json")
			fmt.Println()
			return
		}

		cyan := color.New(color.FgCyan).SprintFunc()
		fmt.Printf("\n%d expert(s):\n\n", len(experts))
		for _, e := range experts {
			fmt.Printf("  %s  %s\n", cyan(e.ID), e.Name)
			fmt.Printf("    expertise: %s\n", strings.Join(e.ExpertiseAreas, ", "))
			fmt.Printf("    %s, workload %d, responds in %.1fh, success %.0f%%\n",
				e.Availability, e.CurrentWorkload, e.ResponseTimeHours, e.SuccessRate*100)
		}
		fmt.Println()
	},
}

var expertsLoadFile string

var expertsLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load experts from a JSON file into the roster",
	Run: func(cmd *cobra.Command, args []string) {
		var experts []*types.Expert
		if err := readJSONFile(expertsLoadFile, &experts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		ctx := context.Background()
		for _, e := range experts {
			if err := store.SaveExpert(ctx, e); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Loaded %d expert(s)\n", green("✓"), len(experts))
	},
}

func init() {
	expertsLoadCmd.Flags().StringVar(&expertsLoadFile, "file", "", "JSON file with the expert roster (required)")
	_ = expertsLoadCmd.MarkFlagRequired("file")

	expertsCmd.AddCommand(expertsLoadCmd)
	rootCmd.AddCommand(expertsCmd)
}
