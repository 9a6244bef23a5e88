package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tasknet/dispatch/internal/storage"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the dispatch database",
	Long: `Initialize the dispatch database at the configured path.

Creates the SQLite database and schema. Safe to run on an existing
database; the schema is idempotent.

Example:
  dispatch init
  dispatch init --db /var/lib/dispatch/dispatch.db`,
	Run: func(cmd *cobra.Command, args []string) {
		db, err := storage.New(cfg.Database.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to initialize database: %v\n", err)
			os.Exit(1)
		}
		_ = db.Close()

		green := color.New(color.FgGreen).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()
		fmt.Printf("\n%s Initialized dispatch database\n\n", green("✓"))
		fmt.Printf("  Database: %s\n\n", cyan(cfg.Database.Path))
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
