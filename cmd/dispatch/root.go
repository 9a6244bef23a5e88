package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tasknet/dispatch/internal/assign"
	"github.com/tasknet/dispatch/internal/balancer"
	"github.com/tasknet/dispatch/internal/config"
	"github.com/tasknet/dispatch/internal/escalation"
	"github.com/tasknet/dispatch/internal/gates"
	"github.com/tasknet/dispatch/internal/matcher"
	"github.com/tasknet/dispatch/internal/metrics"
	"github.com/tasknet/dispatch/internal/storage"
	"github.com/tasknet/dispatch/internal/types"

	"golang.org/x/time/rate"
)

var (
	cfg   *config.Config
	store storage.Storage
)

var rootCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Task assignment and escalation engine",
	Long: `dispatch assigns tasks to workers by capability, load-balances the
result, runs deliverables through staged quality gates, and escalates
failures to experts with timeout-driven auto-escalation.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		if dbPath, _ := cmd.Flags().GetString("db"); dbPath != "" {
			cfg.Database.Path = dbPath
		}

		// init creates the database itself; everything else opens it here.
		if cmd.Name() == "init" {
			return nil
		}
		store, err = storage.New(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("opening database at %s: %w", cfg.Database.Path, err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if store != nil {
			_ = store.Close()
		}
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "database path (overrides configuration)")
}

// newMetricsEngine builds the metrics engine over the open store.
func newMetricsEngine() (*metrics.Engine, error) {
	return metrics.New(metrics.Config{
		Results:    store,
		Benchmarks: store,
		WindowDays: cfg.Metrics.WindowDays,
	})
}

// newAssignEngine wires matcher, balancer, store, and decision log into a
// task assignment engine.
func newAssignEngine() (*assign.Engine, error) {
	matcherCfg := matcher.Config{MinScore: cfg.Matching.MinScore}
	if cfg.Matching.UsePerformanceMultiplier {
		m, err := newMetricsEngine()
		if err != nil {
			return nil, err
		}
		matcherCfg.Performance = m
	}
	m, err := matcher.New(matcherCfg)
	if err != nil {
		return nil, err
	}
	return assign.New(assign.Config{
		Matcher:   m,
		Balancer:  balancer.New(),
		Store:     store,
		Decisions: storage.DecisionSink{Store: store},
	})
}

// newEscalationManager wires the escalation workflow over the open store,
// loading definitions from configuration when a path is set.
func newEscalationManager() (*escalation.Manager, error) {
	managerCfg := escalation.Config{
		Store:          store,
		Decisions:      storage.DecisionSink{Store: store},
		SweepRate:      rate.Limit(cfg.Escalation.SweepsPerMinute / 60),
		PendingTimeout: cfg.Escalation.PendingTimeout,
	}
	if cfg.Escalation.DefinitionsPath != "" {
		windows, steps, err := escalation.LoadDefinitions(cfg.Escalation.DefinitionsPath)
		if err != nil {
			return nil, err
		}
		managerCfg.Windows = windows
		managerCfg.Steps = steps
	}
	return escalation.NewManager(managerCfg)
}

// newGateEngine wires the quality gate engine, bridging failures into the
// escalation workflow.
func newGateEngine() (*gates.Engine, error) {
	escalator, err := newEscalationManager()
	if err != nil {
		return nil, err
	}
	return gates.New(gates.Config{
		Thresholds: map[types.QualityStage]float64{
			types.StageInputValidation: cfg.Gates.InputValidationThreshold,
			types.StageContentReview:   cfg.Gates.ContentReviewThreshold,
			types.StagePMApproval:      cfg.Gates.PMApprovalThreshold,
		},
		Store:     store,
		Escalator: escalator,
		Decisions: storage.DecisionSink{Store: store},
	})
}
