package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/peterostrander2/ai-betting-backend-sub004/internal/httpapi"
	"github.com/peterostrander2/ai-betting-backend-sub004/internal/pipeline"
	"github.com/peterostrander2/ai-betting-backend-sub004/internal/scheduler"
)

func newScoreCmd() *cobra.Command {
	var (
		inputPath string
		dryRun    bool
	)
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a slate of candidates and persist the surviving picks",
		Long: `Reads a batch request JSON ({"slate_date": "...", "candidates": [...]}),
runs the full scoring pipeline, applies output shaping, appends
surviving picks to the ledger, and prints the batch result with the
complete per-pick score breakdown.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx, !dryRun)
			if err != nil {
				return err
			}
			defer a.close()

			data, err := os.ReadFile(inputPath)
			if err != nil {
				return fmt.Errorf("read candidates: %w", err)
			}
			var req pipeline.BatchRequest
			if err := json.Unmarshal(data, &req); err != nil {
				return fmt.Errorf("parse candidates: %w", err)
			}

			result, err := a.batch.ScoreBatch(ctx, req)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	cmd.Flags().StringVar(&inputPath, "input", "", "path to batch request JSON (required)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "score without persisting to the ledger")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func newGradeCmd() *cobra.Command {
	var (
		outcomesPath string
		learn        bool
	)
	cmd := &cobra.Command{
		Use:   "grade",
		Short: "Run one grading cycle against resolved outcomes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.close()

			engine := a.gradingEngine(outcomesPath)
			report, err := engine.RunCycle(ctx)
			if err != nil {
				return err
			}
			if err := printJSON(report); err != nil {
				return err
			}
			if learn {
				learnReport, err := engine.RunLearning(ctx)
				if err != nil {
					return err
				}
				return printJSON(learnReport)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&outcomesPath, "outcomes", "data/outcomes.json", "path to resolved outcomes JSON")
	cmd.Flags().BoolVar(&learn, "learn", false, "also run a learning pass after grading")
	return cmd
}

func newServeCmd() *cobra.Command {
	var outcomesPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the grading scheduler and operator HTTP surface",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.close()

			sched := scheduler.New(&a.cfg.Scheduler, a.gradingEngine(outcomesPath))
			server := httpapi.New(a.cfg.HTTP.Addr, a.ledger, a.store, &a.cfg.Tiers)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return sched.Run(gctx) })
			g.Go(func() error { return server.Run(gctx) })
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&outcomesPath, "outcomes", "data/outcomes.json", "path to resolved outcomes JSON")
	return cmd
}

func newWeightsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "weights",
		Short: "Inspect or roll back the published weight configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the currently published weight set",
		RunE: func(c *cobra.Command, _ []string) error {
			a, err := buildApp(c.Context(), false)
			if err != nil {
				return err
			}
			return printJSON(a.store.Current())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "history",
		Short: "Print retained weight versions",
		RunE: func(c *cobra.Command, _ []string) error {
			a, err := buildApp(c.Context(), false)
			if err != nil {
				return err
			}
			return printJSON(a.store.History())
		},
	})

	var toVersion int64
	rollback := &cobra.Command{
		Use:   "rollback",
		Short: "Republish a prior weight version",
		RunE: func(c *cobra.Command, _ []string) error {
			a, err := buildApp(c.Context(), false)
			if err != nil {
				return err
			}
			set, err := a.store.Rollback(toVersion)
			if err != nil {
				return err
			}
			return printJSON(set)
		},
	}
	rollback.Flags().Int64Var(&toVersion, "to-version", 0, "version to restore (required)")
	_ = rollback.MarkFlagRequired("to-version")
	cmd.AddCommand(rollback)

	return cmd
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
