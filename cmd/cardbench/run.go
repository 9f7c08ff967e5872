package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/weiihann/cardbench/config"
	"github.com/weiihann/cardbench/estimator"
	"github.com/weiihann/cardbench/harness"
	"github.com/weiihann/cardbench/report"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		configPath string
		skipRSE    bool
		outputJSON bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a YAML schedule across several sketches",
		Long: `Run every configured benchmark and the RSE sweep for each sketch of a
schedule file, then print a comparison.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadFile(configPath)
			if err != nil {
				return err
			}

			// Flags given on the command line win over the file.
			flags := cmd.Flags()
			if flags.Changed("seed") {
				cfg.Seed = a.ambient.Seed
			}
			if flags.Changed("log-level") {
				cfg.LogLevel = a.ambient.LogLevel
			}
			if flags.Changed("gc-passes") {
				cfg.GCPasses = a.ambient.GCPasses
			}

			a.ambient = cfg.Ambient

			logger, err := a.ambient.Logger(a.stderr)
			if err != nil {
				return err
			}

			a.logger = logger

			return a.runSchedule(cmd.Context(), cfg, !skipRSE, outputJSON)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "schedule.yaml",
		"Path to the YAML schedule")
	cmd.Flags().BoolVar(&skipRSE, "skip-rse", false,
		"Only run the benchmarks")
	cmd.Flags().BoolVar(&outputJSON, "json", false,
		"Output results as JSON instead of markdown")

	return cmd
}

type scheduleResult struct {
	Benchmarks []harness.Report     `json:"benchmarks"`
	Sweeps     []report.SweepResult `json:"sweeps,omitempty"`
}

func (a *app) runSchedule(ctx context.Context, cfg config.Config, withRSE, outputJSON bool) error {
	sketches, err := cfg.Sketches.Expand()
	if err != nil {
		return err
	}

	dist, err := loadDistribution(cfg.Bench.Distribution, cfg.Bench.Workload)
	if err != nil {
		return fmt.Errorf("load distribution: %w", err)
	}

	a.logger.WithFields(logrus.Fields{
		"sketches":     len(sketches),
		"benchmarks":   cfg.Bench.Benchmarks,
		"distribution": dist.Name,
		"seed":         cfg.Seed,
	}).Info("starting schedule")

	sched := harness.Schedule{Increment: cfg.Bench.Increment, Rounds: cfg.Bench.Rounds}

	var result scheduleResult

	for _, sketch := range sketches {
		family, err := estimator.NewFamily(sketch)
		if err != nil {
			return err
		}

		for _, name := range cfg.Bench.Benchmarks {
			rep, err := a.bench(ctx, family, dist, name, sched, cfg.Bench.Compact)
			if err != nil {
				return err
			}

			result.Benchmarks = append(result.Benchmarks, rep)
		}

		if !withRSE {
			continue
		}

		sw, err := a.sweep(ctx, sketch, cfg.RSE)
		if err != nil {
			return err
		}

		result.Sweeps = append(result.Sweeps, sw)
	}

	a.logger.Info("schedule complete")

	if outputJSON {
		return report.GenerateJSON(a.stdout, result)
	}

	if len(result.Benchmarks) > 0 {
		if err := report.Generate(a.stdout, result.Benchmarks); err != nil {
			return err
		}

		fmt.Fprintln(a.stdout)
	}

	if len(result.Sweeps) > 0 {
		return report.GenerateSweeps(a.stdout, result.Sweeps)
	}

	return nil
}
