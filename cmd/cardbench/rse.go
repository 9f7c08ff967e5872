package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/weiihann/cardbench/characterize"
	"github.com/weiihann/cardbench/collision"
	"github.com/weiihann/cardbench/estimator"
	"github.com/weiihann/cardbench/report"
)

type sweepConfig struct {
	sketch     estimator.Config
	opts       characterize.Options
	plotPath   string
	outputJSON bool
}

func addSketchFlags(cmd *cobra.Command, c *estimator.Config) {
	cmd.Flags().StringVar(&c.Family, "family", "hll8",
		"Estimator family (see the families command)")
	cmd.Flags().IntVar(&c.LgK, "lg-k", 12,
		"Log2 of the estimator size parameter")
}

func addAxisFlags(cmd *cobra.Command, o *characterize.Options) {
	flags := cmd.Flags()
	flags.IntVar(&o.MaxLgUniques, "max-lg-uniques", 16,
		"Sweep true cardinality from 1 to 2^max-lg-uniques")
	flags.IntVar(&o.StartLgTrials, "start-lg-trials", 12,
		"Log2 of the trial count at the first point")
	flags.IntVar(&o.EndLgTrials, "end-lg-trials", 6,
		"Log2 of the trial count at the last point")
	flags.IntVar(&o.PointsPerOctave, "ppo", 4,
		"Sweep points per doubling of cardinality")
	flags.BoolVar(&o.Strict, "strict", false,
		"Reject sweeps past the family's cardinality ceiling")
}

func newRSECmd(a *app) *cobra.Command {
	var cfg sweepConfig

	cmd := &cobra.Command{
		Use:   "rse",
		Short: "Characterize estimate bias and relative standard error",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runRSE(cmd.Context(), cfg)
		},
	}

	addSketchFlags(cmd, &cfg.sketch)
	addAxisFlags(cmd, &cfg.opts)
	cmd.Flags().StringVar(&cfg.plotPath, "plot", "",
		"Write an RSE/bias plot to this PNG or SVG path")
	cmd.Flags().BoolVar(&cfg.outputJSON, "json", false,
		"Output results as JSON instead of text")

	return cmd
}

func (a *app) runRSE(ctx context.Context, cfg sweepConfig) error {
	result, err := a.sweep(ctx, cfg.sketch, cfg.opts)
	if err != nil {
		return err
	}

	if cfg.plotPath != "" {
		crossings, err := collision.Curve(cfg.sketch.LgK, cfg.sketch.LgK, 1)
		if err != nil {
			return err
		}

		if err := report.PlotSweep(cfg.plotPath, result.Family, result.Points, crossings); err != nil {
			return err
		}

		a.logger.WithField("path", cfg.plotPath).Info("plot written")
	}

	if cfg.outputJSON {
		return report.GenerateJSON(a.stdout, result)
	}

	report.WriteSweep(a.stdout, result.Points)
	report.WriteSummary(a.stdout, result.Summary)

	return nil
}

// sweep runs one characterization for sketch.
func (a *app) sweep(ctx context.Context, sketch estimator.Config, opts characterize.Options) (report.SweepResult, error) {
	family, err := estimator.NewFamily(sketch)
	if err != nil {
		return report.SweepResult{}, err
	}

	engine := characterize.NewEngine(family, characterize.NewCounter(uint64(a.seed())), a.logger)

	points, summary, err := engine.Characterize(ctx, opts)
	if err != nil {
		return report.SweepResult{}, fmt.Errorf("rse %s: %w", family.Name(), err)
	}

	return report.SweepResult{Family: family.Name(), Points: points, Summary: summary}, nil
}

func newSpeedCmd(a *app) *cobra.Command {
	var cfg sweepConfig

	cmd := &cobra.Command{
		Use:   "speed",
		Short: "Profile update and construction time across cardinalities",
		RunE: func(cmd *cobra.Command, _ []string) error {
			family, err := estimator.NewFamily(cfg.sketch)
			if err != nil {
				return err
			}

			engine := characterize.NewEngine(family, characterize.NewCounter(uint64(a.seed())), a.logger)

			points, summary, err := engine.SpeedProfile(cmd.Context(), cfg.opts)
			if err != nil {
				return fmt.Errorf("speed %s: %w", family.Name(), err)
			}

			if cfg.outputJSON {
				return report.GenerateJSON(a.stdout, points)
			}

			report.WriteSpeed(a.stdout, points)
			report.WriteSummary(a.stdout, summary)

			return nil
		},
	}

	addSketchFlags(cmd, &cfg.sketch)
	addAxisFlags(cmd, &cfg.opts)
	cmd.Flags().BoolVar(&cfg.outputJSON, "json", false,
		"Output results as JSON instead of text")

	return cmd
}
