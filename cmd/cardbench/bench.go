package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/weiihann/cardbench/estimator"
	"github.com/weiihann/cardbench/harness"
	"github.com/weiihann/cardbench/report"
	"github.com/weiihann/cardbench/workload"
)

type benchConfig struct {
	sketch       estimator.Config
	distribution string
	workloadPath string
	benchmark    string
	increment    int
	rounds       int
	compact      bool
	outputJSON   bool
}

func newBenchCmd(a *app) *cobra.Command {
	var cfg benchConfig

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Time one benchmark over a generated workload",
		Long: `Generate one estimator per population member of a distribution, then
time repeated merges, serializations or rebuilds of the whole set.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runBench(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	addSketchFlags(cmd, &cfg.sketch)
	flags.StringVar(&cfg.distribution, "distribution", "smoke",
		"Builtin distribution: smoke, union")
	flags.StringVar(&cfg.workloadPath, "workload", "",
		"Path to a YAML distribution (overrides --distribution)")
	flags.StringVar(&cfg.benchmark, "benchmark", "union",
		"Benchmark: union, serialize, update")
	flags.IntVar(&cfg.increment, "increment", 10,
		"Benchmark repetitions per timed round")
	flags.IntVar(&cfg.rounds, "rounds", 5,
		"Number of measured rounds")
	flags.BoolVar(&cfg.compact, "compact", false,
		"Compact estimators after feeding them")
	flags.BoolVar(&cfg.outputJSON, "json", false,
		"Output results as JSON instead of text")

	return cmd
}

func (a *app) runBench(ctx context.Context, cfg benchConfig) error {
	dist, err := loadDistribution(cfg.distribution, cfg.workloadPath)
	if err != nil {
		return fmt.Errorf("load distribution: %w", err)
	}

	family, err := estimator.NewFamily(cfg.sketch)
	if err != nil {
		return err
	}

	a.logger.WithFields(logrus.Fields{
		"family":       family.Name(),
		"distribution": dist.Name,
		"benchmark":    cfg.benchmark,
		"increment":    cfg.increment,
		"rounds":       cfg.rounds,
	}).Info("starting benchmark")

	rep, err := a.bench(ctx, family, dist, cfg.benchmark, harness.Schedule{
		Increment: cfg.increment,
		Rounds:    cfg.rounds,
	}, cfg.compact)
	if err != nil {
		return err
	}

	if cfg.outputJSON {
		return report.GenerateJSON(a.stdout, rep)
	}

	report.WriteRounds(a.stdout, rep.Rounds)
	fmt.Fprintln(a.stdout)

	return report.Generate(a.stdout, []harness.Report{rep})
}

// bench runs one benchmark schedule for family over dist.
func (a *app) bench(
	ctx context.Context,
	family estimator.Family,
	dist workload.Distribution,
	name string,
	sched harness.Schedule,
	compact bool,
) (harness.Report, error) {
	gen := workload.NewGenerator(family, workload.NewSource(a.seed()), compact, a.logger)

	b, err := harness.NewBenchmark(name, family, gen)
	if err != nil {
		return harness.Report{}, err
	}

	driver := harness.NewDriver(b, harness.GCQuiesce(a.ambient.GCPasses), a.logger)

	rep, err := driver.Run(ctx, dist, sched)
	if err != nil {
		return harness.Report{}, fmt.Errorf("%s %s: %w", name, family.Name(), err)
	}

	rep.Family = family.Name()

	return rep, nil
}
