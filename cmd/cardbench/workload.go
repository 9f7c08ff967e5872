package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/weiihann/cardbench/estimator"
	"github.com/weiihann/cardbench/workload"
)

func newWorkloadCmd(a *app) *cobra.Command {
	var (
		distribution string
		workloadPath string
		synth        workload.SynthConfig
		sketch       estimator.Config
		compact      bool
	)

	cmd := &cobra.Command{
		Use:   "workload",
		Short: "Print the totals of a distribution",
		Long: `Print the entity and update totals of a builtin, file or synthesized
distribution. With --family the workload is also generated and its
estimators summarized.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				dist workload.Distribution
				err  error
			)

			if synth.Distribution != "" {
				synth.Seed = a.seed()
				dist, err = workload.Synthesize(synth)
			} else {
				dist, err = loadDistribution(distribution, workloadPath)
			}

			if err != nil {
				return fmt.Errorf("load distribution: %w", err)
			}

			fmt.Fprintf(a.stdout, "distribution: %s\n", dist.Name)
			fmt.Fprintf(a.stdout, "points: %d\n", len(dist.Points))
			fmt.Fprintf(a.stdout, "entities: %d\n", dist.TotalEntities())
			fmt.Fprintf(a.stdout, "updates: %d\n", dist.TotalUpdates())

			if !cmd.Flags().Changed("family") {
				return nil
			}

			family, err := estimator.NewFamily(sketch)
			if err != nil {
				return err
			}

			gen := workload.NewGenerator(family, workload.NewSource(a.seed()), compact, a.logger)

			_, summary, err := gen.Generate(dist)
			if err != nil {
				return err
			}

			fmt.Fprintf(a.stdout, "family: %s\n", family.Name())
			fmt.Fprintf(a.stdout, "mean retained: %s\n", summary.InspectorStat("%.2f", summary.MeanRetained))
			fmt.Fprintf(a.stdout, "estimation mode: %s\n", summary.InspectorStat("%.2f%%", summary.EstimationModeFraction*100))
			fmt.Fprintf(a.stdout, "mean serialized bytes: %.1f\n", summary.MeanSerializedBytes)
			fmt.Fprintf(a.stdout, "mean compressed bytes: %.1f\n", summary.MeanCompressedBytes)

			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&distribution, "distribution", "smoke",
		"Builtin distribution: smoke, union")
	flags.StringVar(&workloadPath, "workload", "",
		"Path to a YAML distribution (overrides --distribution)")
	flags.StringVar(&synth.Distribution, "synth", "",
		"Synthesize with a law: power-law, uniform, exponential")
	flags.IntVar(&synth.Entities, "entities", 1000,
		"Entities to synthesize")
	flags.IntVar(&synth.MinUnique, "min-unique", 1,
		"Minimum uniques per synthesized entity")
	flags.IntVar(&synth.MaxUnique, "max-unique", 10000,
		"Maximum uniques per synthesized entity")
	addSketchFlags(cmd, &sketch)
	flags.BoolVar(&compact, "compact", false,
		"Compact estimators after feeding them")

	return cmd
}

func newFamiliesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "families",
		Short: "List the registered estimator families",
		RunE: func(_ *cobra.Command, _ []string) error {
			for _, name := range estimator.KnownFamilies() {
				fmt.Fprintln(a.stdout, name)
			}

			return nil
		},
	}
}
