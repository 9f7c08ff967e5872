package main

import (
	"github.com/spf13/cobra"

	"github.com/weiihann/cardbench/collision"
	"github.com/weiihann/cardbench/report"
)

func newCollisionCmd(a *app) *cobra.Command {
	var (
		kappa   int
		lgKLo   int
		lgKHi   int
		kFactor uint64
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "collision",
		Short: "Tabulate where a bitmap's first collision becomes likely",
		Long: `For bitmaps of k-factor*k bits, print the smallest n at which the chance
of at least one collision reaches the standard normal quantile of kappa. Without
--kappa every kappa from -3 to 3 is printed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				crossings []collision.Crossing
				err       error
			)

			if cmd.Flags().Changed("kappa") {
				crossings, err = crossingsAt(kappa, lgKLo, lgKHi, kFactor)
			} else {
				crossings, err = collision.Curve(lgKLo, lgKHi, kFactor)
			}

			if err != nil {
				return err
			}

			if asJSON {
				return report.GenerateJSON(a.stdout, crossings)
			}

			report.WriteCrossings(a.stdout, crossings)

			return nil
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&kappa, "kappa", 0,
		"Standard deviations from the median, -3..3")
	flags.IntVar(&lgKLo, "lg-k-lo", 4,
		"Smallest log2 k")
	flags.IntVar(&lgKHi, "lg-k-hi", 16,
		"Largest log2 k")
	flags.Uint64Var(&kFactor, "k-factor", 1,
		"Bitmap bits per unit of k")
	flags.BoolVar(&asJSON, "json", false,
		"Output results as JSON instead of text")

	return cmd
}

func crossingsAt(kappa, lgKLo, lgKHi int, kFactor uint64) ([]collision.Crossing, error) {
	all, err := collision.Curve(lgKLo, lgKHi, kFactor)
	if err != nil {
		return nil, err
	}

	if _, err := collision.Threshold(kappa); err != nil {
		return nil, err
	}

	out := make([]collision.Crossing, 0, lgKHi-lgKLo+1)
	for _, c := range all {
		if c.Kappa == kappa {
			out = append(out, c)
		}
	}

	return out, nil
}
