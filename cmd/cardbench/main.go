// Package main provides the CLI entry point for cardbench, a throughput and
// accuracy benchmark for cardinality estimators.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/weiihann/cardbench/config"
	"github.com/weiihann/cardbench/workload"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := newRootCmd(os.Stdout, os.Stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "cardbench:", err)
		stop()
		os.Exit(1)
	}
}

// app carries what every subcommand shares.
type app struct {
	ambient config.Ambient
	envErr  error
	logger  *logrus.Logger
	stdout  io.Writer
	stderr  io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}
	a.ambient, a.envErr = config.AmbientFromEnv(config.DefaultAmbient())

	root := &cobra.Command{
		Use:   "cardbench",
		Short: "Throughput and accuracy benchmark for cardinality estimators",
		Long: `Cardbench feeds synthetic workloads to cardinality estimators, times
their merge, serialization and update paths, and characterizes the bias and
relative standard error of their estimates as the true cardinality grows.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if a.envErr != nil {
				return a.envErr
			}

			if err := a.ambient.Validate(); err != nil {
				return err
			}

			logger, err := a.ambient.Logger(a.stderr)
			if err != nil {
				return err
			}

			a.logger = logger

			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.Int64Var(&a.ambient.Seed, "seed", a.ambient.Seed,
		"Random seed (0 = use current time)")
	flags.StringVar(&a.ambient.LogLevel, "log-level", a.ambient.LogLevel,
		"Log level: debug, info, warn, error")
	flags.IntVar(&a.ambient.GCPasses, "gc-passes", a.ambient.GCPasses,
		"Garbage collections forced between timed rounds")

	root.AddCommand(
		newBenchCmd(a),
		newRSECmd(a),
		newSpeedCmd(a),
		newCollisionCmd(a),
		newWorkloadCmd(a),
		newFamiliesCmd(a),
		newRunCmd(a),
	)

	return root
}

func (a *app) seed() int64 {
	if a.ambient.Seed == 0 {
		return time.Now().UnixNano()
	}

	return a.ambient.Seed
}

// loadDistribution prefers a workload file over a builtin name.
func loadDistribution(name, path string) (workload.Distribution, error) {
	if path != "" {
		return workload.LoadDistributionFile(path)
	}

	return workload.Builtin(name)
}
