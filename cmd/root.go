package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/macsim/sim/report"
	"github.com/inference-sim/macsim/sim/store"
	"github.com/inference-sim/macsim/sim/trial"
)

// version is overridden at build time with -ldflags "-X .../cmd.version=..."
var version = "dev"

var (
	configPath string // YAML trial config
	logLevel   string // Log verbosity level
	dbPath     string // SQLite results database; empty disables persistence
	plotPath   string // Per-node chart output; empty disables plotting
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "macsim",
	Short: "Discrete-event simulator for contention-based MAC protocols",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
		return nil
	},
}

// runCmd executes one trial using the config file, environment and flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single MAC trial",
	Run: func(cmd *cobra.Command, args []string) {
		v, err := newViper(cmd.Flags())
		if err != nil {
			logrus.Fatalf("binding flags: %v", err)
		}
		cfg, err := resolveConfig(v, configPath)
		if err != nil {
			logrus.Fatalf("invalid trial config: %v", err)
		}

		res, err := trial.Run(cmd.Context(), cfg)
		if err != nil {
			logrus.Fatalf("trial failed: %v", err)
		}
		report.Print(cmd.OutOrStdout(), res)

		if plotPath != "" {
			if err := report.SavePlot(plotPath, res); err != nil {
				logrus.Fatalf("saving plot: %v", err)
			}
			logrus.Infof("plot written to %s", plotPath)
		}
		if dbPath != "" {
			if err := persist(cmd.Context(), dbPath, res); err != nil {
				logrus.Fatalf("saving result: %v", err)
			}
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the macsim version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "macsim", version)
	},
}

// persist appends results to the database at path.
func persist(ctx context.Context, path string, results ...*trial.Result) (err error) {
	s, err := store.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); err == nil {
			err = cerr
		}
	}()
	for _, r := range results {
		if err := s.SaveResult(ctx, r); err != nil {
			return err
		}
	}
	logrus.Infof("%d result(s) saved to %s", len(results), path)
	return nil
}

// Execute runs the CLI root command. Ctrl-C cancels a running trial.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML trial config; flags and MACSIM_* variables override it")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database to append results to")

	addTrialFlags(runCmd.Flags())
	runCmd.Flags().StringVar(&plotPath, "plot", "", "Write a per-node chart to this path (.png, .svg, .pdf)")

	addTrialFlags(sweepCmd.Flags())
	sweepCmd.Flags().Float64SliceVar(&sweepPs, "ps", nil, "Slotted transmission probabilities to sweep")
	sweepCmd.Flags().Float64SliceVar(&sweepWaitMeans, "wait-means", nil, "ALOHA mean waits to sweep")
	sweepCmd.Flags().IntVar(&sweepParallel, "parallel", 0, "Trials run at once (0 = one per CPU)")

	rootCmd.AddCommand(runCmd, sweepCmd, versionCmd)
}
