package cmd

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/macsim/sim/distribution"
	"github.com/inference-sim/macsim/sim/report"
	"github.com/inference-sim/macsim/sim/trial"
)

var (
	sweepPs        []float64 // slotted p values
	sweepWaitMeans []float64 // ALOHA exponential wait means
	sweepParallel  int       // concurrent trials
)

// sweepCmd runs one trial per swept value, in parallel, and prints a table
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run a trial per p value and/or wait mean and compare them",
	Run: func(cmd *cobra.Command, args []string) {
		v, err := newViper(cmd.Flags())
		if err != nil {
			logrus.Fatalf("binding flags: %v", err)
		}
		base, err := resolveConfig(v, configPath)
		if err != nil {
			logrus.Fatalf("invalid trial config: %v", err)
		}
		cfgs := sweepConfigs(base, sweepPs, sweepWaitMeans)
		if len(cfgs) == 0 {
			logrus.Fatalf("nothing to sweep: pass --ps and/or --wait-means")
		}

		results, err := runSweep(cmd.Context(), cfgs, sweepParallel)
		if err != nil {
			logrus.Fatalf("sweep failed: %v", err)
		}
		if err := report.PrintTable(cmd.OutOrStdout(), results); err != nil {
			logrus.Fatalf("printing table: %v", err)
		}
		if dbPath != "" {
			if err := persist(cmd.Context(), dbPath, results...); err != nil {
				logrus.Fatalf("saving results: %v", err)
			}
		}
	},
}

// sweepConfigs derives one slotted config per p and one ALOHA config per
// wait mean from base, in that order.
func sweepConfigs(base trial.Config, ps, waitMeans []float64) []trial.Config {
	cfgs := make([]trial.Config, 0, len(ps)+len(waitMeans))
	for _, p := range ps {
		c := base
		c.Protocol = trial.ProtocolSlotted
		c.P = p
		cfgs = append(cfgs, c)
	}
	for _, mean := range waitMeans {
		c := base
		c.Protocol = trial.ProtocolALOHA
		c.Wait = distribution.Spec{Type: "exponential", Params: map[string]float64{"mean": mean}}
		cfgs = append(cfgs, c)
	}
	return cfgs
}

// runSweep runs every config on a pool of parallel workers. Each trial owns
// its simulator and RNG streams, so results match sequential runs; they are
// returned in input order. All trial failures are reported together.
func runSweep(ctx context.Context, cfgs []trial.Config, parallel int) ([]*trial.Result, error) {
	if parallel <= 0 {
		parallel = runtime.NumCPU()
	}
	results := make([]*trial.Result, len(cfgs))
	errs := make([]error, len(cfgs))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < min(parallel, len(cfgs)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i], errs[i] = trial.Run(ctx, cfgs[i])
			}
		}()
	}
	for i := range cfgs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	var result *multierror.Error
	for i, err := range errs {
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("trial %d (%s): %w", i, cfgs[i].Protocol, err))
		}
	}
	return results, result.ErrorOrNil()
}
