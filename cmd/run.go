package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kilianp07/islandsim/app"
	"github.com/kilianp07/islandsim/core/model"
	"github.com/kilianp07/islandsim/infra/logger"
	"github.com/kilianp07/islandsim/infra/metrics"
)

var runOpts struct {
	scenarios       []string
	resultsDir      string
	continueOnError bool
	csv             bool
	noPlots         bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run scenarios and write the results directory",
	RunE:  runScenarios,
}

func init() {
	for _, c := range []*cobra.Command{rootCmd, runCmd} {
		f := c.Flags()
		f.StringSliceVarP(&runOpts.scenarios, "scenario", "s", nil, "scenario to run (repeatable, default selection when empty)")
		f.StringVar(&runOpts.resultsDir, "results-dir", "", "override output.results_dir")
		f.BoolVar(&runOpts.continueOnError, "continue-on-error", false, "run remaining scenarios after a failure")
		f.BoolVar(&runOpts.csv, "csv", false, "also write per-minute CSV files")
		f.BoolVar(&runOpts.noPlots, "no-plots", false, "skip HTML charts")
	}
	rootCmd.AddCommand(runCmd)
}

func runScenarios(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if runOpts.resultsDir != "" {
		cfg.Output.ResultsDir = runOpts.resultsDir
	}
	if runOpts.continueOnError {
		cfg.ContinueOnError = true
	}
	if runOpts.csv {
		cfg.Output.CSV = true
	}
	if runOpts.noPlots {
		off := false
		cfg.Output.Plots = &off
	}

	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	if addr := cfg.Metrics.PrometheusAddr; addr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, addr); err != nil {
				logger.New("main").Errorf("prometheus server: %v", err)
			}
		}()
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	summary, runErr := svc.Run(ctx, runOpts.scenarios)
	printSummary(cmd, summary)
	return runErr
}

func printSummary(cmd *cobra.Command, summary model.SummaryRecord) {
	names := make([]string, 0, len(summary))
	for n := range summary {
		names = append(names, n)
	}
	sort.Strings(names)
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SCENARIO\tPV\tBESS\tSTABILITY (min)")
	for _, n := range names {
		s := summary[n]
		fmt.Fprintf(w, "%s\t%t\t%t\t%d\n", n, s.PVEnabled, s.BESSEnabled, s.StabilityMinutes)
	}
	_ = w.Flush()
}
