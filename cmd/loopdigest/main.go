// Command loopdigest runs the offline analysis pipeline over the latest
// exported data snapshot.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/korelidw/loop-digest/digest"
	"github.com/korelidw/loop-digest/digest/defs"
)

var (
	configFile string
	dataDir    string
	outDir     string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "loopdigest",
		Short: "Batch analysis of exported diabetes-management data",
		Long: `loopdigest ingests exported CGM readings, treatment logs, loop cycle
records, and pump settings, and derives the statistical summaries behind the
personal dashboard: time-in-range, risk indices, AGP bands, meal-response
timing, correction effectiveness, and gating reliability.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "f", "config.yaml", "config file")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "override snapshot directory")
	rootCmd.PersistentFlags().StringVar(&outDir, "out-dir", "", "override output directory")

	rootCmd.AddCommand(runCmd(), showCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() (*digest.App, error) {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}

	cfg, err := digest.LoadConfig(configFile, logger)
	if err != nil {
		// Missing config is not fatal; defaults cover everything but paths.
		logger.Debug("using default config", zap.Error(err))
		cfg = defs.DefaultConfig()
		cfg.Logger = logger
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if outDir != "" {
		cfg.OutDir = outDir
	}

	return digest.New(cfg)
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Build every report and write the summary files",
		RunE: func(_ *cobra.Command, _ []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			return app.Run(time.Now())
		},
	}
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the headline digest without writing files",
		RunE: func(_ *cobra.Command, _ []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			snap, err := app.Snapshot()
			if err != nil {
				return err
			}

			dg := app.Builder.Digest(snap)
			day := app.Builder.DailyTIR(snap, time.Now())

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"Metric", "Value"})
			t.AppendRows([]table.Row{
				{"Readings", humanize.Comma(int64(dg.Meta.Count))},
				{"Latest reading", relTime(dg.Meta.Latest)},
				{"Coverage", fmtPtr(dg.Meta.Coverage)},
				{"CV", fmtPtr(dg.CV)},
				{"LBGI / HBGI / GRI", fmt.Sprintf("%.2f / %.2f / %.2f", dg.Risk.LBGI, dg.Risk.HBGI, dg.Risk.GRI)},
			})
			t.AppendSeparator()
			t.AppendRows([]table.Row{
				{"Today TIR 70-180", fmt.Sprintf("%.1f%%", day.Pct.TIR)},
				{"Today TBR <70", fmt.Sprintf("%.1f%%", day.Pct.TBRBelowLow)},
				{"Today TAR >180", fmt.Sprintf("%.1f%%", day.Pct.TAR)},
			})
			t.Render()
			return nil
		},
	}
}

func fmtPtr(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.3g", *v)
}

func relTime(iso string) string {
	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		return "n/a"
	}
	return humanize.Time(t)
}
