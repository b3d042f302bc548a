package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/forecastbench/internal/benchspec"
	"github.com/okian/forecastbench/internal/config"
	"github.com/okian/forecastbench/internal/report"
)

func newRunCommand(opts *globalOptions) *cobra.Command {
	var (
		vendors string
		output  string
		formats []string
		metric  string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Score every vendor once and write reports",
		Long: `Run loads the benchmark spec, scores every vendor on every dataset,
prints the summary tables and writes the selected report formats to the
output directory. Pairs that cannot be scored are reported, not fatal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts, func(c *config.Config) {
				if cmd.Flags().Changed("vendors") {
					c.VendorConfig = vendors
				}
				if cmd.Flags().Changed("output") {
					c.OutputDir = output
				}
				if cmd.Flags().Changed("format") {
					c.ReportFormats = formats
				}
				if cmd.Flags().Changed("metric") {
					c.RankingMetric = metric
				}
			})
			if err != nil {
				return err
			}
			outFormats, err := cfg.Formats()
			if err != nil {
				return err
			}

			spec, err := benchspec.Load(cfg.VendorConfig)
			if err != nil {
				return err
			}

			svc := newService(cfg, spec)
			if err := svc.Start(cmd.Context()); err != nil {
				return err
			}
			defer svc.Stop()

			res, err := svc.Run(cmd.Context(), spec)
			if err != nil {
				return err
			}
			info, _ := svc.LastRun()
			rep := report.New(info.ID, res)

			if err := report.WriteTable(rep, cmd.OutOrStdout()); err != nil {
				return err
			}
			paths, err := report.WriteAll(rep, cfg.OutputDir, outFormats)
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", p)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&vendors, "vendors", "", "Benchmark spec file (default vendor_config.json)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Report directory (default output)")
	cmd.Flags().StringSliceVar(&formats, "format", nil, "Report formats: json, yaml, table")
	cmd.Flags().StringVar(&metric, "metric", "", "Ranking metric (default MAPE)")

	return cmd
}
