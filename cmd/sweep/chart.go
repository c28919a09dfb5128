package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/sweeper/internal/core"
)

func newChartCommand(a *app) *cobra.Command {
	var (
		out     string
		columns []string
		dedupe  bool
		fill    bool
		title   string
	)

	cmd := &cobra.Command{
		Use:   "chart FILE",
		Short: "Render a bar chart of the first two numeric columns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := core.Options{
				Clean:     cleanOptions(dedupe, fill),
				ShowChart: true,
			}
			if cmd.Flags().Changed("columns") {
				opts.Columns = columns
			}

			jobs, failed := a.readJobs(args, opts)
			if len(failed) > 0 {
				a.reportError(failed[0].Name, failed[0].Err)
				return errFilesFailed
			}

			results, err := a.service(0).Run(cmd.Context(), jobs)
			if err != nil {
				return err
			}
			r := results[0]
			if r.Err != nil {
				a.reportError(r.Name, r.Err)
				return errFilesFailed
			}

			chartOpts := core.ChartOptions{
				Title:   title,
				Width:   a.cfg.Chart.Width,
				Height:  a.cfg.Chart.Height,
				MaxBars: a.cfg.Chart.MaxBars,
				Format:  "png",
			}
			if chartOpts.Title == "" {
				chartOpts.Title = filepath.Base(r.Name)
			}
			if strings.EqualFold(filepath.Ext(out), ".svg") {
				chartOpts.Format = "svg"
			}

			img, err := core.RenderChart(*r.Chart, chartOpts)
			if err != nil {
				return err
			}
			if err := writeOutput(out, img); err != nil {
				return err
			}

			fmt.Fprintf(a.out, "%s -> %s (%d series)\n", r.Name, out, len(r.Chart.Series))
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "chart.png", "output image, .png or .svg")
	cmd.Flags().StringSliceVar(&columns, "columns", nil, "columns to keep before charting")
	cmd.Flags().BoolVar(&dedupe, "dedupe", false, "remove duplicate rows first")
	cmd.Flags().BoolVar(&fill, "fill", false, "fill missing numbers first")
	cmd.Flags().StringVar(&title, "title", "", "chart title (default: file name)")
	return cmd
}
