package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/sweeper/internal/core"
)

func newPreviewCommand(a *app) *cobra.Command {
	var rows int

	cmd := &cobra.Command{
		Use:   "preview FILE...",
		Short: "Show column types and the first rows of each file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if rows <= 0 {
				return fmt.Errorf("--rows must be positive, got %d", rows)
			}

			jobs, failed := a.readJobs(args, core.Options{})
			results, err := a.service(rows).Run(cmd.Context(), jobs)
			if err != nil {
				return err
			}

			for _, r := range failed {
				a.reportError(r.Name, r.Err)
			}
			for i, r := range results {
				if r.Err != nil {
					failed = append(failed, r)
					a.reportError(r.Name, r.Err)
					continue
				}
				if i > 0 {
					fmt.Fprintln(a.out)
				}
				printPreview(a, r.Name, *r.Preview)
			}

			if len(failed) > 0 {
				return errFilesFailed
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&rows, "rows", core.DefaultPreviewRows, "number of rows to show")
	return cmd
}

func printPreview(a *app, name string, p core.Preview) {
	fmt.Fprintf(a.out, "== %s (%d rows, %d columns) ==\n", name, p.TotalRows, len(p.Columns))

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	header := make([]string, len(p.Columns))
	types := make([]string, len(p.Columns))
	for i, c := range p.Columns {
		header[i] = c.Name
		types[i] = fmt.Sprintf("%s, %d missing", c.Type, c.Missing)
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	fmt.Fprintln(tw, strings.Join(types, "\t"))
	for _, row := range p.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	tw.Flush()
}
