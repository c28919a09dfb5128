package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/sweeper/internal/core"
)

func newConvertCommand(a *app) *cobra.Command {
	var (
		to      string
		dedupe  bool
		fill    bool
		columns []string
		outDir  string
		force   bool
	)

	cmd := &cobra.Command{
		Use:   "convert FILE...",
		Short: "Clean and convert files to csv or xlsx",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := core.ParseFormat(to)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}

			opts := core.Options{
				Clean:   cleanOptions(dedupe, fill),
				Convert: true,
				Format:  format,
			}
			if cmd.Flags().Changed("columns") {
				opts.Columns = columns
			}

			guard := newOutputGuard(args, force)
			jobs, failed := a.readJobs(args, opts)
			results, err := a.service(0).Run(cmd.Context(), jobs)
			if err != nil {
				return err
			}

			for _, r := range failed {
				a.reportError(r.Name, r.Err)
			}
			for _, r := range results {
				dst := filepath.Join(outDir, r.Export.FileName)
				if r.Err == nil {
					r.Err = guard.claim(dst, r.Name)
				}
				if r.Err == nil {
					r.Err = writeOutput(dst, r.Export.Data)
				}
				if r.Err != nil {
					failed = append(failed, r)
					a.reportError(r.Name, r.Err)
					continue
				}
				fmt.Fprintf(a.out, "%s -> %s (%d rows", r.Name, dst, r.Dataset.RowCount())
				if r.Report.Applied {
					fmt.Fprintf(a.out, ", %d duplicates removed, %d cells filled", r.Report.DuplicatesRemoved, r.Report.Fill.CellsFilled())
				}
				fmt.Fprintln(a.out, ")")
			}

			if len(failed) > 0 {
				return errFilesFailed
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&to, "to", "csv", "output format: csv or xlsx")
	cmd.Flags().BoolVar(&dedupe, "dedupe", false, "remove duplicate rows")
	cmd.Flags().BoolVar(&fill, "fill", false, "fill missing numbers with the column mean")
	cmd.Flags().StringSliceVar(&columns, "columns", nil, "columns to keep, in order")
	cmd.Flags().StringVar(&outDir, "out", ".", "output directory")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite input files and earlier outputs of the same run")

	return cmd
}

func writeOutput(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

var (
	errOverwritesInput  = errors.New("output would overwrite an input file")
	errOverwritesOutput = errors.New("output already written by this run")
)

// outputGuard stops convert from writing over one of its inputs, or over an
// output it produced earlier in the same run (two inputs with one base name).
type outputGuard struct {
	force   bool
	inputs  []os.FileInfo
	written map[string]string // absolute output path -> input name
}

func newOutputGuard(inputs []string, force bool) *outputGuard {
	g := &outputGuard{force: force, written: make(map[string]string)}
	for _, p := range inputs {
		if fi, err := os.Stat(p); err == nil {
			g.inputs = append(g.inputs, fi)
		}
	}
	return g
}

// claim reserves path for the output of input.
func (g *outputGuard) claim(path, input string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	if g.force {
		g.written[abs] = input
		return nil
	}
	if prev, ok := g.written[abs]; ok {
		return fmt.Errorf("%w: %s (from %s); use --force to overwrite", errOverwritesOutput, path, prev)
	}
	if fi, err := os.Stat(abs); err == nil {
		for _, in := range g.inputs {
			if os.SameFile(fi, in) {
				return fmt.Errorf("%w: %s; choose another --out or use --force", errOverwritesInput, path)
			}
		}
	}
	g.written[abs] = input
	return nil
}
