// Command sweep runs the sweeper pipeline on local files.
//
//	sweep convert data.csv --to xlsx --dedupe --fill --out ./clean
//	sweep preview data.csv report.xlsx --rows 10
//	sweep chart data.csv --out chart.png
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/sweeper/internal/config"
	"github.com/JonMunkholm/sweeper/internal/core"
	"github.com/JonMunkholm/sweeper/internal/logging"
)

// errFilesFailed is returned when at least one file could not be processed.
var errFilesFailed = errors.New("one or more files failed")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand(os.Stdout, os.Stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errFilesFailed) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

// app carries what every subcommand needs.
type app struct {
	cfg      *config.Config
	out      io.Writer
	errOut   io.Writer
	logLevel string
}

func newRootCommand(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}

	cmd := &cobra.Command{
		Use:           "sweep",
		Short:         "Clean, project, chart and convert CSV and Excel files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.SetupWriter(a.errOut, a.logLevel, "text")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
	}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	cmd.AddCommand(newConvertCommand(a))
	cmd.AddCommand(newPreviewCommand(a))
	cmd.AddCommand(newChartCommand(a))
	cmd.AddCommand(newFormatsCommand(a))

	return cmd
}

// service builds a pipeline service from the loaded configuration.
func (a *app) service(previewRows int) *core.Service {
	return core.NewService(core.ServiceConfig{
		PreviewRows:   previewRows,
		MaxConcurrent: 1,
		Chart: core.ChartOptions{
			Width:   a.cfg.Chart.Width,
			Height:  a.cfg.Chart.Height,
			MaxBars: a.cfg.Chart.MaxBars,
		},
	})
}

// readJobs reads every file; unreadable files become failed results so the
// remaining files are still processed.
func (a *app) readJobs(paths []string, opts core.Options) ([]core.FileJob, []core.FileResult) {
	var jobs []core.FileJob
	var failed []core.FileResult
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			failed = append(failed, core.FileResult{Name: p, Err: err})
			continue
		}
		jobs = append(jobs, core.FileJob{Name: p, Data: data, Options: opts})
	}
	return jobs, failed
}

// reportError prints a failed file to stderr.
func (a *app) reportError(name string, err error) {
	if !core.IsUserFacing(err) {
		fmt.Fprintf(a.errOut, "%s: %v\n", name, err)
		return
	}
	fmt.Fprintf(a.errOut, "%s: %s\n  cause: %v\n", name, core.FormatUserError(err), err)
}

// cleanOptions enables cleaning when either step is requested.
func cleanOptions(dedupe, fill bool) core.CleanOptions {
	return core.CleanOptions{
		Enabled:          dedupe || fill,
		RemoveDuplicates: dedupe,
		FillMissing:      fill,
	}
}
