package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newFormatsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List supported file formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, f := range a.service(0).ListFormats() {
				fmt.Fprintf(a.out, "%-5s %-6s %s", f.Format, f.Extension, f.Label)
				if len(f.Aliases) > 0 {
					fmt.Fprintf(a.out, " (aliases: %s)", strings.Join(f.Aliases, ", "))
				}
				fmt.Fprintln(a.out)
			}
			return nil
		},
	}
}
