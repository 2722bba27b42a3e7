package cli

import (
	"fmt"
	"slices"
	"time"

	"github.com/kjk/launches/launchstore"
	"github.com/spf13/cobra"
)

type dumpOptions struct {
	format   string
	utc      bool
	relative bool
}

// NewDumpCommand creates the dump command.
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &dumpOptions{}
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print all records",
		Long: `Print all records in hash order.

In text format each line is:
  <hash>	<last launched>	<launches>[	<executable>]

Executable names are only known for launches recorded with --journal-dir.`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(launchstore.DumpFormats, opts.format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.format, launchstore.DumpFormats)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := rootOpts.openStore()
			if err != nil {
				return err
			}
			defer s.Close()
			dumpOpts := &launchstore.DumpOptions{
				Format:   opts.format,
				Relative: opts.relative,
			}
			if opts.utc {
				dumpOpts.Location = time.UTC
			}
			if j := s.Journal(); j != nil {
				dumpOpts.Names = j.Names()
			}
			return s.WriteDump(cmd.OutOrStdout(), dumpOpts)
		},
	}
	cmd.Flags().StringVar(&opts.format, "format", "text", "output format (text|json|toon)")
	cmd.Flags().BoolVar(&opts.utc, "utc", false, "show times in UTC instead of local time")
	cmd.Flags().BoolVar(&opts.relative, "relative", false, "show times relative to now e.g. '3 hours ago'")
	return cmd
}
