package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

type addOptions struct {
	timestamp int64
	async     bool
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &addOptions{}
	cmd := &cobra.Command{
		Use:   "add <executable>",
		Short: "Record a launch of executable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// --timestamp 0 is a valid launch time, only a missing flag means now
			var when time.Time
			if cmd.Flags().Changed("timestamp") {
				if opts.timestamp < 0 {
					return fmt.Errorf("invalid --timestamp %d", opts.timestamp)
				}
				when = time.Unix(opts.timestamp, 0)
			}
			return runAdd(rootOpts, opts, args[0], when)
		},
	}
	cmd.Flags().Int64Var(&opts.timestamp, "timestamp", 0, "launch time in unix seconds (default: now)")
	cmd.Flags().BoolVar(&opts.async, "async", false, "record in a background process, don't wait for the lock")
	return cmd
}

func runAdd(rootOpts *RootOptions, opts *addOptions, executable string, when time.Time) error {
	s, err := rootOpts.openStore()
	if err != nil {
		return err
	}
	defer s.Close()
	if opts.async {
		return s.AddAsync(executable, when)
	}
	return s.Add(executable, when)
}
