package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/kjk/launches/launchstore"
	"github.com/spf13/cobra"
)

// NewLookupCommand creates the lookup command.
func NewLookupCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <executable>",
		Short: "Show when executable was last launched",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := rootOpts.openStore()
			if err != nil {
				return err
			}
			defer s.Close()
			r, ok, err := s.Lookup(args[0])
			if err != nil {
				return err
			}
			printRecord(cmd.OutOrStdout(), args[0], r, ok)
			return nil
		},
	}
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "query <executable>...",
		Short: "Look up many executables, opening the database once",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := rootOpts.openStore()
			if err != nil {
				return err
			}
			defer s.Close()
			q, err := s.NewQuery()
			if err != nil {
				return err
			}
			defer q.Close()
			for _, exe := range args {
				r, ok := q.Lookup(exe)
				printRecord(cmd.OutOrStdout(), exe, r, ok)
			}
			return nil
		},
	}
}

func printRecord(w io.Writer, exe string, r launchstore.Record, ok bool) {
	if !ok {
		fmt.Fprintf(w, "%q has never been launched.\n", exe)
		return
	}
	t := r.Time().Format(time.DateTime)
	fmt.Fprintf(w, "%q was last launched %s and has been launched %d times.\n", exe, t, r.Launches)
}
