package cli

import (
	"bufio"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// NewLockCommand creates the lock command. It's for testing how other
// programs behave while the database is locked.
func NewLockCommand(rootOpts *RootOptions) *cobra.Command {
	var exclusive, shared bool
	cmd := &cobra.Command{
		Use:   "lock",
		Short: "Lock the database until Enter is pressed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if exclusive == shared {
				return errors.New("need exactly one of --exclusive or --shared")
			}
			s, err := rootOpts.openStore()
			if err != nil {
				return err
			}
			defer s.Close()
			v, err := s.Open(exclusive)
			if err != nil {
				return err
			}
			defer v.Close()

			mode := "shared"
			if exclusive {
				mode = "exclusive"
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Holding %s lock on '%s' (%d records). Press Enter to release.\n", mode, s.Path(), v.Len())
			_, _ = bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			fmt.Fprintf(out, "Released.\n")
			return nil
		},
	}
	cmd.Flags().BoolVar(&exclusive, "exclusive", false, "take exclusive (writer) lock")
	cmd.Flags().BoolVar(&shared, "shared", false, "take shared (reader) lock")
	return cmd
}
