package cli

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/kjk/launches/launchstore"
	"github.com/kjk/launches/u"
	"github.com/spf13/cobra"
)

// NewBackupCommand creates the backup command.
func NewBackupCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "backup <file>",
		Short: "Copy the database to a file",
		Long: `Copy the database to a file.

The file is compressed if its name ends with .zst, .br or .gz.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := rootOpts.openStore()
			if err != nil {
				return err
			}
			defer s.Close()
			var n int64
			err = u.WriteFileMaybeCompressed(args[0], func(w io.Writer) error {
				n, err = s.Backup(w)
				return err
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backed up %s (%d records) to '%s'\n", humanize.Bytes(uint64(n)), n/launchstore.RecordSize, args[0])
			return nil
		},
	}
}

// NewRestoreCommand creates the restore command.
func NewRestoreCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <file>",
		Short: "Replace the database with a backup",
		Long: `Replace the database with a backup made by 'backup'.

The backup is validated before the database is replaced.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := rootOpts.openStore()
			if err != nil {
				return err
			}
			defer s.Close()
			r, err := u.OpenFileMaybeCompressed(args[0])
			if err != nil {
				return err
			}
			defer u.CloseNoError(r)
			if err = s.Restore(r); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored '%s' from '%s'\n", s.Path(), args[0])
			return nil
		},
	}
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := rootOpts.openStore()
			if err != nil {
				return err
			}
			defer s.Close()
			if err = s.Check(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "'%s' is ok\n", s.Path())
			return nil
		},
	}
}
