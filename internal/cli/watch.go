package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print a line every time the database changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, rootOpts, cmd)
		},
	}
}

func runWatch(ctx context.Context, rootOpts *RootOptions, cmd *cobra.Command) error {
	s, err := rootOpts.openStore()
	if err != nil {
		return err
	}
	defer s.Close()
	w, err := s.Watch()
	if err != nil {
		return err
	}
	defer w.Close()

	changed := make(chan struct{}, 1)
	w.Subscribe(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Watching '%s'\n", s.Path())
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changed:
			fmt.Fprintf(out, "store changed\n")
		}
	}
}
