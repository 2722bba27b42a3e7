package cli

import (
	"github.com/kjk/launches/launchstore"
	"github.com/kjk/launches/log"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	DB         string
	ConfigPath string
	Verbose    bool
	LogDir     string
	ScratchDir string
	JournalDir string
}

// NewRootCommand creates the root command for the launchstore CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "launchstore",
		Short: "Record and query application launches",
		Long: `Records when applications were launched and how many times.

The database is shared by all programs of a user. Launchers record
launches with 'add' and read them back to sort applications by
how recently or how often they are used.`,
		SilenceUsage: true,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			log.Close()
		},
	}

	f := cmd.PersistentFlags()
	f.StringVar(&opts.DB, "db", "", "path of database file (default: app-launches in user cache dir)")
	f.StringVar(&opts.ConfigPath, "config", "", "path of yaml config file")
	f.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	f.StringVar(&opts.LogDir, "log-dir", "", "also write logs to daily files in this directory")
	f.StringVar(&opts.ScratchDir, "scratch-dir", "", "directory for temporary files, must be on the same filesystem as database")
	f.StringVar(&opts.JournalDir, "journal-dir", "", "append launches to a journal in this directory")

	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewLookupCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewDumpCommand(opts))
	cmd.AddCommand(NewLockCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewBackupCommand(opts))
	cmd.AddCommand(NewRestoreCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))

	return cmd
}

// config merges config file (if any) with flags. Flags win.
func (o *RootOptions) config() (*launchstore.Config, error) {
	var cfg *launchstore.Config
	var err error
	if o.ConfigPath != "" {
		cfg, err = launchstore.LoadConfig(o.ConfigPath)
	} else {
		cfg, err = launchstore.DefaultConfig()
	}
	if err != nil {
		return nil, err
	}
	if o.DB != "" {
		cfg.DatabaseFile = o.DB
	}
	if o.ScratchDir != "" {
		cfg.ScratchDir = o.ScratchDir
	}
	if o.JournalDir != "" {
		cfg.JournalDir = o.JournalDir
	}
	if o.LogDir != "" {
		cfg.LogDir = o.LogDir
	}
	if o.Verbose {
		cfg.Verbose = true
	}
	return cfg, nil
}

// openStore sets up logging and creates the store
func (o *RootOptions) openStore() (*launchstore.Store, error) {
	cfg, err := o.config()
	if err != nil {
		return nil, err
	}
	log.Verbose = cfg.Verbose
	if cfg.LogDir != "" {
		log.Init(&log.Config{Dir: cfg.LogDir})
	}
	return launchstore.New(cfg)
}
