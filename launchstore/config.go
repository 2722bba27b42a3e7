package launchstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kjk/launches/u"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultFileName is the name of database file in user's cache directory
	DefaultFileName = "app-launches"

	// DefaultHelperBinary is the program AddAsync runs to record a launch
	DefaultHelperBinary = "launchstore"
)

// Config describes where the database lives.
// It can be loaded from a yaml file:
//
//	database_file: /home/me/.cache/app-launches
//	scratch_dir: /home/me/.cache
//	journal_dir: /home/me/.cache/app-launches-journal
//	log_dir: /home/me/.cache/app-launches-logs
//	verbose: true
type Config struct {
	// path of the database file
	DatabaseFile string `yaml:"database_file"`
	// directory for temporary files written when adding new records.
	// Must be on the same filesystem as DatabaseFile.
	// Defaults to the directory of DatabaseFile
	ScratchDir string `yaml:"scratch_dir,omitempty"`
	// if set, every launch is also appended to a journal in this directory
	JournalDir string `yaml:"journal_dir,omitempty"`
	// if set, logs are written to daily files in this directory
	LogDir string `yaml:"log_dir,omitempty"`
	// program spawned by AddAsync, DefaultHelperBinary if empty
	HelperBinary string `yaml:"helper_binary,omitempty"`
	Verbose      bool   `yaml:"verbose,omitempty"`
}

// DefaultConfig returns config with database in user's cache directory
// ($XDG_CACHE_HOME or ~/.cache on Linux)
func DefaultConfig() (*Config, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return nil, fmt.Errorf("can't determine cache directory: %w", err)
	}
	return &Config{
		DatabaseFile: filepath.Join(dir, DefaultFileName),
		HelperBinary: DefaultHelperBinary,
	}, nil
}

// LoadConfig reads yaml config from path. Values not set in the file
// come from DefaultConfig(). A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg, err := DefaultConfig()
	if err != nil {
		return nil, err
	}
	d, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	if err = yaml.Unmarshal(d, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config '%s': %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks that config is usable
func (c *Config) Validate() error {
	if c.DatabaseFile == "" {
		return errors.New("database_file is not set")
	}
	if c.ScratchDir != "" && !u.DirExists(c.ScratchDir) {
		return fmt.Errorf("scratch_dir '%s' is not a directory", c.ScratchDir)
	}
	return nil
}
