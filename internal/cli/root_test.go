package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the CLI with database in dir
func run(t *testing.T, dir string, stdin string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	all := append([]string{"--db", filepath.Join(dir, "app-launches")}, args...)
	cmd.SetArgs(all)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRootHasCommands(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"add", "lookup", "query", "dump", "lock", "watch", "backup", "restore", "check"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}
	for _, flag := range []string{"db", "config", "verbose", "log-dir", "scratch-dir", "journal-dir"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), flag)
	}
}

func TestAddAndLookup(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, dir, "", "lookup", "firefox")
	require.NoError(t, err)
	assert.Equal(t, "\"firefox\" has never been launched.\n", out)

	_, err = run(t, dir, "", "add", "--timestamp", "1000", "firefox")
	require.NoError(t, err)
	_, err = run(t, dir, "", "add", "--timestamp", "2000", "firefox")
	require.NoError(t, err)

	out, err = run(t, dir, "", "lookup", "firefox")
	require.NoError(t, err)
	assert.Contains(t, out, "\"firefox\" was last launched")
	assert.Contains(t, out, "launched 2 times")
}

func TestAddTimestampZero(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, dir, "", "add", "--timestamp", "0", "firefox")
	require.NoError(t, err)
	out, err := run(t, dir, "", "--verbose", "dump", "--utc")
	require.NoError(t, err)
	assert.Contains(t, out, "aca988b8\t1970-01-01 00:00:00\t1\n")

	_, err = run(t, dir, "", "add", "--timestamp", "-5", "firefox")
	require.Error(t, err)
}

func TestQuery(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, dir, "", "add", "--timestamp", "1500", "gedit")
	require.NoError(t, err)
	out, err := run(t, dir, "", "query", "gedit", "xterm")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "launched 1 times")
	assert.Equal(t, "\"xterm\" has never been launched.", lines[1])
}

func TestDumpWithJournal(t *testing.T) {
	dir := t.TempDir()
	journalDir := filepath.Join(dir, "journal")
	_, err := run(t, dir, "", "--journal-dir", journalDir, "add", "--timestamp", "1000", "firefox")
	require.NoError(t, err)
	_, err = run(t, dir, "", "--journal-dir", journalDir, "add", "--timestamp", "1500", "gedit")
	require.NoError(t, err)

	out, err := run(t, dir, "", "--journal-dir", journalDir, "dump", "--utc")
	require.NoError(t, err)
	exp := "0f7ff5b2\t1970-01-01 00:25:00\t1\tgedit\naca988b8\t1970-01-01 00:16:40\t1\tfirefox\n"
	assert.Equal(t, exp, out)

	out, err = run(t, dir, "", "dump", "--format", "json")
	require.NoError(t, err)
	var recs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &recs))
	assert.Len(t, recs, 2)

	_, err = run(t, dir, "", "dump", "--format", "xml")
	require.Error(t, err)
}

func TestBackupRestoreCheck(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, dir, "", "add", "--timestamp", "1000", "firefox")
	require.NoError(t, err)

	backup := filepath.Join(dir, "backup.zst")
	out, err := run(t, dir, "", "backup", backup)
	require.NoError(t, err)
	assert.Contains(t, out, "(1 records)")

	dbPath := filepath.Join(dir, "app-launches")
	require.NoError(t, os.WriteFile(dbPath, []byte("garbage"), 0644))
	_, err = run(t, dir, "", "check")
	require.Error(t, err)

	_, err = run(t, dir, "", "restore", backup)
	require.NoError(t, err)
	out, err = run(t, dir, "", "check")
	require.NoError(t, err)
	assert.Contains(t, out, "is ok")
}

func TestLock(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, dir, "", "lock")
	require.Error(t, err)

	out, err := run(t, dir, "\n", "lock", "--exclusive")
	require.NoError(t, err)
	assert.Contains(t, out, "Holding exclusive lock")
	assert.Contains(t, out, "Released.")

	out, err = run(t, dir, "\n", "lock", "--shared")
	require.NoError(t, err)
	assert.Contains(t, out, "Holding shared lock")
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "from-config")
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("database_file: "+dbPath+"\n"), 0644))

	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", cfgPath, "add", "--timestamp", "10", "firefox"})
	require.NoError(t, cmd.Execute())
	_, err := os.Stat(dbPath)
	require.NoError(t, err)
}

func TestLogDir(t *testing.T) {
	dir := t.TempDir()
	logDir := filepath.Join(dir, "logs")
	_, err := run(t, dir, "", "--log-dir", logDir, "add", "--timestamp", "10", "firefox")
	require.NoError(t, err)
	// launch events go to the events log
	entries, err := os.ReadDir(filepath.Join(logDir, "events"))
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}
