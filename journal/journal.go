package journal

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/kjk/launches/log"
)

const (
	// MaxExecutableLen is the longest executable name Append accepts
	MaxExecutableLen = 4096

	// lines longer than that can't come from Append; reading stops there
	maxLineLen = 64 * 1024
)

// Entry is a single recorded launch
type Entry struct {
	// unix time in seconds
	Timestamp int64
	// hash of Executable, as used by the launch database
	Hash uint32
	// can't contain newlines
	Executable string
}

type Journal struct {
	Dir      string
	FileName string

	path    string
	entries []*Entry // In-memory cache of entries
	mu      sync.Mutex
}

// Path returns path of the journal file
func (j *Journal) Path() string {
	return j.path
}

// no direct access to entries to ensure thread safety
func (j *Journal) Entries() []*Entry {
	j.mu.Lock()
	res := append([]*Entry{}, j.entries...)
	j.mu.Unlock()
	return res
}

// Names returns the most recently recorded executable for each hash
func (j *Journal) Names() map[uint32]string {
	j.mu.Lock()
	defer j.mu.Unlock()
	res := map[uint32]string{}
	for _, e := range j.entries {
		res[e.Hash] = e.Executable
	}
	return res
}

// appendToFileRobust appends data with a single write so that lines
// from concurrent processes don't interleave
func appendToFileRobust(path string, data []byte) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return err
	}
	_, err = file.Write(data)
	if err != nil {
		file.Close()
		return err
	}
	err = file.Sync()
	if err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// FormatLine returns journal line for e:
// <timestamp> <hash> <executable>\n
func FormatLine(e *Entry) string {
	return fmt.Sprintf("%d %08x %s\n", e.Timestamp, e.Hash, e.Executable)
}

func (j *Journal) Append(e Entry) (*Entry, error) {
	if e.Executable == "" {
		return nil, errors.New("executable is empty")
	}
	if len(e.Executable) > MaxExecutableLen {
		return nil, fmt.Errorf("executable name is %d bytes, max is %d", len(e.Executable), MaxExecutableLen)
	}
	if strings.ContainsAny(e.Executable, "\r\n") {
		return nil, fmt.Errorf("executable %q contains newlines", e.Executable)
	}
	if e.Timestamp < 0 {
		return nil, fmt.Errorf("invalid timestamp %d", e.Timestamp)
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := appendToFileRobust(j.path, []byte(FormatLine(&e))); err != nil {
		return nil, err
	}
	rec := &e
	j.entries = append(j.entries, rec)
	return rec, nil
}

// perf: allow re-using Entry
func ParseLine(line string, res *Entry) error {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 3 || parts[2] == "" {
		return fmt.Errorf("invalid journal line: %s", line)
	}
	var err error
	res.Timestamp, err = strconv.ParseInt(parts[0], 10, 64)
	if err != nil || res.Timestamp < 0 {
		return fmt.Errorf("invalid timestamp in journal line: %s", line)
	}
	hash, err := strconv.ParseUint(parts[1], 16, 32)
	if err != nil {
		return fmt.Errorf("invalid hash in journal line: %s", line)
	}
	res.Hash = uint32(hash)
	res.Executable = parts[2]
	return nil
}

// ParseFromScanner parses journal lines. Lines that don't parse, e.g.
// one torn by a crash, are logged and skipped. On a read error it
// returns entries parsed so far and the error.
func ParseFromScanner(scanner *bufio.Scanner) ([]*Entry, error) {
	var entries []*Entry
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" {
			continue
		}
		e := &Entry{}
		if err := ParseLine(line, e); err != nil {
			log.Warningf("journal: skipping line %d: %s\n", lineNo, err)
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return entries, fmt.Errorf("error reading line %d: %w", lineNo+1, err)
	}
	return entries, nil
}

// readAllEntries reads the journal file. Only failure to open the file
// is an error, a journal damaged in the middle still gives us the
// entries before the damage.
func readAllEntries(path string) ([]*Entry, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 4096), maxLineLen)
	entries, err := ParseFromScanner(scanner)
	if err != nil {
		log.Warningf("journal: '%s': %s\n", path, err)
	}
	return entries, nil
}

// Reload re-reads the journal to pick up entries appended by
// other processes
func (j *Journal) Reload() error {
	entries, err := readAllEntries(j.path)
	if err != nil {
		return fmt.Errorf("failed to read journal '%s': %w", j.path, err)
	}
	j.mu.Lock()
	j.entries = entries
	j.mu.Unlock()
	return nil
}

// Close is a no-op, the file is only open during Append
func (j *Journal) Close() error {
	return nil
}

func Open(j *Journal) error {
	if j.Dir == "" {
		return fmt.Errorf("journal directory is not set. For current directory, use '.'")
	}
	if j.FileName == "" {
		j.FileName = "journal.txt"
	}
	var err error
	j.path, err = filepath.Abs(filepath.Join(j.Dir, j.FileName))
	if err != nil {
		return fmt.Errorf("failed to get absolute path for journal file: %w", err)
	}
	if err = os.MkdirAll(j.Dir, 0755); err != nil {
		return err
	}
	return j.Reload()
}
