package launchstore

import (
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/kjk/launches/atomicfile"
	"github.com/kjk/launches/journal"
	"github.com/kjk/launches/log"
)

// unixSeconds converts launch time to what we store.
// Zero time means now.
func unixSeconds(t time.Time) (uint32, error) {
	if t.IsZero() {
		t = time.Now()
	}
	sec := t.Unix()
	if sec < 0 || sec > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidTimestamp, t.UTC().Format(time.RFC3339))
	}
	return uint32(sec), nil
}

// Add records a launch of executable at time when (now if when is zero).
// An existing record is updated in place. A new record is inserted by
// writing a new database file and renaming it over the old one, so
// readers never see a partially written database.
func (s *Store) Add(executable string, when time.Time) error {
	ts, err := unixSeconds(when)
	if err != nil {
		return s.fail(newError(KindWriting, "add", s.path, err))
	}

	v, err := s.Open(true)
	if err != nil {
		return err
	}

	hash := HashString(executable)
	isNew := false
	if ref, ok := v.LookupHash(hash); ok {
		err = v.update(ref, Update{LastLaunched: ts, SetLastLaunched: true})
		if err == nil {
			s.touch()
		}
	} else {
		isNew = true
		err = s.insert(v, hash, ts)
	}
	if err == nil {
		s.appendToJournal(executable, hash, ts)
	} else {
		v.removeIfCreated()
	}

	// release the lock even if insert failed
	errClose := v.Close()
	if err != nil {
		return s.fail(err)
	}
	if errClose != nil {
		return errClose
	}
	log.Event("launch", "exe", executable, "hash", fmt.Sprintf("%08x", hash), "ts", int64(ts), "new", isNew)
	return nil
}

// touch updates modification time of the database. Writes through
// a memory mapping don't generate file change notifications so
// without this watchers would miss in-place updates.
func (s *Store) touch() {
	now := time.Now()
	if err := os.Chtimes(s.path, now, now); err != nil {
		log.Warningf("launchstore: touch '%s' failed with '%s'\n", s.path, err)
	}
}

// insert writes records from v plus a new record, keeping hash order,
// to a temp file and renames it over the database file.
// Must be called with v open for writing.
func (s *Store) insert(v *View, hash uint32, ts uint32) error {
	f, err := atomicfile.NewInDir(s.path, s.scratchDir)
	if err != nil {
		return newError(KindOpening, "create temp file", s.path, err)
	}
	defer f.RemoveIfNotClosed()
	f.BeforeRename = s.beforeRename

	rec := newRecordBytes(hash, ts)
	inserted := false
	write := func(b []byte) error {
		if _, err := f.Write(b); err != nil {
			return newError(KindWriting, "write", f.TmpPath(), err)
		}
		return nil
	}

	n := v.Len()
	for i := 0; i < n; i++ {
		cur := v.slot(i)
		if !inserted && CompareHash(cur, rec) > 0 {
			if err = write(rec); err != nil {
				return err
			}
			inserted = true
		}
		if err = write(cur); err != nil {
			return err
		}
	}
	if !inserted {
		// bigger than all existing hashes
		if err = write(rec); err != nil {
			return err
		}
	}

	// sync, close and rename over the database while we still hold the lock
	if err = f.Close(); err != nil {
		return newError(KindClosing, "rename", s.path, err)
	}
	return nil
}

func (s *Store) appendToJournal(executable string, hash uint32, ts uint32) {
	if s.journal == nil {
		return
	}
	e := journal.Entry{
		Timestamp:  int64(ts),
		Hash:       hash,
		Executable: executable,
	}
	if _, err := s.journal.Append(e); err != nil {
		log.Warningf("launchstore: journal append failed with '%s'\n", err)
	}
}

// helperArgs returns command line for recording a launch with the
// launchstore tool
func (s *Store) helperArgs(executable string, ts uint32) []string {
	args := []string{"--db", s.path}
	if s.scratchDir != "" {
		args = append(args, "--scratch-dir", s.scratchDir)
	}
	if s.journal != nil {
		args = append(args, "--journal-dir", s.journal.Dir)
	}
	args = append(args, "add", "--timestamp", strconv.FormatUint(uint64(ts), 10), "--", executable)
	return args
}

// AddAsync records a launch in a separate process so that the caller
// doesn't wait for the database lock. Waiting for the lock and ordering
// of writers is left to the kernel. Failures of the child process are
// only logged.
func (s *Store) AddAsync(executable string, when time.Time) error {
	ts, err := unixSeconds(when)
	if err != nil {
		return s.fail(newError(KindWriting, "add", s.path, err))
	}
	cmd := exec.Command(s.helperBinary, s.helperArgs(executable, ts)...)
	if err = cmd.Start(); err != nil {
		return s.fail(fmt.Errorf("failed to start '%s': %w", cmd.String(), err))
	}
	log.Verbosef("launchstore: started '%s'\n", cmd.String())
	go func() {
		if err := cmd.Wait(); err != nil {
			log.Warningf("launchstore: '%s' failed with '%s'\n", cmd.String(), err)
		}
	}()
	return nil
}
