package launchstore

import (
	"bytes"
	"fmt"
	"io"
	"iter"

	"github.com/kjk/launches/atomicfile"
	"github.com/kjk/launches/log"
)

// Dump iterates over all records in hash order. The database is
// read-locked until the iteration finishes.
// An error stops the iteration.
func (s *Store) Dump() iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		v, err := s.Open(false)
		if err != nil {
			yield(Record{}, err)
			return
		}
		defer v.Close()
		for i := 0; i < v.Len(); i++ {
			r, err := v.Record(i)
			if err != nil {
				yield(r, s.fail(err))
				return
			}
			if !yield(r, nil) {
				return
			}
		}
	}
}

// Records returns all records in hash order
func (s *Store) Records() ([]Record, error) {
	var res []Record
	for r, err := range s.Dump() {
		if err != nil {
			return nil, err
		}
		res = append(res, r)
	}
	return res, nil
}

// ValidateImage checks that d is a well-formed database: whole records,
// each canonically encoded, hashes strictly ascending
func ValidateImage(d []byte) error {
	if len(d)%RecordSize != 0 {
		return fmt.Errorf("%w: size %d is not a multiple of record size %d", ErrCorrupt, len(d), RecordSize)
	}
	var canonical [RecordSize]byte
	var prev []byte
	for off := 0; off < len(d); off += RecordSize {
		b := d[off : off+RecordSize]
		r, err := DecodeRecord(b)
		if err != nil {
			return fmt.Errorf("%w: record %d: %w", ErrCorrupt, off/RecordSize, err)
		}
		EncodeRecord(canonical[:], r)
		if !bytes.Equal(canonical[:], b) {
			return fmt.Errorf("%w: record %d is not canonically encoded: %q", ErrCorrupt, off/RecordSize, b)
		}
		if prev != nil && CompareHash(prev, b) >= 0 {
			return fmt.Errorf("%w: record %d (%08x) is out of order", ErrCorrupt, off/RecordSize, r.Hash)
		}
		prev = b
	}
	return nil
}

// Check validates the database file
func (s *Store) Check() error {
	v, err := s.Open(false)
	if err != nil {
		return err
	}
	defer v.Close()
	if err = ValidateImage(v.bytes()); err != nil {
		return s.fail(newError(KindReading, "check", s.path, err))
	}
	return nil
}

// Backup writes database content to w
func (s *Store) Backup(w io.Writer) (int64, error) {
	v, err := s.Open(false)
	if err != nil {
		return 0, err
	}
	defer v.Close()
	n, err := w.Write(v.bytes())
	if err != nil {
		return int64(n), s.fail(fmt.Errorf("backup of '%s' failed: %w", s.path, err))
	}
	return int64(n), nil
}

// Restore replaces the database with content read from r.
// The content is validated before anything is written.
func (s *Store) Restore(r io.Reader) error {
	d, err := io.ReadAll(r)
	if err != nil {
		return s.fail(fmt.Errorf("restore of '%s' failed: %w", s.path, err))
	}
	if err = ValidateImage(d); err != nil {
		return s.fail(newError(KindReading, "restore", s.path, err))
	}

	// the current file might be corrupt, we only need the lock
	v, err := s.openView(true, true)
	if err != nil {
		return s.fail(err)
	}
	err = s.replaceFile(d)
	if err != nil {
		v.removeIfCreated()
	}
	errClose := v.Close()
	if err != nil {
		return s.fail(err)
	}
	if errClose != nil {
		return errClose
	}
	log.Event("restore", "path", s.path, "records", len(d)/RecordSize)
	return nil
}

func (s *Store) replaceFile(d []byte) error {
	f, err := atomicfile.NewInDir(s.path, s.scratchDir)
	if err != nil {
		return newError(KindOpening, "create temp file", s.path, err)
	}
	defer f.RemoveIfNotClosed()
	f.BeforeRename = s.beforeRename
	if _, err = f.Write(d); err != nil {
		return newError(KindWriting, "write", f.TmpPath(), err)
	}
	if err = f.Close(); err != nil {
		return newError(KindClosing, "rename", s.path, err)
	}
	return nil
}
