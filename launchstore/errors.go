package launchstore

import (
	"errors"
	"fmt"
)

// ErrorKind says at which stage of using the database an error happened
type ErrorKind int

const (
	// KindOpening covers open, lock, stat and mmap failures
	KindOpening ErrorKind = iota + 1
	// KindReading covers decoding and validating records
	KindReading
	// KindWriting covers writing records to the new database file
	KindWriting
	// KindClosing covers munmap, finishing the new file and rename
	KindClosing
)

func (k ErrorKind) String() string {
	switch k {
	case KindOpening:
		return "opening database"
	case KindReading:
		return "reading database"
	case KindWriting:
		return "writing database"
	case KindClosing:
		return "closing database"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

var (
	// ErrLocked is returned when the database is already open for writing
	// in this process, or a write is requested while it's open for reading.
	// We fail instead of waiting because the other user is in the same
	// process and waiting on the file lock would deadlock.
	ErrLocked = errors.New("database opened for writing and locked")

	// ErrCorrupt is returned when database content doesn't follow the format
	ErrCorrupt = errors.New("database is corrupt")

	// ErrInvalidTimestamp is returned for launch times that don't fit in 32 bits
	ErrInvalidTimestamp = errors.New("timestamp out of range")
)

// Error is returned by all database operations
type Error struct {
	Kind ErrorKind
	// operation that failed e.g. "flock" or "rename"
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s %s: %s", e.Kind, e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, op string, path string, err error) *Error {
	return &Error{
		Kind: kind,
		Op:   op,
		Path: path,
		Err:  err,
	}
}

// IsKind returns true if err is an *Error of a given kind
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
