package atomicfile

import (
	"errors"
	"io"
	"os"
	"path/filepath"
)

// Some references:
// - https://www.slideshare.net/nan1nan1/eat-my-data
// - https://lwn.net/Articles/457667/

var (
	// ErrCancelled is returned by calls subsequent to Cancel()
	ErrCancelled = errors.New("cancelled")

	// ensure we implement desired interface
	_ io.WriteCloser = &File{}
)

// File writes to a temporary file and on successful Close() renames it
// over the destination. If any write fails, the destination is untouched
// and the temporary file is removed.
type File struct {
	dstPath string
	tmpDir  string
	tmpFile *os.File
	err     error

	tmpPath string

	// called after the temp file is synced and closed, before rename.
	// returning an error aborts the rename
	BeforeRename func(tmpPath string) error
}

// New creates a temp file next to path
func New(path string) (*File, error) {
	return NewInDir(path, "")
}

// NewInDir creates a temp file in tmpDir that will replace path on Close().
// If tmpDir is empty, the directory of path is used.
// tmpDir must be on the same filesystem as path for the rename to work.
func NewInDir(path string, tmpDir string) (*File, error) {
	dir, fName := filepath.Split(path)
	if fName == "" {
		return nil, &os.PathError{Op: "open", Path: path, Err: os.ErrInvalid}
	}
	if tmpDir == "" {
		tmpDir = dir
	}
	tmpDir, err := filepath.Abs(tmpDir)
	if err != nil {
		return nil, err
	}

	tmpFile, err := os.CreateTemp(tmpDir, fName+"-*.tmp")
	if err != nil {
		return nil, err
	}

	return &File{
		dstPath: path,
		tmpDir:  tmpDir,
		tmpFile: tmpFile,
		tmpPath: tmpFile.Name(),
	}, nil
}

// TmpPath returns path of the temporary file
func (f *File) TmpPath() string {
	return f.tmpPath
}

func (f *File) handleError(err error) error {
	if err == nil {
		return nil
	}
	// remember the first error
	if f.err == nil {
		f.err = err
	}
	// cleanup i.e. delete temporary file
	_ = f.Close()
	return err
}

// Write writes data to a file
func (f *File) Write(d []byte) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	n, err := f.tmpFile.Write(d)
	return n, f.handleError(err)
}

func (f *File) WriteString(s string) (n int, err error) {
	return f.Write([]byte(s))
}

// ReadFrom copies r into the file
func (f *File) ReadFrom(r io.Reader) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	n, err := io.Copy(f.tmpFile, r)
	return n, f.handleError(err)
}

func (f *File) alreadyClosed() bool {
	return f.tmpFile == nil
}

// RemoveIfNotClosed removes the temp file if we didn't Close
// the file yet. Destination file will not be created.
// Use it with defer to ensure cleanup in case of a panic or an
// early return.
// RemoveIfNotClosed after Close is a no-op.
func (f *File) RemoveIfNotClosed() {
	if f == nil {
		return
	}
	if f.alreadyClosed() {
		return
	}
	f.err = ErrCancelled
	_ = f.Close()
}

// syncDir makes the rename durable. Errors are ignored as this is
// a nice to have
func syncDir(dir string) {
	fdir, _ := os.Open(dir)
	if fdir != nil {
		_ = fdir.Sync()
		_ = fdir.Close()
	}
}

// Close syncs and closes the temp file and renames it over destination.
// Can be called multiple times, returns the first error.
func (f *File) Close() error {
	if f.alreadyClosed() {
		return f.err
	}
	tmpFile := f.tmpFile
	f.tmpFile = nil

	// https://www.joeshaw.org/dont-defer-close-on-writable-files/
	errSync := tmpFile.Sync()
	errClose := tmpFile.Close()

	didRename := false
	defer func() {
		if !didRename {
			_ = os.Remove(f.tmpPath)
		}
	}()

	// an error during write wins
	if f.err != nil {
		return f.err
	}

	err := errSync
	if err == nil {
		err = errClose
	}
	if err == nil && f.BeforeRename != nil {
		err = f.BeforeRename(f.tmpPath)
	}
	if err == nil {
		// this will over-write dstPath (if it exists)
		err = os.Rename(f.tmpPath, f.dstPath)
		didRename = (err == nil)
		if didRename {
			syncDir(filepath.Dir(f.dstPath))
		}
	}

	f.err = err
	return f.err
}
