package u

import (
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

// implement io.ReadCloser over os.File wrapped with io.Reader.
// io.Closer goes to os.File, io.Reader goes to wrapping reader
type readerWrappedFile struct {
	f       *os.File
	r       io.Reader
	onClose func()
}

func (rc *readerWrappedFile) Close() error {
	if rc.onClose != nil {
		rc.onClose()
	}
	return rc.f.Close()
}

func (rc *readerWrappedFile) Read(p []byte) (int, error) {
	return rc.r.Read(p)
}

// Compression returns compression implied by file extension:
// "zstd", "br", "gzip" or "" for none
func Compression(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zst", ".zstd":
		return "zstd"
	case ".br":
		return "br"
	case ".gz":
		return "gzip"
	}
	return ""
}

// OpenFileMaybeCompressed opens a file that might be compressed with
// gzip or zstd or brotli, based on file extension
func OpenFileMaybeCompressed(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	switch Compression(path) {
	case "zstd":
		r, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		return &readerWrappedFile{f: f, r: r, onClose: r.Close}, nil
	case "br":
		return &readerWrappedFile{f: f, r: brotli.NewReader(f)}, nil
	case "gzip":
		r, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		return &readerWrappedFile{f: f, r: r}, nil
	}
	return f, nil
}

// nopCloser adds a no-op Close to a writer
type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// NewCompressingWriter wraps w in a compressor implied by path's extension.
// Close() must be called to flush compressed data. It doesn't close w.
func NewCompressingWriter(w io.Writer, path string) (io.WriteCloser, error) {
	switch Compression(path) {
	case "zstd":
		// in my tests zstd.SpeedBestCompression is much slower and
		// not much better
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	case "br":
		return brotli.NewWriterLevel(w, brotli.BestCompression), nil
	case "gzip":
		return gzip.NewWriterLevel(w, gzip.BestCompression)
	}
	return nopCloser{w}, nil
}

// getErr returns first non-nil error
func getErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// WriteFileMaybeCompressed creates path and writes to it whatever
// write() writes, compressed based on path's extension.
// On error the file is removed.
func WriteFileMaybeCompressed(path string, write func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	cw, err := NewCompressingWriter(f, path)
	if err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	err = write(cw)
	err2 := cw.Close()
	err3 := f.Close()
	err = getErr(err, err2, err3)
	if err != nil {
		os.Remove(path)
	}
	return err
}
