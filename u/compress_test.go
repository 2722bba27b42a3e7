package u

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert"
)

func testCompressRoundTrip(t *testing.T, name string) {
	d, err := os.ReadFile("compress.go")
	assert.NoError(t, err)

	path := filepath.Join(t.TempDir(), name)
	err = WriteFileMaybeCompressed(path, func(w io.Writer) error {
		_, err := w.Write(d)
		return err
	})
	assert.NoError(t, err)

	r, err := OpenFileMaybeCompressed(path)
	assert.NoError(t, err)
	defer r.Close()
	var dst bytes.Buffer
	_, err = io.Copy(&dst, r)
	assert.NoError(t, err)
	assert.Equal(t, d, dst.Bytes())

	if Compression(path) != "" {
		assert.True(t, FileSize(path) < int64(len(d)), "%s not compressed", name)
	}
}

func TestCompressRoundTrip(t *testing.T) {
	for _, name := range []string{"backup", "backup.zst", "backup.br", "backup.gz"} {
		testCompressRoundTrip(t, name)
	}
}

func TestCompression(t *testing.T) {
	assert.Equal(t, "zstd", Compression("a/b.ZST"))
	assert.Equal(t, "zstd", Compression("b.zstd"))
	assert.Equal(t, "br", Compression("b.br"))
	assert.Equal(t, "gzip", Compression("b.gz"))
	assert.Equal(t, "", Compression("app-launches"))
}

func TestWriteFileMaybeCompressedRemovesOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.zst")
	errWrite := io.ErrShortWrite
	err := WriteFileMaybeCompressed(path, func(w io.Writer) error {
		return errWrite
	})
	assert.Equal(t, errWrite, err)
	assert.False(t, FileExists(path))
}
