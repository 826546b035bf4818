package attachments

import (
	"bytes"
	"io"
	"net/url"
	"os"
	"path/filepath"
)

// Source is an external file to import.
type Source interface {
	// Name is the display name, usually the original file name.
	Name() string
	// URI identifies where the file came from. It may be empty.
	URI() string
	Open() (io.ReadCloser, error)
}

// FileSource imports a file from the local filesystem.
type FileSource struct {
	Path string
}

func (f FileSource) Name() string { return filepath.Base(f.Path) }

func (f FileSource) URI() string {
	abs, err := filepath.Abs(f.Path)
	if err != nil {
		abs = f.Path
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
}

func (f FileSource) Open() (io.ReadCloser, error) {
	return os.Open(f.Path)
}

// BytesSource imports an in-memory payload.
type BytesSource struct {
	FileName string
	Data     []byte
}

func (b BytesSource) Name() string { return b.FileName }
func (b BytesSource) URI() string  { return "" }

func (b BytesSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b.Data)), nil
}
