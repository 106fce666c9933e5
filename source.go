package dat

import (
	"fmt"
	"io"
	"os"
)

// ByteSource provides random access to a complete archive.
//
// *bytes.Reader satisfies it, as do the file source used by Open and the
// HTTP range source in the http package. ReadAt must be safe for
// concurrent use.
type ByteSource interface {
	io.ReaderAt
	Size() int64
}

// fileSource wraps *os.File to implement ByteSource.
// os.File has ReadAt but not Size, so the size is taken at open.
type fileSource struct {
	file *os.File
	size int64
}

func newFileSource(f *os.File) (*fileSource, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat archive: %w", err)
	}
	return &fileSource{file: f, size: info.Size()}, nil
}

func (s *fileSource) ReadAt(p []byte, off int64) (int, error) {
	return s.file.ReadAt(p, off)
}

func (s *fileSource) Size() int64 {
	return s.size
}

func (s *fileSource) Close() error {
	return s.file.Close()
}

var _ ByteSource = (*fileSource)(nil)
