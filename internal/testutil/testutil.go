// Package testutil provides in-memory sinks and sources and small file
// helpers shared by tests.
package testutil

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// Buffer is an in-memory io.WriteSeeker that also satisfies io.ReaderAt
// and reports its Size, so an archive written into it can be opened
// directly. It is safe for concurrent use.
type Buffer struct {
	mu   sync.Mutex
	data []byte
	pos  int64
}

// Write implements io.Writer at the current position, growing as needed.
func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	end := b.pos + int64(len(p))
	if end > int64(len(b.data)) {
		b.data = append(b.data, make([]byte, end-int64(len(b.data)))...)
	}
	copy(b.data[b.pos:], p)
	b.pos = end
	return len(p), nil
}

// Seek implements io.Seeker.
func (b *Buffer) Seek(offset int64, whence int) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = b.pos + offset
	case io.SeekEnd:
		abs = int64(len(b.data)) + offset
	default:
		return 0, errors.New("testutil: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("testutil: negative position")
	}
	b.pos = abs
	return abs, nil
}

// ReadAt implements io.ReaderAt semantics over the written bytes.
func (b *Buffer) ReadAt(p []byte, off int64) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if off < 0 {
		return 0, errors.New("testutil: negative offset")
	}
	if off >= int64(len(b.data)) {
		return 0, io.EOF
	}
	n := copy(p, b.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Size returns the number of bytes written.
func (b *Buffer) Size() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return int64(len(b.data))
}

// Bytes returns a copy of the written bytes.
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.data...)
}

// FailingWriteSeeker accepts Limit bytes and then fails every write with
// Err. Seeks always succeed.
type FailingWriteSeeker struct {
	Buffer
	Limit int
	Err   error
}

// Write implements io.Writer.
func (f *FailingWriteSeeker) Write(p []byte) (int, error) {
	if f.Limit <= 0 {
		return 0, f.Err
	}
	n := min(len(p), f.Limit)
	f.Limit -= n
	if _, err := f.Buffer.Write(p[:n]); err != nil {
		return 0, err
	}
	if n < len(p) {
		return n, f.Err
	}
	return n, nil
}

// FailingReader returns Data and then Err instead of io.EOF.
type FailingReader struct {
	Data []byte
	Err  error
}

// Read implements io.Reader.
func (r *FailingReader) Read(p []byte) (int, error) {
	if len(r.Data) == 0 {
		return 0, r.Err
	}
	n := copy(p, r.Data)
	r.Data = r.Data[n:]
	return n, nil
}

// FlipBit inverts one bit of data in place.
func FlipBit(data []byte, off int, bit uint) {
	data[off] ^= 1 << (bit % 8)
}

// WriteFiles creates each file under dir with the given contents and
// returns dir. Keys are slash-separated relative paths.
func WriteFiles(t testing.TB, dir string, files map[string]string) string {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
			t.Fatalf("mkdir %s: %v", name, err)
		}
		if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}
