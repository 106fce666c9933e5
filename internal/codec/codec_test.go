package codec

import (
	"bytes"
	"errors"
	"hash/crc32"
	"io"
	"strings"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// shortWriter accepts at most limit bytes per call without reporting an error.
type shortWriter struct {
	limit int
}

func (w *shortWriter) Write(p []byte) (int, error) {
	if len(p) > w.limit {
		return w.limit, nil
	}
	return len(p), nil
}

// failingReader returns data once, then fails.
type failingReader struct {
	data []byte
	done bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if r.done {
		return 0, errors.New("disk on fire")
	}
	r.done = true
	return copy(p, r.data), nil
}

func patterned(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*7 + i/251)
	}
	return b
}

func TestCompressStreamedRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content []byte
	}{
		{"empty", nil},
		{"small", []byte("hello world")},
		{"exactly one chunk", patterned(ChunkSize)},
		{"several chunks", patterned(5*ChunkSize + 123)},
		{"repetitive", bytes.Repeat([]byte("abcd"), 50_000)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var out bytes.Buffer
			n, crc, err := CompressStreamed(bytes.NewReader(tt.content), &out, DefaultCompression)
			require.NoError(t, err)
			assert.Equal(t, uint64(out.Len()), n)
			assert.Equal(t, crc32.ChecksumIEEE(out.Bytes()), crc)
			assert.Equal(t, Checksum(out.Bytes()), crc)

			got, err := DecompressWhole(out.Bytes(), uint64(len(tt.content)), 0)
			require.NoError(t, err)
			assert.Len(t, got, len(tt.content))
			if len(tt.content) > 0 {
				assert.Equal(t, tt.content, got)
			}
		})
	}
}

func TestCompressStreamedLevels(t *testing.T) {
	t.Parallel()

	content := bytes.Repeat([]byte("level test "), 1000)
	for _, level := range []int{HuffmanOnly, DefaultCompression, 0, BestSpeed, BestCompression} {
		var out bytes.Buffer
		_, _, err := CompressStreamed(bytes.NewReader(content), &out, level)
		require.NoError(t, err, "level %d", level)

		got, err := DecompressWhole(out.Bytes(), uint64(len(content)), 0)
		require.NoError(t, err, "level %d", level)
		assert.Equal(t, content, got)
	}
}

func TestCompressStreamedErrors(t *testing.T) {
	t.Parallel()

	t.Run("short write", func(t *testing.T) {
		t.Parallel()
		_, _, err := CompressStreamed(bytes.NewReader(patterned(3*ChunkSize)), &shortWriter{limit: 1}, BestSpeed)
		require.ErrorIs(t, err, ErrShortWrite)
		require.ErrorIs(t, err, io.ErrShortWrite)

		var codecErr *Error
		require.ErrorAs(t, err, &codecErr)
		assert.Equal(t, OpCompress, codecErr.Op)
	})

	t.Run("source fails mid-stream", func(t *testing.T) {
		t.Parallel()
		_, _, err := CompressStreamed(&failingReader{data: []byte("partial")}, io.Discard, DefaultCompression)
		require.ErrorIs(t, err, ErrSourceRead)
		assert.Contains(t, err.Error(), "disk on fire")
	})

	t.Run("invalid level", func(t *testing.T) {
		t.Parallel()
		_, _, err := CompressStreamed(strings.NewReader("x"), io.Discard, 42)
		require.ErrorIs(t, err, ErrCompressor)
	})
}

func TestCopyStreamed(t *testing.T) {
	t.Parallel()

	content := patterned(2*ChunkSize + 5)
	var out bytes.Buffer
	n, crc, err := CopyStreamed(bytes.NewReader(content), &out)
	require.NoError(t, err)
	assert.Equal(t, uint64(len(content)), n)
	assert.Equal(t, crc32.ChecksumIEEE(content), crc)
	assert.Equal(t, content, out.Bytes())

	_, _, err = CopyStreamed(bytes.NewReader(content), &shortWriter{limit: 10})
	require.ErrorIs(t, err, ErrShortWrite)

	_, _, err = CopyStreamed(&failingReader{data: []byte("abc")}, io.Discard)
	require.ErrorIs(t, err, ErrSourceRead)
}

func TestChecksumHelloWorld(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint32(0x0d4a1185), Checksum([]byte("hello world")))
}

func compressed(t *testing.T, content []byte) []byte {
	t.Helper()
	var out bytes.Buffer
	_, _, err := CompressStreamed(bytes.NewReader(content), &out, DefaultCompression)
	require.NoError(t, err)
	return out.Bytes()
}

func TestDecompressWholeErrors(t *testing.T) {
	t.Parallel()

	content := []byte("the quick brown fox jumps over the lazy dog")
	stream := compressed(t, content)

	var dictStream bytes.Buffer
	zw, err := zlib.NewWriterLevelDict(&dictStream, DefaultCompression, []byte("the quick brown"))
	require.NoError(t, err)
	_, err = zw.Write(content)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	corrupt := bytes.Clone(stream)
	corrupt[len(corrupt)-1] ^= 0xFF // trailing adler32

	tests := []struct {
		name     string
		input    []byte
		expected uint64
		limit    uint64
		wantErr  error
		partial  bool // the allocated buffer comes back with the error
	}{
		{"empty input", nil, 10, 0, ErrEmptyInput, false},
		{"garbage", []byte("definitely not zlib"), 10, 0, ErrData, true},
		{"truncated", stream[:len(stream)/2], uint64(len(content)), 0, ErrData, true},
		{"expected too large", stream, uint64(len(content)) + 1, 0, ErrData, true},
		{"expected too small", stream, uint64(len(content)) - 1, 0, ErrData, true},
		{"checksum mismatch", corrupt, uint64(len(content)), 0, ErrData, true},
		{"dictionary required", dictStream.Bytes(), uint64(len(content)), 0, ErrData, true},
		{"over limit", stream, uint64(len(content)), 8, ErrMem, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := DecompressWhole(tt.input, tt.expected, tt.limit)
			require.ErrorIs(t, err, tt.wantErr)
			if tt.partial {
				assert.Len(t, got, int(tt.expected))
			} else {
				assert.Nil(t, got)
			}

			var codecErr *Error
			require.ErrorAs(t, err, &codecErr)
			assert.Equal(t, OpDecompress, codecErr.Op)
		})
	}
}

func TestDecompressWholeChecksumMismatchKeepsData(t *testing.T) {
	t.Parallel()

	content := []byte("the quick brown fox jumps over the lazy dog")
	stream := compressed(t, content)
	stream[len(stream)-1] ^= 0xFF // trailing adler32 only

	got, err := DecompressWhole(stream, uint64(len(content)), 0)
	require.ErrorIs(t, err, ErrData)
	assert.Equal(t, content, got, "every byte was inflated before the checksum failed")
}

func TestDecompressWholeLimitAllowsExactSize(t *testing.T) {
	t.Parallel()

	content := []byte("exact")
	got, err := DecompressWhole(compressed(t, content), uint64(len(content)), uint64(len(content)))
	require.NoError(t, err)
	assert.Equal(t, content, got)
}
