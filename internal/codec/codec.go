// Package codec implements the byte-level payload transforms of the archive:
// chunked zlib (deflate) compression and raw copying, both producing a CRC32
// of the bytes they emit, and whole-buffer decompression to a known size.
//
// The codec knows nothing about files or tables. Callers hand it streams
// and buffers and get back byte counts, checksums and errors.
package codec

import (
	"errors"
	"fmt"
	"hash"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/zlib"
)

// ChunkSize is the size of the read and write buffers used while streaming.
const ChunkSize = 16 << 10

// Compression levels accepted by CompressStreamed.
const (
	DefaultCompression = zlib.DefaultCompression
	BestSpeed          = zlib.BestSpeed
	BestCompression    = zlib.BestCompression
	HuffmanOnly        = zlib.HuffmanOnly
)

// Error kinds. Every error returned by this package is an *Error whose
// Kind is one of these.
var (
	// ErrEmptyInput is returned when DecompressWhole is given no bytes.
	ErrEmptyInput = errors.New("codec: empty input")

	// ErrData is returned when a compressed stream is malformed, truncated,
	// needs a preset dictionary, or does not end at the expected size.
	ErrData = errors.New("codec: data error")

	// ErrMem is returned when an output buffer of the requested size
	// cannot be allocated.
	ErrMem = errors.New("codec: memory error")

	// ErrShortWrite is returned when the destination accepts fewer bytes
	// than offered or fails outright.
	ErrShortWrite = errors.New("codec: short write")

	// ErrSourceRead is returned when the source fails mid-stream.
	ErrSourceRead = errors.New("codec: source read failed")

	// ErrCompressor is returned when the compressor itself fails.
	ErrCompressor = errors.New("codec: compressor error")
)

// Operations reported in Error.Op.
const (
	OpCompress   = "compress"
	OpCopy       = "copy"
	OpDecompress = "decompress"
)

// Error describes a failed codec operation.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(op string, kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// Checksum returns the CRC32 (IEEE) of b, the checksum stored for every entry.
func Checksum(b []byte) uint32 {
	return crc32.ChecksumIEEE(b)
}

// sinkWriter forwards to the destination while counting bytes and folding
// them into a CRC32. It remembers the first destination failure so callers
// can tell it apart from compressor failures.
type sinkWriter struct {
	dst  io.Writer
	crc  hash.Hash32
	n    uint64
	fail error
}

func newSinkWriter(dst io.Writer) *sinkWriter {
	return &sinkWriter{dst: dst, crc: crc32.NewIEEE()}
}

func (s *sinkWriter) Write(p []byte) (int, error) {
	if s.fail != nil {
		return 0, s.fail
	}
	n, err := s.dst.Write(p)
	if n > 0 {
		s.crc.Write(p[:n])
		s.n += uint64(n)
	}
	if err == nil && n < len(p) {
		err = fmt.Errorf("%w: wrote %d of %d bytes", io.ErrShortWrite, n, len(p))
	}
	if err != nil {
		s.fail = err
	}
	return n, err
}

func (s *sinkWriter) sum() uint32 {
	return s.crc.Sum32()
}
