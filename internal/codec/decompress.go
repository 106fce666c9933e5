package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/meigma/dat/internal/sizing"
)

// DecompressWhole inflates a complete zlib stream into a new buffer of
// exactly expected bytes.
//
// expected is authoritative: the stream must produce that many bytes and
// then end cleanly. A limit greater than zero rejects larger targets with
// ErrMem before anything is allocated.
//
// Once the buffer is allocated, an ErrData failure returns it alongside the
// error, holding whatever the stream produced before it broke.
func DecompressWhole(input []byte, expected, limit uint64) ([]byte, error) {
	if len(input) == 0 {
		return nil, newError(OpDecompress, ErrEmptyInput, nil)
	}
	if limit > 0 && expected > limit {
		return nil, newError(OpDecompress, ErrMem, fmt.Errorf("output size %d exceeds limit %d", expected, limit))
	}
	size, err := sizing.ToInt(expected, ErrMem)
	if err != nil {
		return nil, newError(OpDecompress, ErrMem, fmt.Errorf("output size %d", expected))
	}
	out := make([]byte, size)

	zr, err := zlib.NewReader(bytes.NewReader(input))
	if err != nil {
		return out, inflateError(err)
	}
	defer zr.Close()

	if n, err := io.ReadFull(zr, out); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return out, newError(OpDecompress, ErrData, fmt.Errorf("stream ended after %d of %d bytes", n, size))
		}
		return out, inflateError(err)
	}

	// The stream must end here; this read also checks the trailing checksum.
	var probe [1]byte
	n, err := zr.Read(probe[:])
	if n > 0 {
		return out, newError(OpDecompress, ErrData, fmt.Errorf("stream holds more than %d bytes", size))
	}
	if err != io.EOF {
		if err == nil {
			err = errors.New("no end of stream marker")
		}
		return out, inflateError(err)
	}
	return out, nil
}

func inflateError(err error) *Error {
	if errors.Is(err, zlib.ErrDictionary) {
		return newError(OpDecompress, ErrData, fmt.Errorf("dictionary required: %w", err))
	}
	return newError(OpDecompress, ErrData, err)
}
