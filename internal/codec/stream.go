package codec

import (
	"io"

	"github.com/klauspost/compress/zlib"
)

// CompressStreamed reads src in ChunkSize pieces, deflates them with a zlib
// frame at the given level and writes the output to dst.
//
// It returns the number of compressed bytes written and the CRC32 of those
// bytes. The stream is finished exactly once, when src reports io.EOF.
func CompressStreamed(src io.Reader, dst io.Writer, level int) (written uint64, crc uint32, err error) {
	out := newSinkWriter(dst)
	zw, err := zlib.NewWriterLevel(out, level)
	if err != nil {
		return 0, 0, newError(OpCompress, ErrCompressor, err)
	}

	buf := make([]byte, ChunkSize)
	for {
		nr, er := src.Read(buf)
		if nr > 0 {
			if _, ew := zw.Write(buf[:nr]); ew != nil {
				return out.n, out.sum(), out.classify(OpCompress, ew)
			}
		}
		if er == io.EOF {
			break
		}
		if er != nil {
			return out.n, out.sum(), newError(OpCompress, ErrSourceRead, er)
		}
	}

	if err := zw.Close(); err != nil {
		return out.n, out.sum(), out.classify(OpCompress, err)
	}
	return out.n, out.sum(), nil
}

// CopyStreamed copies src to dst in ChunkSize pieces without transforming
// them, returning the byte count and the CRC32 of the copied bytes.
func CopyStreamed(src io.Reader, dst io.Writer) (written uint64, crc uint32, err error) {
	out := newSinkWriter(dst)
	buf := make([]byte, ChunkSize)
	for {
		nr, er := src.Read(buf)
		if nr > 0 {
			if _, ew := out.Write(buf[:nr]); ew != nil {
				return out.n, out.sum(), newError(OpCopy, ErrShortWrite, ew)
			}
		}
		if er == io.EOF {
			return out.n, out.sum(), nil
		}
		if er != nil {
			return out.n, out.sum(), newError(OpCopy, ErrSourceRead, er)
		}
	}
}

// classify attributes a compressor write error to the destination when the
// destination already failed, and to the compressor otherwise.
func (s *sinkWriter) classify(op string, err error) *Error {
	if s.fail != nil {
		return newError(op, ErrShortWrite, s.fail)
	}
	return newError(op, ErrCompressor, err)
}
