package dat

import (
	"log/slog"

	"github.com/meigma/dat/internal/codec"
)

// Compression levels for WithCompressionLevel.
const (
	DefaultCompression = codec.DefaultCompression
	BestSpeed          = codec.BestSpeed
	BestCompression    = codec.BestCompression
	HuffmanOnly        = codec.HuffmanOnly
)

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithWriterLogger sets the logger for archive creation.
// If not set, logging is disabled.
func WithWriterLogger(logger *slog.Logger) WriterOption {
	return func(w *Writer) {
		w.logger = logger
	}
}

// WithCompressionLevel sets the deflate level used for compressed files,
// from HuffmanOnly to BestCompression. The default is DefaultCompression.
func WithCompressionLevel(level int) WriterOption {
	return func(w *Writer) {
		w.level = level
	}
}

// WithProgress sets a callback that receives progress updates.
func WithProgress(fn ProgressFunc) WriterOption {
	return func(w *Writer) {
		w.progress = fn
	}
}

// FileOption configures a single AddFile or AddReader call.
type FileOption func(*fileConfig)

type fileConfig struct {
	fileType  uint8
	encrypted bool
}

// WithFileType tags the entry with an application-defined type in the
// range 0 to MaxFileType.
func WithFileType(t uint8) FileOption {
	return func(c *fileConfig) {
		c.fileType = t
	}
}

// WithEncryptedFlag sets the reserved encrypted bit of the entry. The
// payload is stored as given; nothing is encrypted.
func WithEncryptedFlag(set bool) FileOption {
	return func(c *fileConfig) {
		c.encrypted = set
	}
}
