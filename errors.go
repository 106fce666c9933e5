package dat

import (
	"errors"
	"fmt"

	"github.com/meigma/dat/internal/codec"
)

// Open error kinds.
var (
	// ErrSignatureMismatch is returned when the first four bytes are not Magic.
	ErrSignatureMismatch = errors.New("dat: signature mismatch")

	// ErrVersionMismatch is returned for a format version other than Version.
	ErrVersionMismatch = errors.New("dat: unsupported version")

	// ErrOpenIO is returned when the archive cannot be read, is shorter than
	// its header, or its table is unreadable.
	ErrOpenIO = errors.New("dat: cannot read archive")
)

// Lookup and read errors.
var (
	// ErrNotFound is returned for a path that is not in the table.
	ErrNotFound = errors.New("dat: file not found")

	// ErrCorruptEntry is returned when an entry's byte range lies outside
	// the data region or its sizes contradict its flags.
	ErrCorruptEntry = errors.New("dat: corrupt entry")

	// ErrFileTooLarge is returned when an entry's stored bytes exceed the
	// reader's size limit.
	ErrFileTooLarge = errors.New("dat: file exceeds size limit")

	// ErrIntegrity is returned by reads under IntegrityStrict when the
	// stored bytes do not match the recorded CRC32.
	ErrIntegrity = errors.New("dat: checksum mismatch")

	// ErrUnsafePath is returned by Extract for archive paths that would
	// land outside the destination directory.
	ErrUnsafePath = errors.New("dat: unsafe path")
)

// Write error kinds.
var (
	// ErrPathExists is returned by Create when the target exists and
	// overwrite is false.
	ErrPathExists = errors.New("dat: archive already exists")

	// ErrSourceUnreadable is returned when a file to be added cannot be
	// opened or read.
	ErrSourceUnreadable = errors.New("dat: source unreadable")

	// ErrCompressionFailed is returned when compressing a file fails.
	ErrCompressionFailed = errors.New("dat: compression failed")

	// ErrWriteIO is returned when the archive sink cannot be written,
	// seeked, synced or closed.
	ErrWriteIO = errors.New("dat: write failed")

	// ErrInvalidPath is returned for a destination path that is empty or
	// longer than MaxPathLen bytes.
	ErrInvalidPath = errors.New("dat: invalid path")

	// ErrInvalidFileType is returned for a file type above MaxFileType.
	ErrInvalidFileType = errors.New("dat: invalid file type")

	// ErrWriterFailed is returned by every call on a writer after a write
	// left the archive in an unknown state.
	ErrWriterFailed = errors.New("dat: writer failed")

	// ErrWriterFinished is returned by calls on a writer after Finish.
	ErrWriterFinished = errors.New("dat: writer finished")
)

// Codec error kinds, re-exported so callers can match them with errors.Is.
var (
	ErrEmptyInput = codec.ErrEmptyInput
	ErrData       = codec.ErrData
	ErrMem        = codec.ErrMem
	ErrShortWrite = codec.ErrShortWrite
)

// CodecError describes a failed compression, copy or decompression.
type CodecError = codec.Error

// OpenError is returned by Open and OpenSource.
type OpenError struct {
	// Path is the archive path, empty for OpenSource.
	Path string

	// Kind is ErrSignatureMismatch, ErrVersionMismatch or ErrOpenIO.
	Kind error

	Err error
}

func (e *OpenError) Error() string {
	name := e.Path
	if name == "" {
		name = "source"
	}
	if e.Err == nil {
		return fmt.Sprintf("open %s: %v", name, e.Kind)
	}
	return fmt.Sprintf("open %s: %v", name, e.Err)
}

func (e *OpenError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// LookupError is returned for paths that are not in the archive.
type LookupError struct {
	Path string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("lookup %s: %v", e.Path, ErrNotFound)
}

func (e *LookupError) Unwrap() error { return ErrNotFound }

// WriteError is returned by Writer methods.
type WriteError struct {
	// Op is the failed operation: "create", "add", "finish" or "abort".
	Op string

	// Path is the archive path for create, finish and abort, and the
	// destination path inside the archive for add.
	Path string

	Kind error
	Err  error
}

func (e *WriteError) Error() string {
	switch {
	case e.Err == nil:
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Kind)
	case errors.Is(e.Err, e.Kind):
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	default:
		return fmt.Sprintf("%s %s: %v: %v", e.Op, e.Path, e.Kind, e.Err)
	}
}

func (e *WriteError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// IntegrityWarning reports stored bytes whose CRC32 does not match the
// table. It is a report, not an error: under the default policy the data
// is still returned.
type IntegrityWarning struct {
	Path     string
	Expected uint32
	Actual   uint32
}

func (w IntegrityWarning) String() string {
	return fmt.Sprintf("%s: crc32 %08x, table records %08x", w.Path, w.Actual, w.Expected)
}
