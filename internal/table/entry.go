// Package table defines the per-file metadata record and the trailing file
// table that maps logical paths to those records.
package table

import (
	"errors"
	"fmt"

	"github.com/meigma/dat/internal/sizing"
)

// MaxPathLen is the longest path a record can hold; its length is one byte.
const MaxPathLen = 255

// MaxFileType is the largest value that fits the six type bits.
const MaxFileType = 0x3F

const (
	flagEncrypted  = 1 << 6
	flagCompressed = 1 << 7
	typeMask       = MaxFileType
)

var (
	// ErrEmptyPath is returned for a zero-length path.
	ErrEmptyPath = errors.New("table: empty path")

	// ErrPathTooLong is returned for a path longer than MaxPathLen bytes.
	ErrPathTooLong = errors.New("table: path too long")

	// ErrFileType is returned for a file type that does not fit in six bits.
	ErrFileType = errors.New("table: file type out of range")

	// ErrTruncated is returned when the table ends in the middle of a record.
	ErrTruncated = errors.New("table: truncated record")

	// ErrBadRange is returned when an entry's byte range is inverted.
	ErrBadRange = errors.New("table: invalid byte range")
)

// Flags are the per-entry flag bits.
type Flags struct {
	// Compressed marks a payload stored as a zlib stream.
	Compressed bool

	// Encrypted is reserved. It is carried through the format unchanged
	// and has no behavior attached.
	Encrypted bool
}

// Entry is one file's record in the table.
type Entry struct {
	// Path is the logical path the file is stored under.
	Path string

	// FileType is an application-defined tag in the range 0-63.
	FileType uint8

	Flags Flags

	// CRC is the CRC32 of the stored bytes.
	CRC uint32

	// Size is the declared size: the length after decompression for
	// compressed entries, the stored length otherwise.
	Size uint64

	// Start is the absolute offset of the first stored byte.
	Start uint64

	// End is the absolute offset of the last stored byte. An empty
	// payload has End == Start-1.
	End uint64
}

// StoredSize returns End - Start + 1.
func (e Entry) StoredSize() (uint64, error) {
	n, ok := sizing.Span(e.Start, e.End)
	if !ok {
		return 0, fmt.Errorf("%w: %s [%d, %d]", ErrBadRange, e.Path, e.Start, e.End)
	}
	return n, nil
}

// TypeAndFlags packs the file type into bits 0-5, the reserved encrypted
// flag into bit 6 and the compressed flag into bit 7.
func TypeAndFlags(e Entry) byte {
	b := e.FileType & typeMask
	if e.Flags.Encrypted {
		b |= flagEncrypted
	}
	if e.Flags.Compressed {
		b |= flagCompressed
	}
	return b
}

// SplitTypeAndFlags is the inverse of TypeAndFlags.
func SplitTypeAndFlags(b byte) (uint8, Flags) {
	return b & typeMask, Flags{
		Compressed: b&flagCompressed != 0,
		Encrypted:  b&flagEncrypted != 0,
	}
}

// ValidatePath checks that p can be stored in a record.
func ValidatePath(p string) error {
	switch {
	case len(p) == 0:
		return ErrEmptyPath
	case len(p) > MaxPathLen:
		return fmt.Errorf("%w: %d bytes, limit %d", ErrPathTooLong, len(p), MaxPathLen)
	}
	return nil
}

// ValidateFileType checks that t fits in the six type bits.
func ValidateFileType(t uint8) error {
	if t > MaxFileType {
		return fmt.Errorf("%w: %d", ErrFileType, t)
	}
	return nil
}
