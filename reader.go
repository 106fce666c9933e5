package dat

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/meigma/dat/cache"
	"github.com/meigma/dat/internal/codec"
	"github.com/meigma/dat/internal/sizing"
	"github.com/meigma/dat/internal/table"
)

// Reader provides random access to the files of a finished archive.
//
// The table is parsed completely when the archive is opened and never
// changes afterwards. Stored bytes are read with ReadAt, so a Reader is safe
// for concurrent use.
//
// Query methods accept a nil *Reader and behave as if the archive were
// empty, so the result of a failed Open reports no files.
//
// Reads allocate each file's declared size in full. Use WithMaxFileSize to
// bound that for archives from untrusted sources; by default there is no
// limit.
type Reader struct {
	path        string
	src         ByteSource
	closer      io.Closer
	header      Header
	tbl         *table.Table
	policy      IntegrityPolicy
	onWarning   func(IntegrityWarning)
	maxFileSize uint64
	cache       cache.Cache        // nil = no caching
	readGroup   singleflight.Group // zero value is valid
	logger      *slog.Logger
}

// log returns the logger, falling back to a discard logger if nil.
func (r *Reader) log() *slog.Logger {
	if r.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.logger
}

// Open opens the archive at path.
//
// The header and the whole table are read before Open returns. On failure
// the error is an *OpenError and the returned Reader is nil.
// The Reader must be closed to release the file.
func Open(path string, opts ...Option) (*Reader, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided path is intentional
	if err != nil {
		return nil, &OpenError{Path: path, Kind: ErrOpenIO, Err: err}
	}
	src, err := newFileSource(f)
	if err != nil {
		f.Close()
		return nil, &OpenError{Path: path, Kind: ErrOpenIO, Err: err}
	}
	r, err := open(path, src, opts)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = src
	return r, nil
}

// OpenSource opens an archive held by src. The caller keeps ownership of
// src; Close on the returned Reader does not close it.
func OpenSource(src ByteSource, opts ...Option) (*Reader, error) {
	return open("", src, opts)
}

func open(path string, src ByteSource, opts []Option) (*Reader, error) {
	r := &Reader{
		path:        path,
		src:         src,
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := r.load(); err != nil {
		kind := ErrOpenIO
		for _, k := range []error{ErrSignatureMismatch, ErrVersionMismatch} {
			if errors.Is(err, k) {
				kind = k
			}
		}
		r.log().Debug("open failed", "path", path, "error", err)
		return nil, &OpenError{Path: path, Kind: kind, Err: err}
	}

	r.log().Info("opened archive",
		"path", path,
		"version", r.header.Version,
		"table_offset", r.header.TableOffset,
		"entries", r.tbl.Len())
	return r, nil
}

// load reads the header and parses the table.
func (r *Reader) load() error {
	size := r.src.Size()
	if size < 0 {
		return fmt.Errorf("%w: negative source size", ErrOpenIO)
	}

	buf := make([]byte, HeaderSize)
	n, err := r.src.ReadAt(buf, 0)
	if n < HeaderSize && err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read header: %w", err)
	}
	h, err := decodeHeader(buf[:n])
	if err != nil {
		return err
	}

	switch {
	case h.TableOffset == 0:
		return fmt.Errorf("%w: archive was never finished", ErrOpenIO)
	case h.TableOffset < HeaderSize || h.TableOffset > uint64(size):
		return fmt.Errorf("%w: table offset %d outside archive of %d bytes", ErrOpenIO, h.TableOffset, size)
	}

	off := int64(h.TableOffset)
	tr := bufio.NewReaderSize(io.NewSectionReader(r.src, off, size-off), codec.ChunkSize)
	tbl, err := table.Parse(tr)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOpenIO, err)
	}

	r.header = h
	r.tbl = tbl
	return nil
}

// Close releases the archive file when the Reader was created by Open.
// It is safe to call more than once.
func (r *Reader) Close() error {
	if r == nil || r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	return err
}

// Header returns the decoded archive header.
func (r *Reader) Header() Header {
	if r == nil {
		return Header{}
	}
	return r.header
}

// Size returns the total archive size in bytes.
func (r *Reader) Size() int64 {
	if r == nil {
		return 0
	}
	return r.src.Size()
}

// Contains reports whether path is in the archive.
func (r *Reader) Contains(path string) bool {
	if r == nil {
		return false
	}
	return r.tbl.Has(path)
}

// Len returns the number of files in the archive.
func (r *Reader) Len() int {
	if r == nil {
		return 0
	}
	return r.tbl.Len()
}

// Paths returns every path in the archive. The order carries no meaning.
func (r *Reader) Paths() []string {
	if r == nil {
		return nil
	}
	return r.tbl.Paths()
}

// Entries iterates over every entry in the archive.
func (r *Reader) Entries() iter.Seq[Entry] {
	if r == nil {
		return func(func(Entry) bool) {}
	}
	return r.tbl.All()
}

// Entry returns the table record for path.
func (r *Reader) Entry(path string) (Entry, error) {
	if r == nil {
		return Entry{}, &LookupError{Path: path}
	}
	e, ok := r.tbl.Get(path)
	if !ok {
		return Entry{}, &LookupError{Path: path}
	}
	return e, nil
}

// ReadFile returns the contents of path, inflated if the entry is
// compressed.
//
// The CRC32 of the stored bytes is checked on every uncached read. Under
// IntegrityWarn a mismatch is logged and passed to the integrity handler,
// and the data is returned anyway. For a compressed entry that means a
// buffer of the declared size holding whatever inflated before the stream
// broke. A compressed entry whose CRC32 matches but which fails to inflate
// returns the *CodecError.
//
// The returned slice is owned by the caller.
func (r *Reader) ReadFile(path string) ([]byte, error) {
	e, err := r.Entry(path)
	if err != nil {
		return nil, err
	}
	if r.cache == nil {
		data, _, err := r.readEntry(e)
		return data, err
	}

	key := r.cacheKey(e)
	if data, ok := r.cache.Get(key); ok {
		r.log().Debug("readfile cache hit", "path", path)
		return bytes.Clone(data), nil
	}

	r.log().Debug("readfile cache miss", "path", path)
	result, err, _ := r.readGroup.Do(key, func() (any, error) {
		if data, ok := r.cache.Get(key); ok {
			return data, nil
		}
		data, intact, err := r.readEntry(e)
		if err != nil {
			return nil, err
		}
		if intact {
			r.cache.Put(key, data)
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return bytes.Clone(result.([]byte)), nil //nolint:errcheck // type assertion always succeeds when err is nil
}

// cacheKey identifies an entry's content within a cache that may be shared
// by many archives. Replaced entries of the same path differ in offset; the
// archive's size and table offset separate archives.
func (r *Reader) cacheKey(e Entry) string {
	return strings.Join([]string{
		e.Path,
		strconv.FormatUint(uint64(e.CRC), 16),
		strconv.FormatUint(e.Size, 10),
		strconv.FormatUint(uint64(table.TypeAndFlags(e)), 16),
		strconv.FormatUint(e.Start, 10),
		strconv.FormatUint(e.End, 10),
		strconv.FormatUint(r.header.TableOffset, 10),
		strconv.FormatInt(r.Size(), 10),
	}, "\x00")
}

// readEntry reads, checks and, when needed, inflates e. intact is false
// when the CRC32 did not match.
func (r *Reader) readEntry(e Entry) (data []byte, intact bool, err error) {
	stored, err := r.readStored(e)
	if err != nil {
		return nil, false, err
	}
	intact, err = r.checkIntegrity(e, stored)
	if err != nil {
		return nil, false, err
	}

	if !e.Flags.Compressed {
		r.log().Debug("read file", "path", e.Path, "size", e.Size)
		return stored, intact, nil
	}
	data, err = codec.DecompressWhole(stored, e.Size, r.maxFileSize)
	if err != nil {
		// Damage already reported by checkIntegrity: hand back what inflated.
		if intact || data == nil {
			return nil, false, fmt.Errorf("read %s: %w", e.Path, err)
		}
		r.log().Warn("returning damaged file", "path", e.Path, "size", e.Size, "error", err)
		return data, false, nil
	}
	r.log().Debug("read file", "path", e.Path, "size", e.Size, "stored", len(stored))
	return data, intact, nil
}

// readStored validates e against the archive layout and returns a new
// buffer with its stored bytes.
func (r *Reader) readStored(e Entry) ([]byte, error) {
	n, err := e.StoredSize()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptEntry, err)
	}
	if !e.Flags.Compressed && n != e.Size {
		return nil, fmt.Errorf("%w: %s: stored %d bytes, declared %d", ErrCorruptEntry, e.Path, n, e.Size)
	}
	if n == 0 {
		return []byte{}, nil
	}
	if e.Start < HeaderSize || e.End >= r.header.TableOffset {
		return nil, fmt.Errorf("%w: %s: range [%d, %d] outside data region [%d, %d)",
			ErrCorruptEntry, e.Path, e.Start, e.End, HeaderSize, r.header.TableOffset)
	}
	if r.maxFileSize > 0 && n > r.maxFileSize {
		return nil, fmt.Errorf("%w: %s: %d bytes, limit %d", ErrFileTooLarge, e.Path, n, r.maxFileSize)
	}

	size, err := sizing.ToInt(n, ErrFileTooLarge)
	if err != nil {
		return nil, err
	}
	// Start lies below the table offset, which was checked against an int64 size.
	buf := make([]byte, size)
	got, err := r.src.ReadAt(buf, int64(e.Start))
	if got < size {
		if err == nil || errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("read %s: %d of %d stored bytes: %w", e.Path, got, size, err)
	}
	return buf, nil
}

// checkIntegrity compares the CRC32 of stored with the table and applies
// the integrity policy.
func (r *Reader) checkIntegrity(e Entry, stored []byte) (bool, error) {
	actual := codec.Checksum(stored)
	if actual == e.CRC {
		return true, nil
	}

	w := IntegrityWarning{Path: e.Path, Expected: e.CRC, Actual: actual}
	r.log().Warn("checksum mismatch",
		"path", e.Path,
		"expected", fmt.Sprintf("%08x", e.CRC),
		"actual", fmt.Sprintf("%08x", actual),
		"policy", r.policy.String())
	if r.onWarning != nil {
		r.onWarning(w)
	}
	if r.policy == IntegrityStrict {
		return false, fmt.Errorf("%w: %s", ErrIntegrity, w)
	}
	return false, nil
}

// Verify checks the CRC32 of path's stored bytes without inflating them.
// A mismatch is returned as an error wrapping ErrIntegrity regardless of
// the integrity policy.
func (r *Reader) Verify(path string) error {
	e, err := r.Entry(path)
	if err != nil {
		return err
	}
	w, ok, err := r.verifyEntry(e)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrIntegrity, w)
	}
	return nil
}

// VerifyAll checks the CRC32 of every entry and returns the mismatches in
// table order. It stops at the first entry that cannot be read at all.
func (r *Reader) VerifyAll() ([]IntegrityWarning, error) {
	if r == nil {
		return nil, nil
	}
	var warnings []IntegrityWarning
	for e := range r.Entries() {
		w, ok, err := r.verifyEntry(e)
		if err != nil {
			return warnings, err
		}
		if !ok {
			warnings = append(warnings, w)
		}
	}
	r.log().Info("verified archive", "path", r.path, "entries", r.Len(), "mismatches", len(warnings))
	return warnings, nil
}

func (r *Reader) verifyEntry(e Entry) (IntegrityWarning, bool, error) {
	stored, err := r.readStored(e)
	if err != nil {
		return IntegrityWarning{}, false, err
	}
	actual := codec.Checksum(stored)
	if actual != e.CRC {
		return IntegrityWarning{Path: e.Path, Expected: e.CRC, Actual: actual}, false, nil
	}
	return IntegrityWarning{}, true, nil
}
