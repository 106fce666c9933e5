package dat

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/meigma/dat/internal/codec"
	"github.com/meigma/dat/internal/iocount"
	"github.com/meigma/dat/internal/sizing"
	"github.com/meigma/dat/internal/table"
	"github.com/meigma/dat/internal/wire"
)

// Writer operations reported in WriteError.Op.
const (
	OpCreate = "create"
	OpAdd    = "add"
	OpFinish = "finish"
	OpAbort  = "abort"
)

type writerState uint8

const (
	stateWriting writerState = iota
	stateFinished
	stateFailed
)

// Writer builds an archive in a single pass.
//
// Files are appended to the data region as they are added and the table is
// kept in memory until Finish writes it after the last file. A Writer is
// not safe for concurrent use.
//
// Once a write fails part way the archive is in an unknown state: the
// Writer refuses further work with ErrWriterFailed, and Abort releases
// and removes a file opened by Create.
type Writer struct {
	path     string
	file     *os.File // nil unless opened by Create
	dst      io.WriteSeeker
	buf      *bufio.Writer
	out      *iocount.Writer // position in dst, counting buffered bytes
	tbl      *table.Table
	state    writerState
	level    int
	progress ProgressFunc
	logger   *slog.Logger
}

// log returns the logger, falling back to a discard logger if nil.
func (w *Writer) log() *slog.Logger {
	if w.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return w.logger
}

// Create creates the archive file at path and writes its header.
//
// Parent directories are created as needed. If the file exists Create fails
// with ErrPathExists unless overwrite is true, in which case the file is
// truncated. Options are validated before the file is touched.
func Create(path string, overwrite bool, opts ...WriterOption) (*Writer, error) {
	w, err := configureWriter(path, opts)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, &WriteError{Op: OpCreate, Path: path, Kind: ErrWriteIO, Err: err}
	}

	flag := os.O_RDWR | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flag |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flag, 0o644) //nolint:gosec // User-provided path is intentional
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, &WriteError{Op: OpCreate, Path: path, Kind: ErrPathExists, Err: err}
		}
		return nil, &WriteError{Op: OpCreate, Path: path, Kind: ErrWriteIO, Err: err}
	}

	if err := w.start(f); err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}
	w.file = f
	return w, nil
}

// NewWriter writes an archive to dst, which the caller keeps owning.
//
// The header is written at offset 0 of dst and every recorded offset is an
// absolute position in dst. Finish leaves dst positioned at the end of the
// archive and does not close it.
func NewWriter(dst io.WriteSeeker, opts ...WriterOption) (*Writer, error) {
	w, err := configureWriter("", opts)
	if err != nil {
		return nil, err
	}
	if err := w.start(dst); err != nil {
		return nil, err
	}
	return w, nil
}

// configureWriter applies and validates opts without touching any sink.
func configureWriter(path string, opts []WriterOption) (*Writer, error) {
	w := &Writer{
		path:  path,
		tbl:   table.New(),
		level: DefaultCompression,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.level < HuffmanOnly || w.level > BestCompression {
		return nil, &WriteError{
			Op:   OpCreate,
			Path: path,
			Kind: ErrCompressionFailed,
			Err:  fmt.Errorf("invalid compression level %d", w.level),
		}
	}
	return w, nil
}

// start writes the header to dst and prepares the data region after it.
func (w *Writer) start(dst io.WriteSeeker) error {
	if _, err := dst.Seek(0, io.SeekStart); err != nil {
		return &WriteError{Op: OpCreate, Path: w.path, Kind: ErrWriteIO, Err: err}
	}
	// The table offset stays zero until Finish, which marks an unfinished
	// archive as unreadable.
	if _, err := dst.Write(encodeHeader(Header{Version: Version})); err != nil {
		return &WriteError{Op: OpCreate, Path: w.path, Kind: ErrWriteIO, Err: err}
	}

	w.dst = dst
	w.buf = bufio.NewWriterSize(dst, 4*codec.ChunkSize)
	w.out = &iocount.Writer{W: w.buf, N: HeaderSize}
	w.log().Info("creating archive", "path", w.path, "level", w.level)
	return nil
}

// check returns the error for calling op in the writer's current state.
func (w *Writer) check(op, path string) error {
	switch w.state {
	case stateFinished:
		return &WriteError{Op: op, Path: path, Kind: ErrWriterFinished}
	case stateFailed:
		return &WriteError{Op: op, Path: path, Kind: ErrWriterFailed}
	}
	return nil
}

// AddFile appends the contents of the file at sourcePath under destPath.
//
// destPath must be 1 to MaxPathLen bytes. It is stored verbatim: the archive
// attaches no meaning to separators. When compress is true the file is
// stored as a zlib stream. Adding a path that is already present replaces
// its entry.
//
// destPath and the file options are checked, and sourcePath opened, before
// anything is written, so those failures leave the Writer usable.
func (w *Writer) AddFile(sourcePath, destPath string, compress bool, opts ...FileOption) error {
	cfg, err := w.prepare(destPath, opts)
	if err != nil {
		return err
	}

	f, err := os.Open(sourcePath) //nolint:gosec // User-provided path is intentional
	if err != nil {
		return &WriteError{Op: OpAdd, Path: destPath, Kind: ErrSourceUnreadable, Err: err}
	}
	defer f.Close()

	if info, err := f.Stat(); err != nil {
		return &WriteError{Op: OpAdd, Path: destPath, Kind: ErrSourceUnreadable, Err: err}
	} else if info.IsDir() {
		return &WriteError{Op: OpAdd, Path: destPath, Kind: ErrSourceUnreadable, Err: fmt.Errorf("%s is a directory", sourcePath)}
	}

	return w.add(f, destPath, compress, cfg)
}

// AddReader appends everything r yields under destPath. It behaves like
// AddFile; the declared size is the number of bytes read from r.
func (w *Writer) AddReader(r io.Reader, destPath string, compress bool, opts ...FileOption) error {
	cfg, err := w.prepare(destPath, opts)
	if err != nil {
		return err
	}
	return w.add(r, destPath, compress, cfg)
}

func (w *Writer) prepare(destPath string, opts []FileOption) (fileConfig, error) {
	var cfg fileConfig
	if err := w.check(OpAdd, destPath); err != nil {
		return cfg, err
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := table.ValidatePath(destPath); err != nil {
		return cfg, &WriteError{Op: OpAdd, Path: destPath, Kind: ErrInvalidPath, Err: err}
	}
	if err := table.ValidateFileType(cfg.fileType); err != nil {
		return cfg, &WriteError{Op: OpAdd, Path: destPath, Kind: ErrInvalidFileType, Err: err}
	}
	return cfg, nil
}

// add streams src into the data region and records the entry.
func (w *Writer) add(src io.Reader, destPath string, compress bool, cfg fileConfig) error {
	start := w.out.N
	in := &iocount.Reader{R: src}

	var (
		written uint64
		crc     uint32
		err     error
	)
	if compress {
		written, crc, err = codec.CompressStreamed(in, w.out, w.level)
	} else {
		written, crc, err = codec.CopyStreamed(in, w.out)
	}
	if err != nil {
		w.state = stateFailed
		w.log().Error("add failed", "path", destPath, "error", err)
		return &WriteError{Op: OpAdd, Path: destPath, Kind: addErrorKind(err), Err: err}
	}

	e := Entry{
		Path:     destPath,
		FileType: cfg.fileType,
		Flags:    Flags{Compressed: compress, Encrypted: cfg.encrypted},
		CRC:      crc,
		Size:     in.N,
		Start:    start,
		End:      sizing.LastByte(start, written),
	}
	if w.tbl.Put(e) {
		w.log().Debug("replaced entry", "path", destPath)
	}
	w.log().Debug("added file",
		"path", destPath,
		"size", e.Size,
		"stored", written,
		"compressed", compress,
		"crc", fmt.Sprintf("%08x", crc))

	if w.progress != nil {
		w.progress(ProgressEvent{
			Stage:     StageAdding,
			Path:      destPath,
			BytesDone: w.out.N - HeaderSize,
			FilesDone: w.tbl.Len(),
		})
	}
	return nil
}

// addErrorKind maps a codec failure to the write error taxonomy.
func addErrorKind(err error) error {
	switch {
	case errors.Is(err, codec.ErrSourceRead):
		return ErrSourceUnreadable
	case errors.Is(err, codec.ErrCompressor):
		return ErrCompressionFailed
	default:
		return ErrWriteIO
	}
}

// Len returns the number of entries added so far.
func (w *Writer) Len() int {
	return w.tbl.Len()
}

// Finish writes the table, patches its offset into the header and, for a
// Writer made by Create, syncs and closes the file.
func (w *Writer) Finish() error {
	if err := w.check(OpFinish, w.path); err != nil {
		return err
	}

	tableOffset := w.out.N
	if err := w.finish(tableOffset); err != nil {
		w.state = stateFailed
		w.log().Error("finish failed", "path", w.path, "error", err)
		return &WriteError{Op: OpFinish, Path: w.path, Kind: ErrWriteIO, Err: err}
	}
	w.state = stateFinished

	w.log().Info("finished archive",
		"path", w.path,
		"entries", w.tbl.Len(),
		"table_offset", tableOffset,
		"size", w.out.N)
	if w.progress != nil {
		w.progress(ProgressEvent{
			Stage:      StageFinishing,
			BytesDone:  tableOffset - HeaderSize,
			BytesTotal: tableOffset - HeaderSize,
			FilesDone:  w.tbl.Len(),
			FilesTotal: w.tbl.Len(),
		})
	}
	return nil
}

func (w *Writer) finish(tableOffset uint64) error {
	if err := table.Serialize(w.tbl, w.out); err != nil {
		return fmt.Errorf("write table: %w", err)
	}
	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}

	var field [8]byte
	wire.PutUint64(field[:], tableOffset)
	if _, err := w.dst.Seek(tableOffsetOffset, io.SeekStart); err != nil {
		return fmt.Errorf("seek to header: %w", err)
	}
	if _, err := w.dst.Write(field[:]); err != nil {
		return fmt.Errorf("patch table offset: %w", err)
	}

	if w.file == nil {
		end, err := sizing.ToInt64(w.out.N, iocount.ErrOverflow)
		if err != nil {
			return err
		}
		if _, err := w.dst.Seek(end, io.SeekStart); err != nil {
			return fmt.Errorf("seek to end: %w", err)
		}
		return nil
	}

	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	f := w.file
	w.file = nil
	if err := f.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}

// Abort gives up on the archive. A file opened by Create is closed and
// removed; a caller-owned sink is left as it is. The Writer is unusable
// afterwards. Abort after a successful Finish returns ErrWriterFinished.
func (w *Writer) Abort() error {
	if w.state == stateFinished {
		return &WriteError{Op: OpAbort, Path: w.path, Kind: ErrWriterFinished}
	}
	w.state = stateFailed
	if w.file == nil {
		return nil
	}

	f := w.file
	w.file = nil
	err := errors.Join(f.Close(), os.Remove(w.path))
	if err != nil {
		return &WriteError{Op: OpAbort, Path: w.path, Kind: ErrWriteIO, Err: err}
	}
	w.log().Info("aborted archive", "path", w.path, "entries", w.tbl.Len())
	return nil
}
