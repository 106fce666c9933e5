package table

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/meigma/dat/internal/wire"
)

// recordTail is the fixed part of a record after the name:
// type+flags (1), CRC (4), size (8), start (8), end (8).
const recordTail = 1 + 4 + 8 + 8 + 8

// Parse reads records from r until r is exhausted.
//
// There is no record count: a clean end of input at a record boundary is
// the only way the table ends. Running out of input inside a record is an
// error. When a path appears more than once the last record wins.
func Parse(r io.Reader) (*Table, error) {
	br, ok := r.(io.ByteReader)
	if !ok {
		buffered := bufio.NewReader(r)
		br, r = buffered, buffered
	}

	t := New()
	for i := 0; ; i++ {
		n, err := br.ReadByte()
		if errors.Is(err, io.EOF) {
			return t, nil
		}
		if err != nil {
			return nil, fmt.Errorf("table: record %d: %w", i, err)
		}
		if n == 0 {
			return nil, fmt.Errorf("table: record %d: %w", i, ErrEmptyPath)
		}

		rec := make([]byte, int(n)+recordTail)
		if _, err := io.ReadFull(r, rec); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, fmt.Errorf("%w: record %d", ErrTruncated, i)
			}
			return nil, fmt.Errorf("table: record %d: %w", i, err)
		}
		t.Put(decodeRecord(rec, int(n)))
	}
}

// Serialize writes every entry of t to w in table order.
func Serialize(t *Table, w io.Writer) error {
	var rec []byte
	for e := range t.All() {
		if err := ValidatePath(e.Path); err != nil {
			return err
		}
		rec = AppendRecord(rec[:0], e)
		if _, err := w.Write(rec); err != nil {
			return fmt.Errorf("table: write %s: %w", e.Path, err)
		}
	}
	return nil
}

// AppendRecord appends the on-disk form of e to b. The path must already
// satisfy ValidatePath.
func AppendRecord(b []byte, e Entry) []byte {
	b = append(b, byte(len(e.Path)))
	b = append(b, e.Path...)
	b = append(b, TypeAndFlags(e))
	b = wire.AppendUint32(b, e.CRC)
	b = wire.AppendUint64(b, e.Size)
	b = wire.AppendUint64(b, e.Start)
	b = wire.AppendUint64(b, e.End)
	return b
}

func decodeRecord(rec []byte, nameLen int) Entry {
	e := Entry{Path: string(rec[:nameLen])}
	rest := rec[nameLen:]
	e.FileType, e.Flags = SplitTypeAndFlags(rest[0])
	e.CRC = wire.Uint32(rest[1:5])
	e.Size = wire.Uint64(rest[5:13])
	e.Start = wire.Uint64(rest[13:21])
	e.End = wire.Uint64(rest[21:29])
	return e
}
