package table

import (
	"bytes"
	"errors"
	"hash/crc32"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeAndFlags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		entry Entry
		want  byte
	}{
		{"plain", Entry{}, 0x00},
		{"type only", Entry{FileType: 5}, 0x05},
		{"max type", Entry{FileType: MaxFileType}, 0x3F},
		{"compressed", Entry{FileType: 1, Flags: Flags{Compressed: true}}, 0x81},
		{"encrypted reserved", Entry{Flags: Flags{Encrypted: true}}, 0x40},
		{"both flags", Entry{FileType: 0x3F, Flags: Flags{Compressed: true, Encrypted: true}}, 0xFF},
		{"type masked", Entry{FileType: 0xC2}, 0x02},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := TypeAndFlags(tt.entry)
			assert.Equal(t, tt.want, got)

			ft, flags := SplitTypeAndFlags(got)
			assert.Equal(t, tt.entry.FileType&MaxFileType, ft)
			assert.Equal(t, tt.entry.Flags, flags)
		})
	}
}

func TestValidatePath(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, ValidatePath(""), ErrEmptyPath)
	require.NoError(t, ValidatePath("/a.txt"))
	require.NoError(t, ValidatePath(strings.Repeat("p", MaxPathLen)))
	require.ErrorIs(t, ValidatePath(strings.Repeat("p", MaxPathLen+1)), ErrPathTooLong)
}

func TestValidateFileType(t *testing.T) {
	t.Parallel()

	require.NoError(t, ValidateFileType(0))
	require.NoError(t, ValidateFileType(MaxFileType))
	require.ErrorIs(t, ValidateFileType(MaxFileType+1), ErrFileType)
}

func TestStoredSize(t *testing.T) {
	t.Parallel()

	n, err := Entry{Start: 13, End: 23}.StoredSize()
	require.NoError(t, err)
	assert.Equal(t, uint64(11), n)

	n, err = Entry{Start: 13, End: 12}.StoredSize()
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = Entry{Path: "x", Start: 13, End: 5}.StoredSize()
	require.ErrorIs(t, err, ErrBadRange)
}

func TestPutReplacesInPlace(t *testing.T) {
	t.Parallel()

	tbl := New()
	assert.False(t, tbl.Put(Entry{Path: "a", Size: 1}))
	assert.False(t, tbl.Put(Entry{Path: "b", Size: 2}))
	assert.True(t, tbl.Put(Entry{Path: "a", Size: 3}))

	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, []string{"a", "b"}, tbl.Paths())

	e, ok := tbl.Get("a")
	require.True(t, ok)
	assert.Equal(t, uint64(3), e.Size)
}

func TestNilTable(t *testing.T) {
	t.Parallel()

	var tbl *Table
	assert.Zero(t, tbl.Len())
	assert.False(t, tbl.Has("a"))
	assert.Empty(t, tbl.Paths())
	for range tbl.All() {
		t.Fatal("nil table yielded an entry")
	}
}

func sampleTable() *Table {
	tbl := New()
	tbl.Put(Entry{
		Path:  "/a.txt",
		CRC:   crc32.ChecksumIEEE([]byte("hello world")),
		Size:  11,
		Start: 13,
		End:   23,
	})
	tbl.Put(Entry{
		Path:     "textures/stone.png",
		FileType: 7,
		Flags:    Flags{Compressed: true},
		CRC:      0xDEADBEEF,
		Size:     4096,
		Start:    24,
		End:      1023,
	})
	tbl.Put(Entry{Path: "empty", Start: 1024, End: 1023})
	return tbl
}

func TestSerializeParseRoundTrip(t *testing.T) {
	t.Parallel()

	want := sampleTable()
	var buf bytes.Buffer
	require.NoError(t, Serialize(want, &buf))

	got, err := Parse(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, want.Len(), got.Len())
	for e := range want.All() {
		ge, ok := got.Get(e.Path)
		require.True(t, ok, e.Path)
		assert.Equal(t, e, ge)
	}
}

func TestRecordLayout(t *testing.T) {
	t.Parallel()

	e := Entry{
		Path:     "ab",
		FileType: 2,
		Flags:    Flags{Compressed: true},
		CRC:      0x04030201,
		Size:     5,
		Start:    13,
		End:      17,
	}
	want := []byte{
		2, 'a', 'b',
		0x82,
		0x01, 0x02, 0x03, 0x04,
		5, 0, 0, 0, 0, 0, 0, 0,
		13, 0, 0, 0, 0, 0, 0, 0,
		17, 0, 0, 0, 0, 0, 0, 0,
	}
	assert.Equal(t, want, AppendRecord(nil, e))
}

func TestParseEmpty(t *testing.T) {
	t.Parallel()

	tbl, err := Parse(bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Zero(t, tbl.Len())
}

func TestParseTruncated(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Serialize(sampleTable(), &buf))
	full := buf.Bytes()

	// Every cut that is not on a record boundary must fail.
	boundaries := map[int]bool{0: true, len(full): true}
	off := 0
	for e := range sampleTable().All() {
		off += len(AppendRecord(nil, e))
		boundaries[off] = true
	}
	for cut := 0; cut <= len(full); cut++ {
		_, err := Parse(bytes.NewReader(full[:cut]))
		if boundaries[cut] {
			require.NoError(t, err, "cut at %d", cut)
			continue
		}
		require.ErrorIs(t, err, ErrTruncated, "cut at %d", cut)
	}
}

func TestParseZeroLengthName(t *testing.T) {
	t.Parallel()

	_, err := Parse(bytes.NewReader([]byte{0}))
	require.ErrorIs(t, err, ErrEmptyPath)
}

func TestParseReadError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	_, err := Parse(iotest.ErrReader(boom))
	require.ErrorIs(t, err, boom)
}

func TestParseDuplicateLastWins(t *testing.T) {
	t.Parallel()

	var b []byte
	b = AppendRecord(b, Entry{Path: "dup", Size: 1, Start: 13, End: 13})
	b = AppendRecord(b, Entry{Path: "dup", Size: 2, Start: 14, End: 15})

	tbl, err := Parse(bytes.NewReader(b))
	require.NoError(t, err)
	e, ok := tbl.Get("dup")
	require.True(t, ok)
	assert.Equal(t, uint64(2), e.Size)
	assert.Equal(t, 1, tbl.Len())
}

func TestSerializeRejectsLongPath(t *testing.T) {
	t.Parallel()

	tbl := New()
	tbl.Put(Entry{Path: strings.Repeat("x", MaxPathLen+1)})
	var buf bytes.Buffer
	require.ErrorIs(t, Serialize(tbl, &buf), ErrPathTooLong)
	assert.Zero(t, buf.Len())
}
