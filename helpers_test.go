package dat

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meigma/dat/internal/codec"
	"github.com/meigma/dat/internal/table"
	"github.com/meigma/dat/internal/testutil"
)

type testFile struct {
	path     string
	content  string
	compress bool
}

// buildArchive writes files into an in-memory archive and returns it.
func buildArchive(t testing.TB, files []testFile, opts ...WriterOption) *testutil.Buffer {
	t.Helper()
	buf := &testutil.Buffer{}
	w, err := NewWriter(buf, opts...)
	require.NoError(t, err)
	for _, f := range files {
		require.NoError(t, w.AddReader(bytes.NewReader([]byte(f.content)), f.path, f.compress))
	}
	require.NoError(t, w.Finish())
	return buf
}

// rawArchive lays out an archive by hand so tests can corrupt entries
// before the table is written.
type rawArchive struct {
	data    []byte
	entries []table.Entry
}

func newRawArchive() *rawArchive {
	return &rawArchive{data: encodeHeader(Header{Version: Version})}
}

// add appends stored bytes and returns an entry describing them.
func (a *rawArchive) add(path string, stored []byte, size uint64, compressed bool) *table.Entry {
	start := uint64(len(a.data))
	a.data = append(a.data, stored...)
	a.entries = append(a.entries, table.Entry{
		Path:  path,
		Flags: table.Flags{Compressed: compressed},
		CRC:   codec.Checksum(stored),
		Size:  size,
		Start: start,
		End:   start + uint64(len(stored)) - 1,
	})
	return &a.entries[len(a.entries)-1]
}

// bytes appends the table and patches the header.
func (a *rawArchive) bytes() []byte {
	out := bytes.Clone(a.data)
	off := uint64(len(out))
	for _, e := range a.entries {
		out = table.AppendRecord(out, e)
	}
	copy(out[:HeaderSize], encodeHeader(Header{Version: Version, TableOffset: off}))
	return out
}
