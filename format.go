package dat

import (
	"bytes"
	"fmt"

	"github.com/meigma/dat/internal/wire"
)

// Magic identifies an archive. It occupies the first four bytes.
var Magic = [4]byte{0xB1, 0x44, 0x41, 0x54}

// Version is the only format generation this package reads or writes.
const Version byte = 0x02

// Header layout.
const (
	versionOffset     = 4
	tableOffsetOffset = 5

	// HeaderSize is the size of the fixed header and the offset of the
	// first stored byte.
	HeaderSize = 13
)

// Header is the decoded fixed header.
type Header struct {
	Version     byte
	TableOffset uint64
}

func encodeHeader(h Header) []byte {
	b := make([]byte, 0, HeaderSize)
	b = append(b, Magic[:]...)
	b = append(b, h.Version)
	return wire.AppendUint64(b, h.TableOffset)
}

// decodeHeader checks the magic and version of b and returns the header.
// The returned error is one of the OpenError kinds.
func decodeHeader(b []byte) (Header, error) {
	if len(b) < len(Magic) {
		return Header{}, fmt.Errorf("%w: archive is %d bytes", ErrOpenIO, len(b))
	}
	if !bytes.Equal(b[:versionOffset], Magic[:]) {
		return Header{}, fmt.Errorf("%w: got % x", ErrSignatureMismatch, b[:versionOffset])
	}
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("%w: header is %d bytes", ErrOpenIO, len(b))
	}
	h := Header{
		Version:     b[versionOffset],
		TableOffset: wire.Uint64(b[tableOffsetOffset:HeaderSize]),
	}
	if h.Version != Version {
		return h, fmt.Errorf("%w: got %#02x, want %#02x", ErrVersionMismatch, h.Version, Version)
	}
	return h, nil
}
