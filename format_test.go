package dat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeHeader(t *testing.T) {
	t.Parallel()

	got := encodeHeader(Header{Version: Version, TableOffset: 0x0102030405060708})
	want := []byte{
		0xB1, 0x44, 0x41, 0x54,
		0x02,
		0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01,
	}
	assert.Equal(t, want, got)
	assert.Len(t, got, HeaderSize)
}

func TestDecodeHeader(t *testing.T) {
	t.Parallel()

	valid := encodeHeader(Header{Version: Version, TableOffset: 24})

	badMagic := append([]byte(nil), valid...)
	badMagic[0] = 'P'

	badVersion := append([]byte(nil), valid...)
	badVersion[4] = 0x01

	tests := []struct {
		name    string
		input   []byte
		wantErr error
	}{
		{"valid", valid, nil},
		{"bad magic", badMagic, ErrSignatureMismatch},
		{"bad version", badVersion, ErrVersionMismatch},
		{"too short for magic", valid[:3], ErrOpenIO},
		{"magic only", valid[:4], ErrOpenIO},
		{"short header", valid[:12], ErrOpenIO},
		{"short with wrong magic", []byte("PK\x03\x04\x00"), ErrSignatureMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h, err := decodeHeader(tt.input)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, Header{Version: Version, TableOffset: 24}, h)
		})
	}
}
