package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderIsLittleEndian(t *testing.T) {
	t.Parallel()

	b := AppendUint64(nil, 0x0102030405060708)
	assert.Equal(t, []byte{0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01}, b)
	assert.Equal(t, uint64(0x0102030405060708), Uint64(b))

	b = AppendUint32(nil, 0xCBF43926)
	assert.Equal(t, []byte{0x26, 0x39, 0xF4, 0xCB}, b)
	assert.Equal(t, uint32(0xCBF43926), Uint32(b))
}

func TestPutUint64(t *testing.T) {
	t.Parallel()

	b := make([]byte, 10)
	PutUint64(b[1:], 13)
	assert.Equal(t, []byte{0, 13, 0, 0, 0, 0, 0, 0, 0, 0}, b)
}
