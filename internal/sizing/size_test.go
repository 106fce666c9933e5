package sizing

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTest = errors.New("overflow")

func TestSpan(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		start, end uint64
		want       uint64
		ok         bool
	}{
		{"single byte", 13, 13, 1, true},
		{"eleven bytes", 13, 23, 11, true},
		{"empty range", 13, 12, 0, true},
		{"inverted range", 13, 11, 0, false},
		{"end at max", 0, math.MaxUint64, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := Span(tt.start, tt.end)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLastByte(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint64(23), LastByte(13, 11))
	assert.Equal(t, uint64(12), LastByte(13, 0))

	n, ok := Span(13, LastByte(13, 0))
	require.True(t, ok)
	assert.Zero(t, n)
}

func TestConversions(t *testing.T) {
	t.Parallel()

	_, err := ToInt64(math.MaxUint64, errTest)
	require.ErrorIs(t, err, errTest)

	v, err := ToInt(42, errTest)
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	_, ok := AddUint64(math.MaxUint64, 1)
	assert.False(t, ok)
}
