package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderGetString(t *testing.T) {
	reader := NewReader([]byte("hello\x00world"))

	value, err := reader.GetString()
	require.NoError(t, err)
	assert.Equal(t, "hello", value)
	assert.Equal(t, []byte("world"), reader.Peek())
}

func TestReaderGetStringMissingTerminator(t *testing.T) {
	reader := NewReader([]byte("hello"))

	_, err := reader.GetString()
	assert.ErrorIs(t, err, ErrMissingNulTerminator)
}

func TestReaderGetBytesInsufficientData(t *testing.T) {
	reader := NewReader([]byte{0x01, 0x02})

	_, err := reader.GetBytes(3)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestReaderGetUint32(t *testing.T) {
	reader := NewReader([]byte{0x00, 0x00, 0x00, 0x2a, 0xff})

	value, err := reader.GetUint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(42), value)
	assert.Equal(t, 1, reader.Len())
}

func TestReaderGetInt32Negative(t *testing.T) {
	reader := NewReader([]byte{0xff, 0xff, 0xff, 0xff})

	value, err := reader.GetInt32()
	require.NoError(t, err)
	assert.Equal(t, int32(-1), value)
}
