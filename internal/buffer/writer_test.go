package buffer

import (
	"testing"

	"github.com/basinlabs/pgwire-gateway/internal/wiretypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterEndProducesCorrectLength(t *testing.T) {
	writer := NewWriter()
	writer.Start(wiretypes.ServerParseComplete)
	out, err := writer.End()
	require.NoError(t, err)

	// type byte + 4 length bytes, length covers only itself here.
	assert.Equal(t, []byte{byte(wiretypes.ServerParseComplete), 0, 0, 0, 4}, out)
}

func TestWriterAddCString(t *testing.T) {
	writer := NewWriter()
	writer.Start(wiretypes.ServerParameterStatus)
	writer.AddCString("client_encoding")
	writer.AddCString("UTF8")
	out, err := writer.End()
	require.NoError(t, err)

	assert.Equal(t, byte(wiretypes.ServerParameterStatus), out[0])

	length := uint32(out[1])<<24 | uint32(out[2])<<16 | uint32(out[3])<<8 | uint32(out[4])
	assert.Equal(t, uint32(len(out)-1), length)
}

func TestWriterIdempotentSerialization(t *testing.T) {
	build := func() []byte {
		writer := NewWriter()
		writer.Start(wiretypes.ServerReady)
		writer.AddByte('I')
		out, err := writer.End()
		require.NoError(t, err)
		return out
	}

	assert.Equal(t, build(), build())
}

func TestWriterAddNull(t *testing.T) {
	writer := NewWriter()
	writer.Start(wiretypes.ServerDataRow)
	writer.AddInt16(1)
	writer.AddNull()
	out, err := writer.End()
	require.NoError(t, err)

	// last four bytes of the frame are the -1 length sentinel.
	assert.Equal(t, []byte{0xff, 0xff, 0xff, 0xff}, out[len(out)-4:])
}
