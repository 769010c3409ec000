package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basinlabs/pgwire-gateway/internal/pgerrors"
	"github.com/basinlabs/pgwire-gateway/internal/wiretypes"
)

func TestReadyForQueryIsIdempotent(t *testing.T) {
	b := NewBuilder()
	first, err := b.ReadyForQuery(wiretypes.TxIdle)
	require.NoError(t, err)

	second, err := b.ReadyForQuery(wiretypes.TxIdle)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestDataRowEncodesNullAsMinusOneLength(t *testing.T) {
	b := NewBuilder()
	out, err := b.DataRow([]string{"", "hello"}, []bool{true, false})
	require.NoError(t, err)

	assert.Equal(t, byte(wiretypes.ServerDataRow), out[0])
	// after the 5-byte header and 2-byte column count, the first value's
	// 4-byte length field must be the -1 sentinel.
	assert.Equal(t, []byte{0xff, 0xff, 0xff, 0xff}, out[7:11])
}

func TestRowDescriptionFieldLayout(t *testing.T) {
	b := NewBuilder()
	out, err := b.RowDescription([]Column{{Name: "id", TypeOID: 23, TypeSize: 4}})
	require.NoError(t, err)
	assert.Equal(t, byte(wiretypes.ServerRowDescription), out[0])
}

func TestErrorResponseFieldTags(t *testing.T) {
	b := NewBuilder()
	out, err := b.ErrorResponse(pgerrors.Error{
		Code:     "42601",
		Message:  "syntax error",
		Severity: pgerrors.LevelError,
		Hint:     "check your SQL",
	})
	require.NoError(t, err)

	s := string(out)
	assert.Contains(t, s, "syntax error")
	assert.Contains(t, s, "42601")
	assert.Contains(t, s, "check your SQL")
}

func TestErrorResponseDefaultsSeverityAndCode(t *testing.T) {
	b := NewBuilder()
	out, err := b.ErrorResponse(pgerrors.Error{Message: "boom"})
	require.NoError(t, err)

	s := string(out)
	assert.Contains(t, s, "ERROR")
	assert.Contains(t, s, "XX000")
}

func TestFormatRowValuesHandlesNullAndTyped(t *testing.T) {
	row := map[string]interface{}{"a": nil, "b": true}
	columns := []Column{{Name: "a"}, {Name: "b"}}
	values, nulls := FormatRowValues(row, columns, []string{"text", "bool"})

	assert.True(t, nulls[0])
	assert.False(t, nulls[1])
	assert.Equal(t, "t", values[1])
}
