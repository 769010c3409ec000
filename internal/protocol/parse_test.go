package protocol

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStartupParameters(t *testing.T) {
	startup := buildStartup(map[string]string{"user": "alice", "database": "db"})
	frame, _, ok, err := Extract(startup, true)
	require.NoError(t, err)
	require.True(t, ok)

	params, err := ParseStartupParameters(frame.Payload)
	require.NoError(t, err)

	user, ok := params.Get("user")
	assert.True(t, ok)
	assert.Equal(t, "alice", user)
}

func TestParseSimpleQuery(t *testing.T) {
	q, err := ParseSimpleQuery([]byte("SELECT 1\x00"))
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", q.SQL)
}

func TestParseParse(t *testing.T) {
	payload := []byte("s1\x00SELECT 1\x00\x00\x00")
	p, err := ParseParse(payload)
	require.NoError(t, err)
	assert.Equal(t, "s1", p.Statement)
	assert.Equal(t, "SELECT 1", p.SQL)
	assert.Empty(t, p.ParameterOIDs)
}

func buildBindPayload() []byte {
	var buf []byte
	buf = append(buf, []byte("\x00")...)   // portal ""
	buf = append(buf, []byte("s1\x00")...) // statement
	buf = appendInt16(buf, 0)              // param format count
	buf = appendInt16(buf, 1)              // param count
	buf = appendInt32(buf, 5)              // length 5
	buf = append(buf, []byte("hello")...)
	buf = appendInt16(buf, 0) // result format count
	return buf
}

func appendInt16(buf []byte, v int16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, uint16(v))
	return append(buf, b...)
}

func appendInt32(buf []byte, v int32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(v))
	return append(buf, b...)
}

func TestParseBind(t *testing.T) {
	bind, err := ParseBind(buildBindPayload())
	require.NoError(t, err)
	assert.Equal(t, "s1", bind.Statement)
	require.Len(t, bind.Parameters, 1)
	assert.Equal(t, "hello", string(bind.Parameters[0].Value))
	assert.False(t, bind.Parameters[0].Null)
}

func TestParseBindNullParameter(t *testing.T) {
	var buf []byte
	buf = append(buf, 0)      // portal
	buf = append(buf, 0)      // statement
	buf = appendInt16(buf, 0) // format count
	buf = appendInt16(buf, 1) // param count
	buf = appendInt32(buf, -1)
	buf = appendInt16(buf, 0)

	bind, err := ParseBind(buf)
	require.NoError(t, err)
	assert.True(t, bind.Parameters[0].Null)
}

func TestParseExecute(t *testing.T) {
	var buf []byte
	buf = append(buf, []byte("p1\x00")...)
	buf = appendInt32(buf, 0)

	exec, err := ParseExecute(buf)
	require.NoError(t, err)
	assert.Equal(t, "p1", exec.Portal)
	assert.Equal(t, int32(0), exec.RowLimit)
}

func TestParseDescribe(t *testing.T) {
	buf := append([]byte{'S'}, []byte("s1\x00")...)
	d, err := ParseDescribe(buf)
	require.NoError(t, err)
	assert.Equal(t, "s1", d.Name)
}

func TestParsePassword(t *testing.T) {
	p, err := ParsePassword([]byte("secret\x00"))
	require.NoError(t, err)
	assert.Equal(t, "secret", p.Password)
}
