package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetGetParameterLowerCases(t *testing.T) {
	s := New()
	s.SetParameter("TimeZone", "UTC")

	value, ok := s.GetParameter("timezone")
	assert.True(t, ok)
	assert.Equal(t, "UTC", value)
}

func TestGetParameterMissing(t *testing.T) {
	s := New()
	_, ok := s.GetParameter("nope")
	assert.False(t, ok)
}

func TestPreparedStatementLifecycle(t *testing.T) {
	s := New()
	s.PutPreparedStatement("s1", "SELECT 1")

	stmt, ok := s.GetPreparedStatement("s1")
	assert.True(t, ok)
	assert.Equal(t, "SELECT 1", stmt.SQL)

	s.DeletePreparedStatement("s1")
	_, ok = s.GetPreparedStatement("s1")
	assert.False(t, ok)
}

func TestTransactionFlag(t *testing.T) {
	s := New()
	assert.False(t, s.InTransaction())

	s.MarkTransactionBegin()
	assert.True(t, s.InTransaction())

	s.MarkTransactionEnd()
	assert.False(t, s.InTransaction())
}

func TestSnapshotIsStructuralCopy(t *testing.T) {
	s := New()
	s.SetParameter("client_encoding", "UTF8")
	s.PutPreparedStatement("s1", "SELECT 1")
	s.MarkTransactionBegin()

	snap := s.Snapshot()
	assert.Equal(t, "UTF8", snap.Parameters["client_encoding"])
	assert.Equal(t, "SELECT 1", snap.PreparedStatements["s1"].SQL)
	assert.True(t, snap.InTransaction)

	snap.Parameters["client_encoding"] = "mutated"
	value, _ := s.GetParameter("client_encoding")
	assert.Equal(t, "UTF8", value)
}
