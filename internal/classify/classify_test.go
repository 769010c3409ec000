package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyEmpty(t *testing.T) {
	assert.Equal(t, Result{Kind: Empty}, Classify("   "))
	assert.Equal(t, Result{Kind: Empty}, Classify(";"))
}

func TestClassifyTransaction(t *testing.T) {
	assert.Equal(t, TxBegin, Classify("begin").TxKind)
	assert.Equal(t, TxBegin, Classify("START TRANSACTION").TxKind)
	assert.Equal(t, TxCommit, Classify("commit work").TxKind)
	assert.Equal(t, TxRollback, Classify("ROLLBACK").TxKind)
}

func TestClassifySet(t *testing.T) {
	r := Classify("SET timezone = 'UTC'")
	assert.Equal(t, Set, r.Kind)
	assert.Equal(t, "timezone", r.Name)
	assert.Equal(t, "UTC", r.Value)
}

func TestClassifySetDoubleQuoted(t *testing.T) {
	r := Classify(`SET application_name = "myapp"`)
	assert.Equal(t, "myapp", r.Value)
}

func TestClassifyShow(t *testing.T) {
	r := Classify("SHOW timezone")
	assert.Equal(t, Show, r.Kind)
	assert.Equal(t, "timezone", r.Name)
}

func TestClassifySystem(t *testing.T) {
	assert.Equal(t, SystemVersion, Classify("SELECT version()").SystemKind)
	assert.Equal(t, SystemCurrentSchema, Classify("select current_schema").SystemKind)
	assert.Equal(t, SystemPgDatabase, Classify("select * from pg_database").SystemKind)
	assert.Equal(t, SystemInformationSchemaTables, Classify("select * from information_schema.tables").SystemKind)
}

func TestClassifySystemGenericOnAmbiguousMatch(t *testing.T) {
	r := Classify("select * from pg_class, pg_namespace")
	assert.Equal(t, System, r.Kind)
	assert.Equal(t, SystemGeneric, r.SystemKind)
}

func TestClassifyForward(t *testing.T) {
	assert.Equal(t, Forward, Classify("SELECT * FROM users WHERE id = 1").Kind)
}

func TestClassifyIsIdempotent(t *testing.T) {
	sql := "  SET TimeZone = 'UTC';  "
	first := Classify(sql)
	second := Classify(Normalize(sql))
	assert.Equal(t, first, second)
}
