// Package systemquery implements component F: synthesizing replies for
// system/catalog queries classified by component C without reaching the
// backend, per spec §4.F. The one exception is information_schema.tables,
// which is forwarded to the backend unchanged.
package systemquery

import (
	"strings"

	"github.com/basinlabs/pgwire-gateway/internal/classify"
	"github.com/basinlabs/pgwire-gateway/internal/queryresult"
)

// recognizedColumnTokens is the ordered list of column-name tokens the
// catalog-fallback path scans the original SQL text for, per spec §4.F.
var recognizedColumnTokens = []string{
	"proname", "attname", "typname", "relname", "nspname",
	"datname", "oid", "relkind", "attnum", "atttypid",
}

// Forwarder sends a statement to the backend unchanged, used only for the
// information_schema.tables passthrough case.
type Forwarder func(sql string) (queryresult.Result, error)

// Responder synthesizes §4.F replies. serverVersion and databaseName are the
// configured values substituted into the version()/current_database canned
// replies.
type Responder struct {
	ServerVersion string
	DatabaseName  string
}

// New constructs a Responder for the given configured version string and
// database name.
func New(serverVersion, databaseName string) *Responder {
	return &Responder{ServerVersion: serverVersion, DatabaseName: databaseName}
}

// Respond produces the canned reply for a system-classified SQL string. sql
// is the original (non-normalized) text, needed for the column-token
// fallback and to distinguish which substring matched generically. forward
// is invoked only for the information_schema.tables case.
func (r *Responder) Respond(sql string, kind classify.SystemKind, forward Forwarder) (queryresult.Result, error) {
	switch kind {
	case classify.SystemVersion:
		return singleRow("version", "text", r.ServerVersion), nil
	case classify.SystemCurrentSchema:
		return singleRow("current_schema", "text", "public"), nil
	case classify.SystemCurrentUser:
		return singleRow("current_user", "text", "postgres"), nil
	case classify.SystemCurrentDatabase:
		return singleRow("current_database", "text", r.DatabaseName), nil
	case classify.SystemPgDatabase:
		return r.syntheticDatabaseRow(), nil
	case classify.SystemInformationSchemaTables:
		result, err := forward(sql)
		if err != nil {
			return queryresult.Result{}, nil
		}
		return result, nil
	default:
		return r.genericFallback(sql), nil
	}
}

func singleRow(column, typeName string, value interface{}) queryresult.Result {
	return queryresult.Result{
		Columns: []queryresult.Column{{Name: column, TypeName: typeName}},
		Records: []queryresult.Row{{column: value}},
	}
}

// syntheticDatabaseRow builds the canned pg_database row from spec §4.F.
func (r *Responder) syntheticDatabaseRow() queryresult.Result {
	columns := []queryresult.Column{
		{Name: "did", TypeName: "int4"},
		{Name: "datname", TypeName: "text"},
		{Name: "datallowconn", TypeName: "bool"},
		{Name: "serverencoding", TypeName: "text"},
		{Name: "cancreate", TypeName: "bool"},
		{Name: "datistemplate", TypeName: "bool"},
	}

	row := queryresult.Row{
		"did":            int64(12345),
		"datname":        r.DatabaseName,
		"datallowconn":   true,
		"serverencoding": "UTF8",
		"cancreate":      false,
		"datistemplate":  false,
	}

	return queryresult.Result{Columns: columns, Records: []queryresult.Row{row}}
}

// genericFallback returns an empty record set, inferring column metadata
// from recognized column-name tokens present in the original SQL, or a
// single `result text` column when none are recognized.
func (r *Responder) genericFallback(sql string) queryresult.Result {
	lower := strings.ToLower(sql)

	var columns []queryresult.Column
	for _, token := range recognizedColumnTokens {
		if strings.Contains(lower, token) {
			columns = append(columns, queryresult.Column{Name: token, TypeName: "text"})
		}
	}

	if len(columns) == 0 {
		columns = []queryresult.Column{{Name: "result", TypeName: "text"}}
	}

	return queryresult.Result{Columns: columns, Records: nil}
}
