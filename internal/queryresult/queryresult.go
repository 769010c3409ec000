// Package queryresult defines the normalized result shape shared between
// the backend client (E), the system-query responder (F), and the message
// builder (B), per spec §3's column-descriptor and row data model.
package queryresult

// Column is the intermediate representation spec §3 calls a "column
// descriptor": a record {name, data-type-name, nullable?}.
type Column struct {
	Name     string
	TypeName string
	Nullable bool
}

// Row is an ordered mapping from column name to scalar value. Values are one
// of nil, string, int64, float64, bool, []byte, or (for JSON/JSONB columns)
// the parsed JSON value (map[string]interface{}, []interface{}, or a JSON
// scalar), per spec §3's row definition and §4.E's JSON-parsing requirement.
type Row map[string]interface{}

// Result is the normalized shape produced by a backend call or synthesized
// by the system-query responder, and consumed by the message builder's
// query-response composition (§4.B).
type Result struct {
	Columns []Column
	Records []Row
	// UpdatedCount is nil when the statement returned rows rather than
	// reporting an affected-row count (e.g. a SELECT).
	UpdatedCount *int64
	// CommandTag overrides the inferred CommandComplete tag when set.
	CommandTag string
}

// Empty reports whether the result carries neither records nor an
// updated-row count, the EmptyQueryResponse case of spec §4.B.
func (r Result) Empty() bool {
	return len(r.Records) == 0 && r.UpdatedCount == nil
}
