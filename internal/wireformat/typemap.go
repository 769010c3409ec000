// Package wireformat implements component A's value-formatting and
// type-mapping responsibilities: converting a backend scalar value and a
// textual SQL type name into the wire text representation and OID metadata
// a PostgreSQL client expects.
package wireformat

import (
	"strings"

	"github.com/lib/pq/oid"
)

// TypeInfo describes how a named SQL type is represented on the wire.
type TypeInfo struct {
	OID oid.Oid
	// Size is the fixed wire width in bytes, or -1 for variable-size types.
	Size int16
}

// typeTable is the fixed type-name -> (oid, size) table from spec §4.A. It
// is declared as package-level immutable data, not a mutable singleton, per
// the re-architecture guidance in spec §9.
var typeTable = map[string]TypeInfo{
	"varchar":     {oid.T_varchar, -1},
	"text":        {oid.T_text, -1},
	"bpchar":      {oid.T_bpchar, -1},
	"name":        {oid.T_name, 64},
	"int4":        {oid.T_int4, 4},
	"int8":        {oid.T_int8, 8},
	"int2":        {oid.T_int2, 2},
	"bool":        {oid.T_bool, 1},
	"float4":      {oid.T_float4, 4},
	"float8":      {oid.T_float8, 8},
	"numeric":     {oid.T_numeric, -1},
	"date":        {oid.T_date, 4},
	"timestamp":   {oid.T_timestamp, 8},
	"timestamptz": {oid.T_timestamptz, 8},
	"time":        {oid.T_time, 8},
	"timetz":      {oid.T_timetz, 12},
	"json":        {oid.T_json, -1},
	"jsonb":       {oid.T_jsonb, -1},
	"uuid":        {oid.T_uuid, 16},
	"bytea":       {oid.T_bytea, -1},
	"oid":         {oid.T_oid, 4},
}

// defaultType is used for any type name not present in typeTable.
var defaultType = TypeInfo{oid.T_text, -1}

// Lookup resolves a textual SQL type name (case-insensitive) to its wire OID
// and fixed size. Unknown type names resolve to text.
func Lookup(typeName string) TypeInfo {
	info, ok := typeTable[strings.ToLower(typeName)]
	if !ok {
		return defaultType
	}

	return info
}
