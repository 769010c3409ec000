// Package classify implements component C: recognizing transaction-control,
// session-parameter, and system-catalog statements in an otherwise
// unparsed SQL string, per spec §4.C.
package classify

import (
	"regexp"
	"strings"
)

// Kind enumerates the classification outcomes a SQL string can produce.
type Kind int

const (
	// Empty is the classification of a statement with no content.
	Empty Kind = iota
	// Transaction is BEGIN/COMMIT/ROLLBACK; TxKind distinguishes which.
	Transaction
	// Set is a `SET name = value` statement.
	Set
	// Show is a `SHOW name` statement.
	Show
	// System is a recognized catalog/introspection query.
	System
	// Forward means the statement should be sent to the backend unchanged.
	Forward
)

// TxKind enumerates the transaction-control verbs.
type TxKind int

const (
	TxBegin TxKind = iota
	TxCommit
	TxRollback
)

// SystemKind enumerates the recognizable system-query sub-kinds from §4.F.
// SystemGeneric is used when more than one substring matched, or when the
// matching substring has no dedicated canned reply.
type SystemKind int

const (
	SystemGeneric SystemKind = iota
	SystemVersion
	SystemCurrentSchema
	SystemCurrentUser
	SystemCurrentDatabase
	SystemPgDatabase
	SystemInformationSchemaTables
)

// Result is the outcome of classifying a SQL string.
type Result struct {
	Kind       Kind
	TxKind     TxKind
	Name       string
	Value      string
	SystemKind SystemKind
}

var (
	beginRe      = regexp.MustCompile(`(?i)^(begin|start\s+transaction)$`)
	commitRe     = regexp.MustCompile(`(?i)^commit(\s+work)?$`)
	rollbackRe   = regexp.MustCompile(`(?i)^rollback(\s+work)?$`)
	setRe        = regexp.MustCompile(`(?is)^SET\s+(\w+)\s*=\s*(.+)$`)
	showRe       = regexp.MustCompile(`(?i)^SHOW\s+(\w+)$`)
)

// systemSubstrings maps the exact substrings named in spec §4.C, in the
// table's order, to their dedicated sub-kind (or SystemGeneric when §4.F has
// no canned reply distinct from the generic fallback).
var systemSubstrings = []struct {
	substr string
	kind   SystemKind
}{
	{"pg_catalog.", SystemGeneric},
	{"information_schema.tables", SystemInformationSchemaTables},
	{"information_schema.", SystemGeneric},
	{"pg_class", SystemGeneric},
	{"pg_namespace", SystemGeneric},
	{"pg_attribute", SystemGeneric},
	{"pg_type", SystemGeneric},
	{"pg_index", SystemGeneric},
	{"pg_constraint", SystemGeneric},
	{"pg_proc", SystemGeneric},
	{"pg_stat_activity", SystemGeneric},
	{"pg_tables", SystemGeneric},
	{"pg_database", SystemPgDatabase},
	{"pg_settings", SystemGeneric},
	{"version(", SystemVersion},
	{"current_schema", SystemCurrentSchema},
	{"current_user", SystemCurrentUser},
	{"current_database", SystemCurrentDatabase},
}

// Normalize trims a raw SQL string and strips a single trailing semicolon,
// the normalization spec §4.C assumes before classification runs.
func Normalize(sql string) string {
	s := strings.TrimSpace(sql)
	s = strings.TrimSuffix(s, ";")
	return strings.TrimSpace(s)
}

// Classify applies the eight ordered rules of spec §4.C to a raw SQL string.
// Classify is idempotent: classifying Normalize(sql) twice yields the same
// Result, and classifying an already-normalized string is a no-op.
func Classify(sql string) Result {
	s := Normalize(sql)

	if s == "" {
		return Result{Kind: Empty}
	}

	if beginRe.MatchString(s) {
		return Result{Kind: Transaction, TxKind: TxBegin}
	}

	if commitRe.MatchString(s) {
		return Result{Kind: Transaction, TxKind: TxCommit}
	}

	if rollbackRe.MatchString(s) {
		return Result{Kind: Transaction, TxKind: TxRollback}
	}

	if m := setRe.FindStringSubmatch(s); m != nil {
		return Result{Kind: Set, Name: strings.ToLower(m[1]), Value: stripQuotes(strings.TrimSpace(m[2]))}
	}

	if m := showRe.FindStringSubmatch(s); m != nil {
		return Result{Kind: Show, Name: strings.ToLower(m[1])}
	}

	lower := strings.ToLower(s)
	var matched []struct {
		substr string
		kind   SystemKind
	}
	for _, candidate := range systemSubstrings {
		if strings.Contains(lower, candidate.substr) {
			matched = append(matched, candidate)
		}
	}

	// A matched substring that is itself contained in another matched
	// substring is a less specific duplicate of it (e.g. "information_schema."
	// inside "information_schema.tables"); drop it so the specific sub-kind
	// wins instead of being diluted into SystemGeneric by its own prefix.
	var specific []struct {
		substr string
		kind   SystemKind
	}
	for _, m := range matched {
		redundant := false
		for _, other := range matched {
			if other.substr != m.substr && strings.Contains(other.substr, m.substr) {
				redundant = true
				break
			}
		}
		if !redundant {
			specific = append(specific, m)
		}
	}
	matched = specific

	if len(matched) > 0 {
		kind := SystemGeneric
		if len(matched) == 1 {
			kind = matched[0].kind
		}

		return Result{Kind: System, SystemKind: kind}
	}

	return Result{Kind: Forward}
}

// stripQuotes removes one layer of surrounding single or double quotes.
func stripQuotes(value string) string {
	if len(value) < 2 {
		return value
	}

	first, last := value[0], value[len(value)-1]
	if (first == '\'' && last == '\'') || (first == '"' && last == '"') {
		return value[1 : len(value)-1]
	}

	return value
}
