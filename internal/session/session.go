// Package session implements component D: the per-connection session state
// described in spec §3 and §4.D. A session is never shared across
// connections; its zero value is not useful, construct one with New.
package session

import (
	"strings"
	"sync"
	"time"
)

// PreparedStatement is the record stored against a statement name by Parse.
type PreparedStatement struct {
	SQL       string
	CreatedAt time.Time
}

// Snapshot is a structural copy of a Session's state, safe to inspect without
// holding the session's internal lock.
type Snapshot struct {
	Parameters          map[string]string
	PreparedStatements  map[string]PreparedStatement
	InTransaction       bool
}

// Session holds the parameters, prepared statements, and transaction flag for
// a single connection. All methods are safe for concurrent use, though spec
// §5 guarantees per-connection message processing is already serial.
type Session struct {
	mu            sync.Mutex
	parameters    map[string]string
	statements    map[string]PreparedStatement
	inTransaction bool
}

// New constructs an empty Session.
func New() *Session {
	return &Session{
		parameters: make(map[string]string),
		statements: make(map[string]PreparedStatement),
	}
}

// SetParameter stores a session parameter under its lower-cased name.
func (s *Session) SetParameter(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.parameters[strings.ToLower(name)] = value
}

// GetParameter returns a previously stored parameter value.
func (s *Session) GetParameter(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, ok := s.parameters[strings.ToLower(name)]
	return value, ok
}

// PutPreparedStatement records a parsed statement under name, overwriting any
// previous statement of the same name.
func (s *Session) PutPreparedStatement(name, sql string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.statements[name] = PreparedStatement{SQL: sql, CreatedAt: time.Now()}
}

// GetPreparedStatement returns the statement previously stored under name.
func (s *Session) GetPreparedStatement(name string) (PreparedStatement, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stmt, ok := s.statements[name]
	return stmt, ok
}

// DeletePreparedStatement removes a statement by name, e.g. on Close.
func (s *Session) DeletePreparedStatement(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.statements, name)
}

// MarkTransactionBegin sets the in-transaction flag.
func (s *Session) MarkTransactionBegin() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.inTransaction = true
}

// MarkTransactionEnd clears the in-transaction flag.
func (s *Session) MarkTransactionEnd() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.inTransaction = false
}

// InTransaction reports the current transaction flag.
func (s *Session) InTransaction() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTransaction
}

// Snapshot returns a structural copy of the session's state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	params := make(map[string]string, len(s.parameters))
	for k, v := range s.parameters {
		params[k] = v
	}

	stmts := make(map[string]PreparedStatement, len(s.statements))
	for k, v := range s.statements {
		stmts[k] = v
	}

	return Snapshot{
		Parameters:         params,
		PreparedStatements: stmts,
		InTransaction:      s.inTransaction,
	}
}
