package protocol

import (
	"context"
	"errors"
	"fmt"

	"github.com/basinlabs/pgwire-gateway/internal/backend"
	"github.com/basinlabs/pgwire-gateway/internal/classify"
	"github.com/basinlabs/pgwire-gateway/internal/pgerrors"
	"github.com/basinlabs/pgwire-gateway/internal/queryresult"
	"github.com/basinlabs/pgwire-gateway/internal/session"
	"github.com/basinlabs/pgwire-gateway/internal/systemquery"
	"github.com/basinlabs/pgwire-gateway/internal/wireformat"
	"github.com/basinlabs/pgwire-gateway/internal/wiretypes"
)

// State is the per-connection protocol state from spec §4.G.
type State int

const (
	StateStartup State = iota
	StateAuthentication
	StateReady
	StateTerminated
)

// Logger is the minimal logging surface the state machine needs.
type Logger interface {
	Debug(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// Conn drives one client through startup -> authentication -> ready ->
// terminated, per spec §4.G. Messages are processed strictly one at a time;
// callers must not invoke HandleFrame concurrently for the same Conn.
type Conn struct {
	state     State
	session   *session.Session
	backend   *backend.Client
	responder *systemquery.Responder
	builder   *Builder
	logger    Logger

	serverVersion string
	databaseName  string
	processID     int32
	secretKey     int32
	startupParams StartupParameters
	txFailed      bool
}

// Config bundles the fixed, per-connection construction parameters.
type Config struct {
	Backend       *backend.Client
	Responder     *systemquery.Responder
	ServerVersion string
	DatabaseName  string
	ProcessID     int32
	SecretKey     int32
	Logger        Logger
}

// NewConn constructs a Conn in the initial startup state.
func NewConn(cfg Config) *Conn {
	return &Conn{
		state:         StateStartup,
		session:       session.New(),
		backend:       cfg.Backend,
		responder:     cfg.Responder,
		builder:       NewBuilder(),
		logger:        cfg.Logger,
		serverVersion: cfg.ServerVersion,
		databaseName:  cfg.DatabaseName,
		processID:     cfg.ProcessID,
		secretKey:     cfg.SecretKey,
	}
}

// State returns the connection's current protocol state.
func (c *Conn) State() State {
	return c.state
}

// ExpectStartupFrame reports whether the next call to protocol.Extract for
// this connection's buffer should use startup-category extraction.
func (c *Conn) ExpectStartupFrame() bool {
	return c.state == StateStartup
}

// Outcome is the result of processing one frame: the bytes to write back,
// in order, and whether the connection must now be closed.
type Outcome struct {
	Messages [][]byte
	Close    bool
}

// HandleFrame advances the state machine by exactly one frame. A non-nil
// error means a protocol-level failure severe enough to destroy the
// connection (spec §7); failures scoped to a single query are instead
// folded into an ErrorResponse inside Outcome.Messages with Close=false.
func (c *Conn) HandleFrame(ctx context.Context, frame Frame) (Outcome, error) {
	switch c.state {
	case StateStartup:
		return c.handleStartup(frame)
	case StateAuthentication:
		return c.handleAuthentication(frame)
	case StateReady:
		return c.handleReady(ctx, frame)
	case StateTerminated:
		return Outcome{}, nil
	default:
		return Outcome{}, fmt.Errorf("unreachable protocol state %d", c.state)
	}
}

func (c *Conn) handleStartup(frame Frame) (Outcome, error) {
	switch frame.Kind {
	case FrameSSLRequest:
		return Outcome{Messages: [][]byte{{'N'}}}, nil
	case FrameStartup:
		params, err := ParseStartupParameters(frame.Payload)
		if err != nil {
			return Outcome{Close: true}, err
		}
		c.startupParams = params

		auth, err := c.builder.AuthenticationCleartextPassword()
		if err != nil {
			return Outcome{Close: true}, err
		}

		c.state = StateAuthentication
		return Outcome{Messages: [][]byte{auth}}, nil
	default:
		return Outcome{Close: true}, errors.New("protocol error: unexpected frame during startup")
	}
}

func (c *Conn) handleAuthentication(frame Frame) (Outcome, error) {
	if frame.Type != wiretypes.ClientPassword {
		return Outcome{Close: true}, fmt.Errorf("protocol error: expected password message, got %s", frame.Type)
	}

	if _, err := ParsePassword(frame.Payload); err != nil {
		return Outcome{Close: true}, err
	}

	var messages [][]byte

	authOK, err := c.builder.AuthenticationOk()
	if err != nil {
		return Outcome{Close: true}, err
	}
	messages = append(messages, authOK)

	keyData, err := c.builder.BackendKeyData(c.processID, c.secretKey)
	if err != nil {
		return Outcome{Close: true}, err
	}
	messages = append(messages, keyData)

	for _, ps := range c.defaultParameterStatuses() {
		msg, err := c.builder.ParameterStatus(ps[0], ps[1])
		if err != nil {
			return Outcome{Close: true}, err
		}
		messages = append(messages, msg)
	}

	ready, err := c.builder.ReadyForQuery(wiretypes.TxIdle)
	if err != nil {
		return Outcome{Close: true}, err
	}
	messages = append(messages, ready)

	c.state = StateReady
	return Outcome{Messages: messages}, nil
}

// defaultParameterStatuses returns the ParameterStatus values spec §4.G
// requires at the end of authentication, in the order listed.
func (c *Conn) defaultParameterStatuses() [][2]string {
	user, _ := c.startupParams.Get("user")
	applicationName, _ := c.startupParams.Get("application_name")

	return [][2]string{
		{"server_version", c.serverVersion},
		{"server_encoding", "UTF8"},
		{"client_encoding", "UTF8"},
		{"application_name", applicationName},
		{"is_superuser", "off"},
		{"session_authorization", user},
		{"DateStyle", "ISO, MDY"},
		{"IntervalStyle", "postgres"},
		{"TimeZone", "UTC"},
		{"integer_datetimes", "on"},
		{"standard_conforming_strings", "on"},
	}
}

func (c *Conn) handleReady(ctx context.Context, frame Frame) (Outcome, error) {
	switch frame.Type {
	case wiretypes.ClientSimpleQuery:
		return c.handleSimpleQuery(ctx, frame)
	case wiretypes.ClientParse:
		return c.handleParse(frame)
	case wiretypes.ClientBind:
		return c.handleBind(frame)
	case wiretypes.ClientDescribe:
		return c.handleDescribe()
	case wiretypes.ClientExecute:
		return c.handleExecute()
	case wiretypes.ClientClose:
		return c.handleClose(frame)
	case wiretypes.ClientSync:
		return c.handleSync()
	case wiretypes.ClientTerminate:
		return c.handleTerminate(ctx)
	case wiretypes.ClientFlush:
		return Outcome{}, nil
	default:
		c.logger.Warn("ignoring unknown message type", "type", string(frame.Type))
		return Outcome{}, nil
	}
}

func (c *Conn) handleParse(frame Frame) (Outcome, error) {
	parsed, err := ParseParse(frame.Payload)
	if err != nil {
		return c.queryErrorOutcome(err)
	}

	c.session.PutPreparedStatement(parsed.Statement, parsed.SQL)

	msg, err := c.builder.ParseComplete()
	if err != nil {
		return Outcome{Close: true}, err
	}
	return Outcome{Messages: [][]byte{msg}}, nil
}

func (c *Conn) handleBind(frame Frame) (Outcome, error) {
	if _, err := ParseBind(frame.Payload); err != nil {
		return c.queryErrorOutcome(err)
	}

	msg, err := c.builder.BindComplete()
	if err != nil {
		return Outcome{Close: true}, err
	}
	return Outcome{Messages: [][]byte{msg}}, nil
}

// handleDescribe always replies with an empty RowDescription; this is the
// deliberate minimal behavior spec §4.G and §9 call out: clients relying on
// Describe for schema discovery will see no columns.
func (c *Conn) handleDescribe() (Outcome, error) {
	msg, err := c.builder.RowDescription(nil)
	if err != nil {
		return Outcome{Close: true}, err
	}
	return Outcome{Messages: [][]byte{msg}}, nil
}

// handleExecute replies with an empty query response only; per spec §4.G
// ReadyForQuery is withheld until the client sends Sync (§9 Open Question).
func (c *Conn) handleExecute() (Outcome, error) {
	msg, err := c.builder.EmptyQueryResponse()
	if err != nil {
		return Outcome{Close: true}, err
	}
	return Outcome{Messages: [][]byte{msg}}, nil
}

func (c *Conn) handleClose(frame Frame) (Outcome, error) {
	if d, err := ParseDescribe(frame.Payload); err == nil && d.Target == wiretypes.DescribeStatement {
		c.session.DeletePreparedStatement(d.Name)
	}

	msg, err := c.builder.CloseComplete()
	if err != nil {
		return Outcome{Close: true}, err
	}
	return Outcome{Messages: [][]byte{msg}}, nil
}

func (c *Conn) handleSync() (Outcome, error) {
	msg, err := c.builder.ReadyForQuery(c.txStatus())
	if err != nil {
		return Outcome{Close: true}, err
	}
	return Outcome{Messages: [][]byte{msg}}, nil
}

func (c *Conn) handleTerminate(ctx context.Context) (Outcome, error) {
	c.backend.Cleanup(ctx)
	c.state = StateTerminated
	return Outcome{Close: true}, nil
}

func (c *Conn) txStatus() wiretypes.TransactionStatus {
	switch {
	case !c.session.InTransaction():
		return wiretypes.TxIdle
	case c.txFailed:
		return wiretypes.TxFailed
	default:
		return wiretypes.TxInTransaction
	}
}

// handleSimpleQuery implements the full classify -> execute -> compose
// pipeline of spec §4.C/§4.B for a 'Q' message, always terminating with
// ReadyForQuery per §4.G.
func (c *Conn) handleSimpleQuery(ctx context.Context, frame Frame) (Outcome, error) {
	var messages [][]byte
	query, queryErr := ParseSimpleQuery(frame.Payload)
	if queryErr == nil {
		messages, queryErr = c.executeClassified(ctx, query.SQL)
	}
	if queryErr != nil {
		errMsg, buildErr := c.builder.ErrorResponse(pgerrors.Flatten(queryErr))
		if buildErr != nil {
			return Outcome{Close: true}, buildErr
		}
		messages = [][]byte{errMsg}

		if c.session.InTransaction() {
			c.txFailed = true
		}
	}

	ready, err := c.builder.ReadyForQuery(c.txStatus())
	if err != nil {
		return Outcome{Close: true}, err
	}
	messages = append(messages, ready)

	return Outcome{Messages: messages}, nil
}

// queryErrorOutcome folds a non-fatal decoding error into an ErrorResponse
// without a trailing ReadyForQuery, used by the extended-query handlers
// which do not emit ReadyForQuery themselves (spec §4.G).
func (c *Conn) queryErrorOutcome(err error) (Outcome, error) {
	msg, buildErr := c.builder.ErrorResponse(pgerrors.Flatten(err))
	if buildErr != nil {
		return Outcome{Close: true}, buildErr
	}
	return Outcome{Messages: [][]byte{msg}}, nil
}

func (c *Conn) executeClassified(ctx context.Context, sql string) ([][]byte, error) {
	result := classify.Classify(sql)

	switch result.Kind {
	case classify.Empty:
		msg, err := c.builder.EmptyQueryResponse()
		if err != nil {
			return nil, err
		}
		return [][]byte{msg}, nil

	case classify.Transaction:
		return c.executeTransaction(ctx, result.TxKind)

	case classify.Set:
		c.session.SetParameter(result.Name, result.Value)
		msg, err := c.builder.CommandComplete("SET")
		if err != nil {
			return nil, err
		}
		return [][]byte{msg}, nil

	case classify.Show:
		return c.executeShow(result.Name)

	case classify.System:
		return c.executeSystem(ctx, sql, result.SystemKind)

	default:
		res, err := c.backend.Execute(ctx, sql, nil)
		if err != nil {
			return nil, err
		}
		return c.composeResult(res, "SELECT")
	}
}

func (c *Conn) executeTransaction(ctx context.Context, kind classify.TxKind) ([][]byte, error) {
	switch kind {
	case classify.TxBegin:
		if !c.backend.IsInTransaction() {
			if err := c.backend.BeginTransaction(ctx); err != nil {
				return nil, err
			}
		}
		c.session.MarkTransactionBegin()
		c.txFailed = false
		msg, err := c.builder.CommandComplete("BEGIN")
		if err != nil {
			return nil, err
		}
		return [][]byte{msg}, nil

	case classify.TxCommit:
		var callErr error
		if c.backend.IsInTransaction() {
			callErr = c.backend.CommitTransaction(ctx)
		}
		c.session.MarkTransactionEnd()
		c.txFailed = false
		if callErr != nil {
			return nil, callErr
		}
		msg, err := c.builder.CommandComplete("COMMIT")
		if err != nil {
			return nil, err
		}
		return [][]byte{msg}, nil

	case classify.TxRollback:
		var callErr error
		if c.backend.IsInTransaction() {
			callErr = c.backend.RollbackTransaction(ctx)
		}
		c.session.MarkTransactionEnd()
		c.txFailed = false
		if callErr != nil {
			return nil, callErr
		}
		msg, err := c.builder.CommandComplete("ROLLBACK")
		if err != nil {
			return nil, err
		}
		return [][]byte{msg}, nil

	default:
		return nil, fmt.Errorf("unreachable transaction kind %d", kind)
	}
}

// showDefaults are the hard-coded SHOW replies from spec §4.C, tried before
// falling back to session state and then the literal "unknown".
var showDefaults = map[string]string{
	"server_encoding": "UTF8",
	"client_encoding": "UTF8",
	"timezone":        "UTC",
	"time zone":       "UTC",
	"datestyle":       "ISO, MDY",
}

func (c *Conn) executeShow(name string) ([][]byte, error) {
	var value string
	switch {
	case name == "server_version":
		value = c.serverVersion
	default:
		if v, ok := showDefaults[name]; ok {
			value = v
		} else if v, ok := c.session.GetParameter(name); ok {
			value = v
		} else {
			value = "unknown"
		}
	}

	result := queryresult.Result{
		Columns: []queryresult.Column{{Name: name, TypeName: "text"}},
		Records: []queryresult.Row{{name: value}},
	}
	return c.composeResult(result, "SHOW")
}

func (c *Conn) executeSystem(ctx context.Context, sql string, kind classify.SystemKind) ([][]byte, error) {
	forward := func(sql string) (queryresult.Result, error) {
		return c.backend.Execute(ctx, sql, nil)
	}

	result, err := c.responder.Respond(sql, kind, forward)
	if err != nil {
		return nil, err
	}
	return c.composeResult(result, "SELECT")
}

// composeResult implements spec §4.B's query-response composition rule.
// selectVerb names the CommandComplete tag used when the result carries
// records (SHOW uses "SHOW", ordinary queries use "SELECT").
func (c *Conn) composeResult(result queryresult.Result, selectVerb string) ([][]byte, error) {
	if len(result.Records) > 0 {
		return c.composeRows(result, selectVerb)
	}

	if result.UpdatedCount != nil {
		tag := result.CommandTag
		if tag == "" {
			if *result.UpdatedCount > 0 {
				tag = fmt.Sprintf("UPDATE %d", *result.UpdatedCount)
			} else {
				tag = "OK"
			}
		}
		msg, err := c.builder.CommandComplete(tag)
		if err != nil {
			return nil, err
		}
		return [][]byte{msg}, nil
	}

	msg, err := c.builder.EmptyQueryResponse()
	if err != nil {
		return nil, err
	}
	return [][]byte{msg}, nil
}

func (c *Conn) composeRows(result queryresult.Result, selectVerb string) ([][]byte, error) {
	columns := make([]Column, len(result.Columns))
	typeNames := make([]string, len(result.Columns))
	for i, col := range result.Columns {
		info := wireformat.Lookup(col.TypeName)
		columns[i] = Column{Name: col.Name, TypeOID: uint32(info.OID), TypeSize: info.Size}
		typeNames[i] = col.TypeName
	}

	var messages [][]byte

	rd, err := c.builder.RowDescription(columns)
	if err != nil {
		return nil, err
	}
	messages = append(messages, rd)

	for _, row := range result.Records {
		values, nulls := FormatRowValues(row, columns, typeNames)
		dr, err := c.builder.DataRow(values, nulls)
		if err != nil {
			return nil, err
		}
		messages = append(messages, dr)
	}

	tag := result.CommandTag
	if tag == "" {
		tag = CommandTag(selectVerb, int64(len(result.Records)))
	}
	cc, err := c.builder.CommandComplete(tag)
	if err != nil {
		return nil, err
	}
	messages = append(messages, cc)

	return messages, nil
}
