package protocol

import (
	"fmt"

	"github.com/basinlabs/pgwire-gateway/internal/buffer"
	"github.com/basinlabs/pgwire-gateway/internal/pgerrors"
	"github.com/basinlabs/pgwire-gateway/internal/wireformat"
	"github.com/basinlabs/pgwire-gateway/internal/wiretypes"
)

// Builder produces exact byte sequences for every server message spec §4.B
// lists. It wraps one reusable buffer.Writer; callers reuse a single Builder
// per connection rather than allocating one per message.
type Builder struct {
	writer *buffer.Writer
}

// NewBuilder constructs a Builder with its own writer.
func NewBuilder() *Builder {
	return &Builder{writer: buffer.NewWriter()}
}

func (b *Builder) AuthenticationOk() ([]byte, error) {
	b.writer.Start(wiretypes.ServerAuth)
	b.writer.AddInt32(0)
	return b.writer.End()
}

func (b *Builder) AuthenticationCleartextPassword() ([]byte, error) {
	b.writer.Start(wiretypes.ServerAuth)
	b.writer.AddInt32(3)
	return b.writer.End()
}

// BackendKeyData carries an arbitrary process id and secret key the client
// echoes back on a future cancel request; neither is validated by this
// gateway since cancellation is out of scope.
func (b *Builder) BackendKeyData(processID, secretKey int32) ([]byte, error) {
	b.writer.Start(wiretypes.ServerBackendKeyData)
	b.writer.AddInt32(processID)
	b.writer.AddInt32(secretKey)
	return b.writer.End()
}

func (b *Builder) ParameterStatus(name, value string) ([]byte, error) {
	b.writer.Start(wiretypes.ServerParameterStatus)
	b.writer.AddCString(name)
	b.writer.AddCString(value)
	return b.writer.End()
}

// ReadyForQuery carries the transaction status byte 'I'/'T'/'E'. Building it
// twice with the same status yields identical bytes (spec §8 idempotence).
func (b *Builder) ReadyForQuery(status wiretypes.TransactionStatus) ([]byte, error) {
	b.writer.Start(wiretypes.ServerReady)
	b.writer.AddByte(byte(status))
	return b.writer.End()
}

// Column describes one RowDescription field.
type Column struct {
	Name     string
	TypeOID  uint32
	TypeSize int16
}

// RowDescription emits the field layout spec §4.B specifies: per column,
// name, table-oid 0, column-index starting at 1, type-oid, type-size,
// type-modifier -1, format-code 0.
func (b *Builder) RowDescription(columns []Column) ([]byte, error) {
	b.writer.Start(wiretypes.ServerRowDescription)
	b.writer.AddInt16(int16(len(columns)))

	for i, col := range columns {
		b.writer.AddCString(col.Name)
		b.writer.AddInt32(0)             // table oid
		b.writer.AddInt16(int16(i + 1))  // column index
		b.writer.AddInt32(int32(col.TypeOID))
		b.writer.AddInt16(col.TypeSize)
		b.writer.AddInt32(-1) // type modifier
		b.writer.AddInt16(0)  // format code: text
	}

	return b.writer.End()
}

// DataRow emits one row: each value as a 32-bit length + UTF-8 bytes, or -1
// for NULL. nulls[i]==true encodes column i as NULL (values[i] is then
// ignored) per spec §8's boundary property.
func (b *Builder) DataRow(values []string, nulls []bool) ([]byte, error) {
	b.writer.Start(wiretypes.ServerDataRow)
	b.writer.AddInt16(int16(len(values)))

	for i, v := range values {
		if i < len(nulls) && nulls[i] {
			b.writer.AddNull()
			continue
		}
		b.writer.AddLengthPrefixedString(v)
	}

	return b.writer.End()
}

func (b *Builder) CommandComplete(tag string) ([]byte, error) {
	b.writer.Start(wiretypes.ServerCommandComplete)
	b.writer.AddCString(tag)
	return b.writer.End()
}

func (b *Builder) EmptyQueryResponse() ([]byte, error) {
	b.writer.Start(wiretypes.ServerEmptyQuery)
	return b.writer.End()
}

func (b *Builder) ParseComplete() ([]byte, error) {
	b.writer.Start(wiretypes.ServerParseComplete)
	return b.writer.End()
}

func (b *Builder) BindComplete() ([]byte, error) {
	b.writer.Start(wiretypes.ServerBindComplete)
	return b.writer.End()
}

func (b *Builder) CloseComplete() ([]byte, error) {
	b.writer.Start(wiretypes.ServerCloseComplete)
	return b.writer.End()
}

func (b *Builder) NoData() ([]byte, error) {
	b.writer.Start(wiretypes.ServerNoData)
	return b.writer.End()
}

// ErrorResponse builds a field-tagged ErrorResponse: 'S' severity, 'C' code,
// 'M' message, optional 'D' detail and 'H' hint, terminated by a zero byte.
func (b *Builder) ErrorResponse(e pgerrors.Error) ([]byte, error) {
	return b.fieldTaggedMessage(wiretypes.ServerErrorResponse, e)
}

// NoticeResponse uses the same field layout as ErrorResponse.
func (b *Builder) NoticeResponse(e pgerrors.Error) ([]byte, error) {
	return b.fieldTaggedMessage(wiretypes.ServerNoticeResponse, e)
}

func (b *Builder) fieldTaggedMessage(t wiretypes.ServerMessage, e pgerrors.Error) ([]byte, error) {
	b.writer.Start(t)

	severity := e.Severity
	if severity == "" {
		severity = pgerrors.LevelError
	}
	b.writer.AddByte('S')
	b.writer.AddCString(string(severity))

	code := e.Code
	if code == "" {
		code = "XX000"
	}
	b.writer.AddByte('C')
	b.writer.AddCString(string(code))

	b.writer.AddByte('M')
	b.writer.AddCString(e.Message)

	if e.Detail != "" {
		b.writer.AddByte('D')
		b.writer.AddCString(e.Detail)
	}

	if e.Hint != "" {
		b.writer.AddByte('H')
		b.writer.AddCString(e.Hint)
	}

	b.writer.AddNullTerminate()
	return b.writer.End()
}

// FormatRowValues converts a typed row (column name -> scalar) into the
// positional text values and null flags DataRow expects, using wireformat's
// value-formatting rules for each column's declared type.
func FormatRowValues(row map[string]interface{}, columns []Column, typeNames []string) ([]string, []bool) {
	values := make([]string, len(columns))
	nulls := make([]bool, len(columns))

	for i, col := range columns {
		raw, present := row[col.Name]
		if !present || raw == nil {
			nulls[i] = true
			continue
		}

		typeName := "text"
		if i < len(typeNames) {
			typeName = typeNames[i]
		}
		values[i] = wireformat.FormatValue(raw, typeName)
	}

	return values, nulls
}

// CommandTag composes the canonical CommandComplete tag string for a
// statement kind and affected/selected row count.
func CommandTag(verb string, count int64) string {
	return fmt.Sprintf("%s %d", verb, count)
}
