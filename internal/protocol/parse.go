package protocol

import (
	"github.com/basinlabs/pgwire-gateway/internal/buffer"
	"github.com/basinlabs/pgwire-gateway/internal/wiretypes"
)

// StartupParameters is the {user, database, ...} mapping carried in a
// startup frame's payload, in the order the client sent them.
type StartupParameters struct {
	Values map[string]string
	Order  []string
}

// Get returns a startup parameter by name.
func (p StartupParameters) Get(name string) (string, bool) {
	v, ok := p.Values[name]
	return v, ok
}

// ParseStartupParameters decodes the NUL-terminated key/value pairs that
// follow a startup frame's protocol-version field, up to the final empty
// string that terminates the list.
func ParseStartupParameters(payload []byte) (StartupParameters, error) {
	reader := buffer.NewReader(payload)
	params := StartupParameters{Values: make(map[string]string)}

	for reader.Len() > 0 {
		key, err := reader.GetString()
		if err != nil {
			return StartupParameters{}, err
		}

		if key == "" {
			break
		}

		value, err := reader.GetString()
		if err != nil {
			return StartupParameters{}, err
		}

		params.Values[key] = value
		params.Order = append(params.Order, key)
	}

	return params, nil
}

// SimpleQuery is the decoded body of a 'Q' message.
type SimpleQuery struct {
	SQL string
}

// ParseSimpleQuery decodes a simple-query message body.
func ParseSimpleQuery(payload []byte) (SimpleQuery, error) {
	reader := buffer.NewReader(payload)
	sql, err := reader.GetString()
	if err != nil {
		return SimpleQuery{}, err
	}
	return SimpleQuery{SQL: sql}, nil
}

// Parse is the decoded body of a 'P' (Parse) message.
type Parse struct {
	Statement      string
	SQL            string
	ParameterOIDs  []uint32
}

// ParseParse decodes a Parse message body: name, sql, parameter-type-oid vector.
func ParseParse(payload []byte) (Parse, error) {
	reader := buffer.NewReader(payload)

	name, err := reader.GetString()
	if err != nil {
		return Parse{}, err
	}

	sql, err := reader.GetString()
	if err != nil {
		return Parse{}, err
	}

	count, err := reader.GetUint16()
	if err != nil {
		return Parse{}, err
	}

	oids := make([]uint32, 0, count)
	for i := 0; i < int(count); i++ {
		oid, err := reader.GetUint32()
		if err != nil {
			return Parse{}, err
		}
		oids = append(oids, oid)
	}

	return Parse{Statement: name, SQL: sql, ParameterOIDs: oids}, nil
}

// BindParameter is one positional parameter value from a Bind message,
// decoded as raw bytes with a Null flag; NULL is length -1 on the wire.
type BindParameter struct {
	Null  bool
	Value []byte
}

// Bind is the decoded body of a 'B' (Bind) message.
type Bind struct {
	Portal            string
	Statement         string
	ParameterFormats  []int16
	Parameters        []BindParameter
	ResultFormats     []int16
}

// ParseBind decodes a Bind message body.
func ParseBind(payload []byte) (Bind, error) {
	reader := buffer.NewReader(payload)

	portal, err := reader.GetString()
	if err != nil {
		return Bind{}, err
	}

	statement, err := reader.GetString()
	if err != nil {
		return Bind{}, err
	}

	paramFormatCount, err := reader.GetInt16()
	if err != nil {
		return Bind{}, err
	}

	paramFormats := make([]int16, paramFormatCount)
	for i := range paramFormats {
		f, err := reader.GetInt16()
		if err != nil {
			return Bind{}, err
		}
		paramFormats[i] = f
	}

	paramCount, err := reader.GetInt16()
	if err != nil {
		return Bind{}, err
	}

	params := make([]BindParameter, paramCount)
	for i := range params {
		length, err := reader.GetInt32()
		if err != nil {
			return Bind{}, err
		}

		if length < 0 {
			params[i] = BindParameter{Null: true}
			continue
		}

		value, err := reader.GetBytes(int(length))
		if err != nil {
			return Bind{}, err
		}
		params[i] = BindParameter{Value: value}
	}

	resultFormatCount, err := reader.GetInt16()
	if err != nil {
		return Bind{}, err
	}

	resultFormats := make([]int16, resultFormatCount)
	for i := range resultFormats {
		f, err := reader.GetInt16()
		if err != nil {
			return Bind{}, err
		}
		resultFormats[i] = f
	}

	return Bind{
		Portal:           portal,
		Statement:        statement,
		ParameterFormats: paramFormats,
		Parameters:       params,
		ResultFormats:    resultFormats,
	}, nil
}

// Execute is the decoded body of an 'E' (Execute) message.
type Execute struct {
	Portal   string
	RowLimit int32
}

// ParseExecute decodes an Execute message body.
func ParseExecute(payload []byte) (Execute, error) {
	reader := buffer.NewReader(payload)

	portal, err := reader.GetString()
	if err != nil {
		return Execute{}, err
	}

	limit, err := reader.GetInt32()
	if err != nil {
		return Execute{}, err
	}

	return Execute{Portal: portal, RowLimit: limit}, nil
}

// Describe is the decoded body of a 'D' (Describe) or 'C' (Close) message.
type Describe struct {
	Target wiretypes.DescribeMessage
	Name   string
}

// ParseDescribe decodes a Describe or Close message body: one target byte
// ('S' or 'P') followed by a name.
func ParseDescribe(payload []byte) (Describe, error) {
	reader := buffer.NewReader(payload)

	target, err := reader.GetByte()
	if err != nil {
		return Describe{}, err
	}

	name, err := reader.GetString()
	if err != nil {
		return Describe{}, err
	}

	return Describe{Target: wiretypes.DescribeMessage(target), Name: name}, nil
}

// Password is the decoded body of a 'p' (PasswordMessage) message.
type Password struct {
	Password string
}

// ParsePassword decodes a password message body.
func ParsePassword(payload []byte) (Password, error) {
	reader := buffer.NewReader(payload)
	password, err := reader.GetString()
	if err != nil {
		return Password{}, err
	}
	return Password{Password: password}, nil
}
