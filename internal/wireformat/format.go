package wireformat

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgtype"

	"github.com/basinlabs/pgwire-gateway/internal/buffer"
)

// connInfo is the pgtype type registry used to format values for SQL types
// outside the fixed table in typemap.go, the same ConnInfo-based registry
// the teacher extends via wire.ExtendTypes/RegisterDataType.
var connInfo = pgtype.NewConnInfo()

// dateLayout and timestampLayout are the wire text forms spec §4.A requires:
// dates render as a bare yyyy-mm-dd, timestamps render as full ISO-8601.
const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02T15:04:05.999999999Z07:00"
)

// FormatValue renders a backend scalar value as the text form a PostgreSQL
// client expects for the given SQL type name. A nil value is the caller's
// responsibility to detect and encode as a wire NULL instead of calling
// FormatValue; this function never returns a representation of NULL itself.
func FormatValue(value interface{}, typeName string) string {
	lower := strings.ToLower(typeName)
	switch lower {
	case "bool":
		return formatBool(value)
	case "date":
		return formatTime(value, dateLayout)
	case "timestamp", "timestamptz":
		return formatTime(value, timestampLayout)
	case "json", "jsonb":
		return formatJSON(value)
	case "bytea":
		return formatBytea(value)
	default:
		return formatDefault(value, uint32(Lookup(lower).OID))
	}
}

func formatBool(value interface{}) string {
	switch v := value.(type) {
	case bool:
		return buffer.EncodeBoolean(v)
	case string:
		return v
	default:
		return formatDefault(value, uint32(Lookup("bool").OID))
	}
}

func formatTime(value interface{}, layout string) string {
	switch v := value.(type) {
	case time.Time:
		return v.UTC().Format(layout)
	case string:
		// Already formatted upstream (e.g. the backend returned text); pass
		// through unchanged rather than risk mangling a valid literal.
		return v
	default:
		return formatDefault(value, uint32(Lookup("timestamp").OID))
	}
}

// formatJSON renders a JSON-typed column value as wire text. The backend
// decoder (internal/backend) parses JSON payloads into their Go
// representation before they reach here, so the common case is re-marshaling
// rather than passthrough; an already-string value (e.g. produced by a
// system-query responder that builds JSON text directly) still passes
// through unchanged.
func formatJSON(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		if encoded, err := json.Marshal(v); err == nil {
			return string(encoded)
		}
		return formatDefault(value, uint32(Lookup("json").OID))
	}
}

func formatBytea(value interface{}) string {
	switch v := value.(type) {
	case []byte:
		return "\\x" + hexEncode(v)
	case string:
		return v
	default:
		return formatDefault(value, uint32(Lookup("bytea").OID))
	}
}

func hexEncode(b []byte) string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hexDigits[c>>4]
		out[i*2+1] = hexDigits[c&0x0f]
	}
	return string(out)
}

// formatDefault stringifies any value the typed branches above don't handle,
// covering int2/int4/int8/float4/float8/numeric/text/varchar/bpchar/name/
// uuid/oid and anything unrecognized. Values that aren't one of Go's plain
// scalar kinds (e.g. a pgtype-shaped struct or a driver-specific numeric
// type the backend decoder surfaced as-is) are formatted through pgtype's
// own type registry for typeOID before falling back to fmt.Sprintf, since
// that registry already knows the correct text representation for every
// OID outside the fixed table in typemap.go.
func formatDefault(value interface{}, typeOID uint32) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case bool:
		return buffer.EncodeBoolean(v)
	case int:
		return strconv.Itoa(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case time.Time:
		return v.UTC().Format(timestampLayout)
	default:
		if text, ok := formatViaPgtype(v, typeOID); ok {
			return text
		}
		return fmt.Sprintf("%v", v)
	}
}

// formatViaPgtype looks up the pgtype codec registered for typeOID and uses
// it to render value as wire text, returning ok=false if no codec is
// registered for that OID or the value can't be assigned into it.
func formatViaPgtype(value interface{}, typeOID uint32) (string, bool) {
	dt, ok := connInfo.DataTypeForOID(typeOID)
	if !ok {
		return "", false
	}

	transcoder, ok := dt.Value.(pgtype.ValueTranscoder)
	if !ok {
		return "", false
	}

	codec, ok := transcoder.NewTypeValue().(pgtype.ValueTranscoder)
	if !ok {
		return "", false
	}

	if err := codec.Set(value); err != nil {
		return "", false
	}

	buf, err := codec.EncodeText(connInfo, nil)
	if err != nil || buf == nil {
		return "", false
	}

	return string(buf), true
}

// EncodeBlob base64-encodes raw bytes, used where the backend's blob value is
// surfaced directly rather than through the bytea hex path (e.g. a column
// typed as a generic binary large object with no SQL bytea semantics).
func EncodeBlob(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}
