package wireformat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatValueBool(t *testing.T) {
	assert.Equal(t, "t", FormatValue(true, "bool"))
	assert.Equal(t, "f", FormatValue(false, "bool"))
}

func TestFormatValueDate(t *testing.T) {
	ts := time.Date(2026, 3, 5, 13, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-03-05", FormatValue(ts, "date"))
}

func TestFormatValueTimestamp(t *testing.T) {
	ts := time.Date(2026, 3, 5, 13, 30, 45, 0, time.UTC)
	assert.Equal(t, "2026-03-05T13:30:45Z", FormatValue(ts, "timestamp"))
}

func TestFormatValueJSONPassthrough(t *testing.T) {
	assert.Equal(t, `{"a":1}`, FormatValue(`{"a":1}`, "jsonb"))
}

func TestFormatValueDefaultNumeric(t *testing.T) {
	assert.Equal(t, "42", FormatValue(int64(42), "int8"))
	assert.Equal(t, "3.5", FormatValue(3.5, "float8"))
}

func TestFormatValueBytea(t *testing.T) {
	assert.Equal(t, "\\x0102ff", FormatValue([]byte{0x01, 0x02, 0xff}, "bytea"))
}

func TestFormatValueUUIDViaPgtype(t *testing.T) {
	id := [16]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10}
	assert.Equal(t, "01020304-0506-0708-090a-0b0c0d0e0f10", FormatValue(id, "uuid"))
}

func TestLookupKnownAndUnknownType(t *testing.T) {
	info := Lookup("INT4")
	assert.Equal(t, int16(4), info.Size)

	info = Lookup("not_a_real_type")
	assert.Equal(t, defaultType, info)
}
