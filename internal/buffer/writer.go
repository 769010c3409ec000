package buffer

import (
	"bytes"
	"encoding/binary"

	"github.com/basinlabs/pgwire-gateway/internal/wiretypes"
)

// Writer provides a convenient way to build pgwire protocol messages. A
// single Writer is reused across an entire connection's lifetime: Start
// begins a new message, the Add* methods append fields, and End finalizes
// the frame length and returns a copy of the framed bytes.
type Writer struct {
	frame  bytes.Buffer
	putbuf [4]byte
	err    error
}

// NewWriter constructs an empty message Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Start resets the writer and begins a new message of the given type. The
// type byte and four reserved length bytes are written immediately; End
// patches the length in once the message body is known.
func (writer *Writer) Start(t wiretypes.ServerMessage) {
	writer.Reset()
	writer.frame.WriteByte(byte(t))
	writer.frame.Write(writer.putbuf[:4])
}

// AddByte appends a single byte to the message.
func (writer *Writer) AddByte(b byte) {
	if writer.err != nil {
		return
	}

	writer.err = writer.frame.WriteByte(b)
}

// AddInt16 appends a big-endian int16 to the message.
func (writer *Writer) AddInt16(i int16) {
	if writer.err != nil {
		return
	}

	binary.BigEndian.PutUint16(writer.putbuf[:2], uint16(i))
	_, writer.err = writer.frame.Write(writer.putbuf[:2])
}

// AddInt32 appends a big-endian int32 to the message.
func (writer *Writer) AddInt32(i int32) {
	if writer.err != nil {
		return
	}

	binary.BigEndian.PutUint32(writer.putbuf[:4], uint32(i))
	_, writer.err = writer.frame.Write(writer.putbuf[:4])
}

// AddBytes appends raw bytes to the message.
func (writer *Writer) AddBytes(b []byte) {
	if writer.err != nil {
		return
	}

	_, writer.err = writer.frame.Write(b)
}

// AddString appends a raw UTF-8 string (no terminator, no length prefix).
func (writer *Writer) AddString(s string) {
	if writer.err != nil {
		return
	}

	_, writer.err = writer.frame.WriteString(s)
}

// AddCString appends a NUL-terminated UTF-8 string.
func (writer *Writer) AddCString(s string) {
	writer.AddString(s)
	writer.AddNullTerminate()
}

// AddLengthPrefixedString appends a 32-bit length followed by the UTF-8 bytes
// of s, the encoding used for DataRow column values.
func (writer *Writer) AddLengthPrefixedString(s string) {
	writer.AddInt32(int32(len(s)))
	writer.AddString(s)
}

// AddNull appends the length -1 sentinel used to encode a SQL NULL inside a
// DataRow message; no value bytes follow.
func (writer *Writer) AddNull() {
	writer.AddInt32(-1)
}

// AddNullTerminate appends a single NUL byte.
func (writer *Writer) AddNullTerminate() {
	writer.AddByte(0)
}

// Error returns the first error encountered while building the current message.
func (writer *Writer) Error() error {
	return writer.err
}

// Reset discards the in-progress message.
func (writer *Writer) Reset() {
	writer.frame.Reset()
	writer.err = nil
}

// End finalizes the in-progress message: the 32-bit length field (which
// includes itself but excludes the leading type byte) is patched in and the
// complete framed bytes are returned. The writer is reset for reuse.
func (writer *Writer) End() ([]byte, error) {
	defer writer.Reset()
	if writer.err != nil {
		return nil, writer.err
	}

	raw := writer.frame.Bytes()
	length := uint32(len(raw) - 1)
	binary.BigEndian.PutUint32(raw[1:5], length)

	out := make([]byte, len(raw))
	copy(out, raw)
	return out, nil
}

// EncodeBoolean returns the wire text representation of a boolean value.
func EncodeBoolean(value bool) string {
	if value {
		return "t"
	}

	return "f"
}
