package buffer

import (
	"bytes"
	"encoding/binary"
)

// Reader provides bounds-checked, cursor-based access to the payload of a
// single already-extracted protocol frame. Unlike a bufio.Reader it never
// blocks on I/O: the frame extraction step (see the protocol package) is
// responsible for assembling a complete frame from the connection's byte
// buffer before a Reader is constructed over it.
type Reader struct {
	Msg []byte
}

// NewReader constructs a Reader over the given frame payload. The payload is
// not copied; callers must not mutate it while the Reader is in use.
func NewReader(payload []byte) *Reader {
	return &Reader{Msg: payload}
}

// Len returns the number of unread bytes remaining in the frame.
func (reader *Reader) Len() int {
	return len(reader.Msg)
}

// Peek returns the remaining unread bytes without consuming them.
func (reader *Reader) Peek() []byte {
	return reader.Msg
}

// GetString reads a NUL-terminated string.
func (reader *Reader) GetString() (string, error) {
	pos := bytes.IndexByte(reader.Msg, 0)
	if pos == -1 {
		return "", NewMissingNulTerminator()
	}

	s := string(reader.Msg[:pos])
	reader.Msg = reader.Msg[pos+1:]
	return s, nil
}

// GetBytes returns the next n bytes of the frame.
func (reader *Reader) GetBytes(n int) ([]byte, error) {
	if len(reader.Msg) < n {
		return nil, NewInsufficientData(len(reader.Msg))
	}

	v := reader.Msg[:n]
	reader.Msg = reader.Msg[n:]
	return v, nil
}

// GetByte returns the next single byte of the frame.
func (reader *Reader) GetByte() (byte, error) {
	v, err := reader.GetBytes(1)
	if err != nil {
		return 0, err
	}

	return v[0], nil
}

// GetUint16 reads the next two bytes as a big-endian uint16.
func (reader *Reader) GetUint16() (uint16, error) {
	v, err := reader.GetBytes(2)
	if err != nil {
		return 0, err
	}

	return binary.BigEndian.Uint16(v), nil
}

// GetUint32 reads the next four bytes as a big-endian uint32.
func (reader *Reader) GetUint32() (uint32, error) {
	v, err := reader.GetBytes(4)
	if err != nil {
		return 0, err
	}

	return binary.BigEndian.Uint32(v), nil
}

// GetInt32 reads the next four bytes as a big-endian, signed int32. Used for
// length-prefixed parameter values where -1 denotes NULL.
func (reader *Reader) GetInt32() (int32, error) {
	v, err := reader.GetUint32()
	return int32(v), err
}

// GetInt16 reads the next two bytes as a big-endian, signed int16.
func (reader *Reader) GetInt16() (int16, error) {
	v, err := reader.GetUint16()
	return int16(v), err
}
