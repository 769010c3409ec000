// Package protocol implements components B and G: frame extraction and
// message parsing/building (§4.B), and the per-connection protocol state
// machine (§4.G).
package protocol

import (
	"encoding/binary"

	"github.com/basinlabs/pgwire-gateway/internal/buffer"
	"github.com/basinlabs/pgwire-gateway/internal/wiretypes"
)

// sslRequestCode is the literal 0x04D2162F protocol code from spec §4.B.
const sslRequestCode = uint32(wiretypes.VersionSSLRequest)

// minStartupLength is the smallest legal startup-category frame length: the
// four length bytes plus the four protocol-code bytes.
const minStartupLength = 8

// maxFrameSize bounds both startup and typed frames against a client that
// declares an unreasonable length, converting what would otherwise be an
// unbounded buffer grow into a framing error.
const maxFrameSize = 64 * 1024 * 1024

// FrameKind distinguishes the three frame shapes spec §4.B's extraction
// rule can produce.
type FrameKind int

const (
	// FrameSSLRequest is the eight-byte SSL negotiation request.
	FrameSSLRequest FrameKind = iota
	// FrameStartup is the client's initial {user, database, ...} message.
	FrameStartup
	// FrameTyped is every post-authentication message.
	FrameTyped
)

// Frame is the result of one successful extraction: either an SSL request
// (no payload), a startup frame (Payload holds the parameter bytes after the
// version code), or a typed frame (Type set, Payload holds the body after
// the length field).
type Frame struct {
	Kind    FrameKind
	Type    wiretypes.ClientMessage
	Version wiretypes.Version
	Payload []byte
}

// Extract implements spec §4.B's frame-extraction rule: given the current
// read buffer it returns the next complete frame and the leftover bytes, or
// reports that more data is needed. It never advances the buffer on a
// "need more data" result, and it is total on any prefix: every input either
// yields a complete frame with a strictly shorter remainder, or "need more
// data", or a framing error — it never panics or reads past the buffer.
//
// expectStartup must be true only while the connection's protocol state is
// "startup" (spec §4.G); once the connection has moved past authentication,
// every frame is typed.
func Extract(buf []byte, expectStartup bool) (frame Frame, rest []byte, ok bool, err error) {
	if expectStartup {
		return extractStartup(buf)
	}

	return extractTyped(buf)
}

func extractStartup(buf []byte) (Frame, []byte, bool, error) {
	if len(buf) < 4 {
		return Frame{}, buf, false, nil
	}

	n := binary.BigEndian.Uint32(buf[0:4])
	if n < minStartupLength {
		return Frame{}, buf, false, buffer.NewShortStartupFrame(int(n))
	}

	if n > maxFrameSize {
		return Frame{}, buf, false, buffer.NewMessageSizeExceeded(maxFrameSize, int(n))
	}

	if len(buf) < 8 {
		return Frame{}, buf, false, nil
	}

	code := binary.BigEndian.Uint32(buf[4:8])

	if n == minStartupLength && code == sslRequestCode {
		return Frame{Kind: FrameSSLRequest}, buf[8:], true, nil
	}

	if (code>>16) == 3 {
		total := int(n)
		if len(buf) < total {
			return Frame{}, buf, false, nil
		}

		payload := buf[8:total]
		return Frame{Kind: FrameStartup, Version: wiretypes.Version(code), Payload: payload}, buf[total:], true, nil
	}

	return Frame{}, buf, false, buffer.NewUnrecognizedStartup(code)
}

func extractTyped(buf []byte) (Frame, []byte, bool, error) {
	if len(buf) < 1 {
		return Frame{}, buf, false, nil
	}

	if len(buf) < 5 {
		return Frame{}, buf, false, nil
	}

	typeByte := wiretypes.ClientMessage(buf[0])
	l := binary.BigEndian.Uint32(buf[1:5])

	if l < 4 {
		return Frame{}, buf, false, buffer.NewShortTypedFrame(int(l))
	}

	if l > maxFrameSize {
		return Frame{}, buf, false, buffer.NewMessageSizeExceeded(maxFrameSize, int(l))
	}

	total := 1 + int(l)
	if len(buf) < total {
		return Frame{}, buf, false, nil
	}

	payload := buf[5:total]
	return Frame{Kind: FrameTyped, Type: typeByte, Payload: payload}, buf[total:], true, nil
}
