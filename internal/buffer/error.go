package buffer

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/basinlabs/pgwire-gateway/internal/codes"
	"github.com/basinlabs/pgwire-gateway/internal/pgerrors"
)

// ErrMissingNulTerminator is returned when a C-string field is read but no
// NUL terminator is found before the end of the message.
var ErrMissingNulTerminator = errors.New("NUL terminator not found")

// NewMissingNulTerminator constructs a framing error for a missing NUL terminator.
func NewMissingNulTerminator() error {
	return pgerrors.WithSeverity(pgerrors.WithCode(ErrMissingNulTerminator, codes.DataCorrupted), pgerrors.LevelFatal)
}

// ErrInsufficientData is returned when fewer bytes remain in the message
// than the field being decoded requires.
var ErrInsufficientData = errors.New("insufficient data")

// NewInsufficientData constructs a framing error carrying the number of bytes
// that were actually available.
func NewInsufficientData(available int) error {
	err := fmt.Errorf("available: %d %w", available, ErrInsufficientData)
	return pgerrors.WithSeverity(pgerrors.WithCode(err, codes.DataCorrupted), pgerrors.LevelFatal)
}

// MessageSizeExceeded is returned when a frame declares a length greater
// than the reader's configured maximum message size.
type MessageSizeExceeded struct {
	Message string
	Size    int
	Max     int
}

func (err MessageSizeExceeded) Error() string { return err.Message }

func (err MessageSizeExceeded) Is(target error) bool {
	return reflect.TypeOf(target) == reflect.TypeOf(err)
}

// NewMessageSizeExceeded constructs a MessageSizeExceeded framing error.
func NewMessageSizeExceeded(max, size int) error {
	err := MessageSizeExceeded{
		Message: fmt.Sprintf("message size %d exceeds maximum allowed message size %d", size, max),
		Size:    size,
		Max:     max,
	}

	return pgerrors.WithSeverity(pgerrors.WithCode(err, codes.ProgramLimitExceeded), pgerrors.LevelError)
}

// UnwrapMessageSizeExceeded attempts to unwrap the given error as a
// MessageSizeExceeded framing error.
func UnwrapMessageSizeExceeded(err error) (result MessageSizeExceeded, ok bool) {
	return result, errors.As(err, &result)
}

// ErrShortTypedFrame is returned when a typed frame declares a length below
// the minimum of 4 (the length field itself).
var ErrShortTypedFrame = errors.New("typed frame length shorter than 4")

// NewShortTypedFrame constructs a framing error for a too-short typed frame length.
func NewShortTypedFrame(declared int) error {
	err := fmt.Errorf("declared length %d: %w", declared, ErrShortTypedFrame)
	return pgerrors.WithSeverity(pgerrors.WithCode(err, codes.ProtocolViolation), pgerrors.LevelFatal)
}

// ErrShortStartupFrame is returned when a startup-category frame declares a
// length too small to contain the protocol version code.
var ErrShortStartupFrame = errors.New("startup frame shorter than the protocol version field")

// NewShortStartupFrame constructs a framing error for a short startup frame.
func NewShortStartupFrame(declared int) error {
	err := fmt.Errorf("declared length %d: %w", declared, ErrShortStartupFrame)
	return pgerrors.WithSeverity(pgerrors.WithCode(err, codes.ProtocolViolation), pgerrors.LevelFatal)
}

// ErrUnrecognizedStartup is returned when a startup-category frame's
// protocol code matches neither the SSL-request nor the version-3 pattern.
var ErrUnrecognizedStartup = errors.New("unrecognized startup protocol code")

// NewUnrecognizedStartup constructs a protocol error for an unrecognized
// startup-category frame.
func NewUnrecognizedStartup(code uint32) error {
	err := fmt.Errorf("protocol code %#x: %w", code, ErrUnrecognizedStartup)
	return pgerrors.WithSeverity(pgerrors.WithCode(err, codes.ProtocolViolation), pgerrors.LevelFatal)
}
