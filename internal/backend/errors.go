package backend

import (
	"errors"
	"strings"

	"github.com/aws/smithy-go"

	"github.com/basinlabs/pgwire-gateway/internal/codes"
	"github.com/basinlabs/pgwire-gateway/internal/pgerrors"
)

// Severity mirrors the subset of PostgreSQL error severities a backend
// mapping can produce.
type Severity = pgerrors.Severity

const (
	LevelError = pgerrors.LevelError
	LevelFatal = pgerrors.LevelFatal
)

// NewError builds a decorated error carrying a SQLSTATE code, severity, and
// message, with an optional hint.
func NewError(code codes.Code, severity Severity, message, hint string) error {
	err := errors.New(message)
	err = pgerrors.WithCode(err, code)
	err = pgerrors.WithSeverity(err, severity)
	if hint != "" {
		err = pgerrors.WithHint(err, hint)
	}
	return err
}

// errorCodeMapping is the exact table from spec §4.E, keyed by the backend's
// smithy error-code name (the same value aws/smithy-go's APIError.ErrorCode
// returns for an rdsdata-originated failure).
var errorCodeMapping = map[string]struct {
	code     codes.Code
	severity Severity
}{
	"BadRequestException":       {codes.Syntax, LevelError},
	"ForbiddenException":        {codes.InsufficientPrivilege, LevelError},
	"ServiceUnavailableError":   {codes.ConnectionFailure, LevelFatal},
	"StatementTimeoutException": {codes.QueryCanceled, LevelError},
	"ResourceNotFoundException": {codes.UndefinedTable, LevelError},
	"ValidationException":       {codes.InvalidParameterValue, LevelError},
	"ThrottlingException":       {codes.TooManyConnections, LevelError},
}

// defaultMapping is used for any backend error name not in errorCodeMapping.
var defaultMapping = struct {
	code     codes.Code
	severity Severity
}{codes.Internal, LevelError}

// MapError translates a backend failure into a SQLSTATE-decorated error per
// spec §4.E. The mapped error carries the original message as both message
// and detail, and a hint derived from simple keyword matching.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	name := ""
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		name = apiErr.ErrorCode()
	}

	mapping, ok := errorCodeMapping[name]
	if !ok {
		mapping = defaultMapping
	}

	message := err.Error()

	wrapped := errors.New(message)
	wrapped = pgerrors.WithCode(wrapped, mapping.code)
	wrapped = pgerrors.WithSeverity(wrapped, mapping.severity)
	wrapped = pgerrors.WithDetail(wrapped, message)

	if hint := deriveHint(message); hint != "" {
		wrapped = pgerrors.WithHint(wrapped, hint)
	}

	return wrapped
}

// deriveHint produces a short operator-facing hint from simple keyword
// matches against the backend's human-readable message, per spec §4.E.
func deriveHint(message string) string {
	lower := strings.ToLower(message)

	switch {
	case strings.Contains(lower, "timeout"):
		return "the statement may need a longer execution timeout or a more selective predicate"
	case strings.Contains(lower, "throttl"):
		return "retry after a short delay; the backend is rate-limiting requests"
	case strings.Contains(lower, "credential") || strings.Contains(lower, "forbidden"):
		return "verify the configured credentials have access to this cluster and secret"
	case strings.Contains(lower, "not found"):
		return "verify the referenced table or schema exists in the target database"
	default:
		return ""
	}
}
