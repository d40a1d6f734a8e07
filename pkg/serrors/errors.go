package serrors

import "errors"

// Base is a structured error with a stable machine-readable code. Services
// return these for every failure a caller is expected to branch on; transport
// layers map codes to status codes without string inspection.
type Base struct {
	Code    string
	Message string
	Details string
}

func (e *Base) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

func NewError(code, message, details string) *Base {
	return &Base{Code: code, Message: message, Details: details}
}

const (
	CodeAuthorizationDenied = "AUTHORIZATION_DENIED"
	CodeNotFound            = "NOT_FOUND"
	CodeValidation          = "VALIDATION_ERROR"
	CodeConflict            = "CONFLICT"
)

// AuthorizationDenied covers role/location mismatches on view, edit and
// transfer operations.
func AuthorizationDenied(reason string) *Base {
	return NewError(CodeAuthorizationDenied, "authorization denied", reason)
}

// NotFound covers absent units, items and rules referenced by id.
func NotFound(entity string) *Base {
	return NewError(CodeNotFound, "not found", entity)
}

// Validation covers malformed input: bad contract identifiers, missing
// mandatory columns, duplicate contract numbers.
func Validation(details string) *Base {
	return NewError(CodeValidation, "validation failed", details)
}

// Conflict covers document-number collisions; the caller must regenerate and
// retry, never overwrite.
func Conflict(details string) *Base {
	return NewError(CodeConflict, "conflict", details)
}

// CodeOf returns the structured code of err, or "" when err carries none.
func CodeOf(err error) string {
	var base *Base
	if errors.As(err, &base) {
		return base.Code
	}
	return ""
}

func IsCode(err error, code string) bool {
	return CodeOf(err) == code
}
