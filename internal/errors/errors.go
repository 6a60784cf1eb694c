package errors

import (
	"fmt"
)

// TwilogError is the structured error type for twilogd. It provides rich
// context for RPC error mapping, logging, and CLI presentation.
type TwilogError struct {
	// Kind is the stable error-kind used for JSON-RPC code mapping.
	Kind Kind

	// Message is the human-readable error message.
	Message string

	// Category classifies the error for logging.
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error
}

// Error implements the error interface.
func (e *TwilogError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *TwilogError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by kind, so that
// errors.Is() works with TwilogError.
func (e *TwilogError) Is(target error) bool {
	if t, ok := target.(*TwilogError); ok {
		return e.Kind == t.Kind
	}
	return false
}

// WithDetail adds a key-value detail to the error. Returns the error for
// method chaining.
func (e *TwilogError) WithDetail(key, value string) *TwilogError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a new TwilogError of the given kind.
// Category and severity are derived from the kind.
func New(kind Kind, message string, cause error) *TwilogError {
	return &TwilogError{
		Kind:     kind,
		Message:  message,
		Category: categoryForKind(kind),
		Severity: severityForKind(kind),
		Cause:    cause,
	}
}

// Wrap creates a TwilogError from an existing error, keeping its message.
func Wrap(kind Kind, err error) *TwilogError {
	if err == nil {
		return nil
	}
	return New(kind, err.Error(), err)
}

// ProtocolError creates a malformed-frame / unknown-method error.
func ProtocolError(message string, cause error) *TwilogError {
	return New(KindProtocolError, message, cause)
}

// InvalidParams creates an error for a method's params failing to
// unmarshal into its expected shape.
func InvalidParams(message string, cause error) *TwilogError {
	return New(KindInvalidParams, message, cause)
}

// NotReady creates an initialisation-incomplete error.
func NotReady(message string) *TwilogError {
	return New(KindNotReady, message, nil)
}

// InvalidQuery creates an empty-query or missing-vector-part error.
func InvalidQuery(message string) *TwilogError {
	return New(KindInvalidQuery, message, nil)
}

// ModeUnavailable creates an error for a scoring mode whose backing store
// is absent.
func ModeUnavailable(mode string) *TwilogError {
	return New(KindModeUnavailable, fmt.Sprintf("mode %q is unavailable: required vector store is not loaded", mode), nil).
		WithDetail("mode", mode)
}

// HybridNotSupportedForTextOnly creates an error for a fusion mode combined
// with a text-only query.
func HybridNotSupportedForTextOnly(mode string) *TwilogError {
	return New(KindHybridNotSupportedForTextOnly, fmt.Sprintf("mode %q requires a non-empty vector-query part", mode), nil).
		WithDetail("mode", mode)
}

// ValueOutOfRange creates an error for a top_k/limit/weights value outside
// its allowed bounds.
func ValueOutOfRange(field string, message string) *TwilogError {
	return New(KindValueOutOfRange, message, nil).WithDetail("field", field)
}

// CorruptStore creates a fatal load-time error (duplicate id, shape
// mismatch, missing metadata).
func CorruptStore(message string, cause error) *TwilogError {
	return New(KindCorruptStore, message, cause)
}

// IsFatal reports whether an error has fatal severity.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if te, ok := err.(*TwilogError); ok {
		return te.Severity == SeverityFatal
	}
	return false
}

// GetKind extracts the Kind from a TwilogError, or "" if err is not one.
func GetKind(err error) Kind {
	if te, ok := err.(*TwilogError); ok {
		return te.Kind
	}
	return ""
}

// GetCategory extracts the Category from a TwilogError, or "" if err is not one.
func GetCategory(err error) Category {
	if te, ok := err.(*TwilogError); ok {
		return te.Category
	}
	return ""
}
