package errors

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatForCLI formats an error for CLI output.
// Uses a concise format suitable for terminal display.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	te, ok := err.(*TwilogError)
	if !ok {
		te = Wrap(KindProtocolError, err)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Error: %s\n", te.Message))
	sb.WriteString(fmt.Sprintf("  Kind: %s\n", te.Kind))

	return sb.String()
}

// jsonError is the JSON representation of an error.
type jsonError struct {
	Kind     string            `json:"kind"`
	Message  string            `json:"message"`
	Category string            `json:"category"`
	Severity string            `json:"severity"`
	Details  map[string]string `json:"details,omitempty"`
	Cause    string            `json:"cause,omitempty"`
}

// FormatJSON returns a JSON representation of the error.
// Suitable for machine consumption and structured logging.
func FormatJSON(err error) ([]byte, error) {
	if err == nil {
		return json.Marshal(nil)
	}

	te, ok := err.(*TwilogError)
	if !ok {
		te = Wrap(KindProtocolError, err)
	}

	je := jsonError{
		Kind:     string(te.Kind),
		Message:  te.Message,
		Category: string(te.Category),
		Severity: string(te.Severity),
		Details:  te.Details,
	}
	if te.Cause != nil {
		je.Cause = te.Cause.Error()
	}

	return json.Marshal(je)
}

// FormatForLog formats an error for structured logging.
// Returns key-value pairs suitable for slog attributes.
func FormatForLog(err error) map[string]any {
	if err == nil {
		return nil
	}

	te, ok := err.(*TwilogError)
	if !ok {
		return map[string]any{"error": err.Error()}
	}

	result := map[string]any{
		"error_kind": string(te.Kind),
		"message":    te.Message,
		"category":   string(te.Category),
		"severity":   string(te.Severity),
	}
	if te.Cause != nil {
		result["cause"] = te.Cause.Error()
	}
	for k, v := range te.Details {
		result["detail_"+k] = v
	}

	return result
}
