package rerr

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatForCLI formats an error for terminal display: message, optional
// hint, and kind for reference.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	e, ok := err.(*Error)
	if !ok {
		e = Wrap(Internal, err)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Error: %s\n", e.Message))
	if e.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  Hint: %s\n", e.Suggestion))
	}
	sb.WriteString(fmt.Sprintf("  Kind: %s\n", e.Kind))
	return sb.String()
}

// jsonError is the wire representation used by FormatJSON and the audit log.
type jsonError struct {
	Kind       string            `json:"kind"`
	Code       int               `json:"code"`
	Category   string            `json:"category"`
	Severity   string            `json:"severity"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	Cause      string            `json:"cause,omitempty"`
	Retryable  bool              `json:"retryable"`
}

// FormatJSON returns the machine-readable representation of an error,
// suitable for the document_operations audit log and structured logging.
func FormatJSON(err error) ([]byte, error) {
	if err == nil {
		return json.Marshal(nil)
	}

	e, ok := err.(*Error)
	if !ok {
		e = Wrap(Internal, err)
	}

	je := jsonError{
		Kind:       string(e.Kind),
		Code:       e.Code,
		Category:   string(e.Category),
		Severity:   string(e.Severity),
		Message:    e.Message,
		Details:    e.Details,
		Suggestion: e.Suggestion,
		Retryable:  e.Retryable,
	}
	if e.Cause != nil {
		je.Cause = e.Cause.Error()
	}
	return json.Marshal(je)
}

// LogAttrs formats an error as slog-friendly key-value attributes.
func LogAttrs(err error) map[string]any {
	if err == nil {
		return nil
	}

	e, ok := err.(*Error)
	if !ok {
		return map[string]any{"error": err.Error()}
	}

	attrs := map[string]any{
		"error_kind": string(e.Kind),
		"category":   string(e.Category),
		"severity":   string(e.Severity),
		"message":    e.Message,
		"retryable":  e.Retryable,
	}
	if e.Cause != nil {
		attrs["cause"] = e.Cause.Error()
	}
	if e.Suggestion != "" {
		attrs["suggestion"] = e.Suggestion
	}
	for k, v := range e.Details {
		attrs["detail_"+k] = v
	}
	return attrs
}
