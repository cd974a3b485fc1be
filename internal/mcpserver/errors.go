// Package mcpserver dispatches MCP tool calls (search, get, list, related,
// explain, create_doc, update_doc, delete_doc) over stdio and HTTP
// transports, per §4.10-§4.11.
package mcpserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/mr-nozko/rag-mcp/internal/rerr"
)

// Standard JSON-RPC error codes, reused where no domain-specific code fits.
const (
	jsonRPCInvalidParams = -32602
	jsonRPCInternalError = -32603
)

// ToolError is the wire-level error every tool handler returns on failure,
// carrying a stable code derived from the rerr taxonomy (§7/§10.1).
type ToolError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("mcp error %d: %s", e.Code, e.Message)
}

// MapError converts any error surfacing from the retrieval pipeline into a
// ToolError. A *rerr.Error's own Code (already grouped by category per
// §10.1) is reused directly; anything else maps to a generic internal code.
func MapError(err error) *ToolError {
	if err == nil {
		return nil
	}
	var rErr *rerr.Error
	if errors.As(err, &rErr) {
		msg := rErr.Message
		if rErr.Suggestion != "" {
			msg = fmt.Sprintf("%s %s", msg, rErr.Suggestion)
		}
		return &ToolError{Code: rErr.Code, Message: msg}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &ToolError{Code: jsonRPCInternalError, Message: "request timed out or was canceled"}
	}
	return &ToolError{Code: jsonRPCInternalError, Message: err.Error()}
}

// invalidParams builds a ToolError for a schema violation, used directly by
// handlers before any rerr.Error exists (e.g. a missing required argument).
func invalidParams(format string, args ...any) *ToolError {
	return &ToolError{Code: jsonRPCInvalidParams, Message: fmt.Sprintf(format, args...)}
}
