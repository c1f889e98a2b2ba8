// Package tool implements the function calling subsystem that lets the coach
// invoke structured capabilities (store writes, message delivery) with schema
// validated arguments and consistent error handling.
package tool

import (
	"fmt"

	"github.com/momentumhq/momentum/core"
	"github.com/momentumhq/momentum/internal/util"
)

// Error codes used across tool implementations. The reasoning loop surfaces
// these back into the transcript, so codes must be stable and descriptive.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeConflict   = "CONFLICT"
	CodeNotFound   = "NOT_FOUND"
	CodeDelivery   = "DELIVERY_ERROR"
	CodeExecution  = "EXECUTION_ERROR"
)

// Tool is a named, typed, validated operation exposed to the reasoning loop.
//
// Implementations should provide a clear description and a JSON schema for
// their parameters; both are shown to the model. Call receives arguments that
// have already passed schema validation when invoked through FunctionTool.
type Tool interface {
	// Name returns the unique identifier for this tool (snake_case).
	Name() string

	// Description returns a human-readable description shown to the model.
	Description() string

	// Parameters returns a JSON schema describing the expected arguments.
	Parameters() map[string]any

	// Call executes the tool.
	Call(toolCtx *core.ToolContext, args map[string]any) (any, error)
}

// ValidationError represents parameter validation failures.
type ValidationError = util.ValidationError

// ToolError is the uniform error shape surfaced by tool execution.
type ToolError struct {
	Tool    string `json:"tool"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{Tool: tool, Message: message, Code: code}
}
