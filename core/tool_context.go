package core

import (
	"context"

	"github.com/momentumhq/momentum/logging"
)

// ToolContext is handed to every tool invocation. It carries the request
// context for cancellation, a structured logger and the function call id
// correlating the model's request with the execution result.
type ToolContext struct {
	ctx            context.Context
	logger         logging.Logger
	functionCallID string
}

// NewToolContext constructs a ToolContext for a single function call.
func NewToolContext(ctx context.Context, logger logging.Logger, functionCallID string) *ToolContext {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &ToolContext{ctx: ctx, logger: logger, functionCallID: functionCallID}
}

// Context returns the request-scoped context for blocking operations.
func (tc *ToolContext) Context() context.Context { return tc.ctx }

// Logger returns the structured logger.
func (tc *ToolContext) Logger() logging.Logger { return tc.logger }

// FunctionCallID returns the id of the originating model function call.
func (tc *ToolContext) FunctionCallID() string { return tc.functionCallID }
