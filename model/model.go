// Package model defines the provider-neutral language model contract consumed
// by the reasoning loop, plus a scripted in-memory implementation for tests.
package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/momentumhq/momentum/core"
)

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual function (tool) exposed to the
// model. Parameters is a minimal JSON Schema object.
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request captures the normalized model input produced by the reasoning loop.
type Request struct {
	Instructions string           `json:"instructions"` // Stage system instructions
	Contents     []core.Content   `json:"contents"`     // Transcript replay
	Tools        []ToolDefinition `json:"tools,omitempty"`
	Stream       bool             `json:"stream,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a (partial or final) chunk emitted by a model.
type Response struct {
	ID           string       `json:"id"`
	Partial      bool         `json:"partial"`
	Content      core.Content `json:"content"`
	FinishReason string       `json:"finish_reason"` // "stop", "length", "tool_calls", ...
	Usage        *TokenUsage  `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "scripted", ...
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required to drive generation.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// ScriptedModel is an in-memory Model that replays a fixed sequence of
// responses, one per Generate call. It lets tests drive the reasoning loop
// through exact tool-call decision sequences without a live provider.
type ScriptedModel struct {
	mu       sync.Mutex
	info     Info
	script   []Response
	pos      int
	requests []Request
}

// NewScriptedModel constructs a ScriptedModel with tool support enabled.
func NewScriptedModel(name string) *ScriptedModel {
	return &ScriptedModel{info: Info{Name: name, Provider: "scripted", SupportsTools: true}}
}

// EnqueueReply scripts a plain assistant text reply.
func (m *ScriptedModel) EnqueueReply(text string) {
	m.enqueue(Response{
		Content:      core.Content{Role: "assistant", Parts: []core.Part{core.TextPart{Text: text}}},
		FinishReason: "stop",
	})
}

// EnqueueToolCall scripts an assistant turn requesting a single tool call.
func (m *ScriptedModel) EnqueueToolCall(callID, name, arguments string) {
	m.enqueue(Response{
		Content: core.Content{Role: "assistant", Parts: []core.Part{
			core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: callID, Name: name, Arguments: arguments}},
		}},
		FinishReason: "tool_calls",
	})
}

// EnqueueResponse scripts an arbitrary response.
func (m *ScriptedModel) EnqueueResponse(resp Response) { m.enqueue(resp) }

func (m *ScriptedModel) enqueue(resp Response) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, resp)
}

// Requests returns the requests seen so far, in order.
func (m *ScriptedModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Generate implements Model; it emits the next scripted response or an error
// once the script is exhausted.
func (m *ScriptedModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 1)
	errCh := make(chan error, 1)

	m.mu.Lock()
	m.requests = append(m.requests, req)
	var resp Response
	var err error
	if m.pos < len(m.script) {
		resp = m.script[m.pos]
		m.pos++
	} else {
		err = fmt.Errorf("scripted model: no response scripted for call %d", m.pos+1)
	}
	m.mu.Unlock()

	go func() {
		defer close(respCh)
		defer close(errCh)
		if err != nil {
			errCh <- err
			return
		}
		select {
		case <-ctx.Done():
			errCh <- ctx.Err()
		case respCh <- resp:
		}
	}()
	return respCh, errCh
}

// Info implements Model.
func (m *ScriptedModel) Info() Info { return m.info }
