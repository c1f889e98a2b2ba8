package core

import (
	"time"

	"github.com/google/uuid"
)

// Event is one immutable transcript turn. After emission it must not be
// mutated; the conversation memory store is append-only.
type Event struct {
	ID        string    `json:"id"`
	TurnID    string    `json:"turn_id"` // Correlates all events of one inbound turn
	Author    string    `json:"author"`  // "user", agent name, tool name author
	Timestamp time.Time `json:"timestamp"`
	Content   *Content  `json:"content,omitempty"`
}

// NewEvent creates a bare event authored by author, bound to an inbound turn.
func NewEvent(turnID, author string) Event {
	return Event{
		ID:        NewID(),
		TurnID:    turnID,
		Author:    author,
		Timestamp: time.Now().UTC(),
	}
}

// NewUserMessageEvent creates a user-authored text turn.
func NewUserMessageEvent(turnID, message string) Event {
	e := NewEvent(turnID, "user")
	e.Content = &Content{Role: "user", Parts: []Part{TextPart{Text: message}}}
	return e
}

// NewAssistantEvent wraps a model response content as an assistant turn.
func NewAssistantEvent(turnID, author string, content Content) Event {
	e := NewEvent(turnID, author)
	e.Content = &content
	return e
}

// NewFunctionResponseEvent records the completion result (or error) of a tool
// invocation as a tool-role turn. A non-nil err is copied into the response's
// Error field so it flows back into the model context instead of failing the turn.
func NewFunctionResponseEvent(turnID, author, callID, name string, result any, err error) Event {
	e := NewEvent(turnID, author)
	fr := FunctionResponse{ID: callID, Name: name, Response: result}
	if err != nil {
		fr.Error = err.Error()
	}
	e.Content = &Content{Role: "tool", Parts: []Part{FunctionResponsePart{FunctionResponse: fr}}}
	return e
}

// NewID generates a unique identifier for events and turns.
func NewID() string { return uuid.NewString() }

// FunctionCalls returns any FunctionCall parts in original order.
func (e Event) FunctionCalls() []FunctionCall {
	if e.Content == nil {
		return nil
	}
	var calls []FunctionCall
	for _, p := range e.Content.Parts {
		if fc, ok := p.(FunctionCallPart); ok {
			calls = append(calls, fc.FunctionCall)
		}
	}
	return calls
}

// FunctionResponses returns any FunctionResponse parts in original order.
func (e Event) FunctionResponses() []FunctionResponse {
	if e.Content == nil {
		return nil
	}
	var responses []FunctionResponse
	for _, p := range e.Content.Parts {
		if fr, ok := p.(FunctionResponsePart); ok {
			responses = append(responses, fr.FunctionResponse)
		}
	}
	return responses
}

// IsFinalReply reports whether this event closes the turn: an assistant
// message with no pending tool calls or responses.
func (e Event) IsFinalReply() bool {
	return len(e.FunctionCalls()) == 0 && len(e.FunctionResponses()) == 0
}
