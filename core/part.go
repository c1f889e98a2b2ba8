package core

import "encoding/json"

// Part is a polymorphic segment of role-based content. Concrete part types
// implement the unexported isPart marker enabling a closed set.
type Part interface{ isPart() }

// TextPart is a plain text content segment.
type TextPart struct {
	Text string
}

func (TextPart) isPart() {}

// FunctionCall describes a tool invocation request surfaced by the model.
type FunctionCall struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"` // Serialized JSON argument payload
}

// FunctionCallPart wraps a FunctionCall as a content part.
type FunctionCallPart struct {
	FunctionCall FunctionCall
}

func (FunctionCallPart) isPart() {}

// FunctionResponse describes the outcome of a function call. Response holds
// the successful result; Error is populated on failure so the model can see
// what went wrong and phrase a corrective reply.
type FunctionResponse struct {
	ID       string `json:"id,omitempty"` // Matches originating FunctionCall ID
	Name     string `json:"name"`
	Response any    `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}

// FunctionResponsePart wraps a FunctionResponse as a content part.
type FunctionResponsePart struct {
	FunctionResponse FunctionResponse
}

func (FunctionResponsePart) isPart() {}

// Content holds a conversation role plus ordered parts.
type Content struct {
	Role  string `json:"role,omitempty"` // user, assistant, tool, system
	Parts []Part `json:"parts"`
}

// partEnvelope is the tagged wire form used when (de)serializing the
// heterogeneous Parts slice, e.g. for durable transcript storage.
type partEnvelope struct {
	Type             string            `json:"type"`
	Text             string            `json:"text,omitempty"`
	FunctionCall     *FunctionCall     `json:"function_call,omitempty"`
	FunctionResponse *FunctionResponse `json:"function_response,omitempty"`
}

// MarshalJSON encodes Content with type-tagged parts so it can round-trip
// through a durable store.
func (c Content) MarshalJSON() ([]byte, error) {
	envs := make([]partEnvelope, 0, len(c.Parts))
	for _, p := range c.Parts {
		switch part := p.(type) {
		case TextPart:
			envs = append(envs, partEnvelope{Type: "text", Text: part.Text})
		case FunctionCallPart:
			fc := part.FunctionCall
			envs = append(envs, partEnvelope{Type: "function_call", FunctionCall: &fc})
		case FunctionResponsePart:
			fr := part.FunctionResponse
			envs = append(envs, partEnvelope{Type: "function_response", FunctionResponse: &fr})
		}
	}
	return json.Marshal(struct {
		Role  string         `json:"role,omitempty"`
		Parts []partEnvelope `json:"parts"`
	}{Role: c.Role, Parts: envs})
}

// UnmarshalJSON decodes the tagged wire form produced by MarshalJSON.
// Unknown part types are dropped rather than failing the whole turn.
func (c *Content) UnmarshalJSON(data []byte) error {
	var wire struct {
		Role  string         `json:"role"`
		Parts []partEnvelope `json:"parts"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	c.Role = wire.Role
	c.Parts = c.Parts[:0]
	for _, env := range wire.Parts {
		switch env.Type {
		case "text":
			c.Parts = append(c.Parts, TextPart{Text: env.Text})
		case "function_call":
			if env.FunctionCall != nil {
				c.Parts = append(c.Parts, FunctionCallPart{FunctionCall: *env.FunctionCall})
			}
		case "function_response":
			if env.FunctionResponse != nil {
				c.Parts = append(c.Parts, FunctionResponsePart{FunctionResponse: *env.FunctionResponse})
			}
		}
	}
	return nil
}

// Text concatenates all text parts in order.
func (c Content) Text() string {
	var out string
	for _, p := range c.Parts {
		if tp, ok := p.(TextPart); ok {
			out += tp.Text
		}
	}
	return out
}
