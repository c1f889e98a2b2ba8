// Package messaging defines the outbound delivery adapter: a Sender that
// transports text and interactive form (flow) messages to an external
// address, with a Twilio WhatsApp implementation and a recording fake.
package messaging

import "context"

// Receipt confirms an accepted delivery.
type Receipt struct {
	MessageID string `json:"message_id"` // Provider-assigned id (e.g. Twilio SID)
	Address   string `json:"address"`
}

// DeliveryError signals a transport-level send failure.
type DeliveryError struct {
	Address string
	Cause   error
}

func (e *DeliveryError) Error() string {
	return "delivery failed for " + e.Address + ": " + e.Cause.Error()
}

func (e *DeliveryError) Unwrap() error { return e.Cause }

// Sender delivers outbound messages. Send failures surface as *DeliveryError;
// the side effect is externally visible and not reversible.
type Sender interface {
	// Send delivers a plain text message to address.
	Send(ctx context.Context, address, body string) (*Receipt, error)

	// SendFlow delivers a structured interactive form reference (e.g. a
	// WhatsApp Flow for proof submission) with an optional call-to-action
	// prompt.
	SendFlow(ctx context.Context, address, flowID, prompt string) (*Receipt, error)
}
