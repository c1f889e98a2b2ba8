package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/momentumhq/momentum/logging"
)

// TwilioOptions configure the Twilio WhatsApp sender.
type TwilioOptions struct {
	AccountSID string
	AuthToken  string
	FromNumber string // WhatsApp sender number, with or without the whatsapp: prefix
	Logger     logging.Logger
}

// TwilioSender delivers messages over the Twilio WhatsApp channel. A failed
// send is retried once before surfacing a *DeliveryError.
type TwilioSender struct {
	client *twilio.RestClient
	from   string
	logger logging.Logger
}

// NewTwilioSender constructs a sender from account credentials.
func NewTwilioSender(opts TwilioOptions) *TwilioSender {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: opts.AccountSID,
		Password: opts.AuthToken,
	})
	return &TwilioSender{client: client, from: whatsappAddress(opts.FromNumber), logger: logger}
}

// Send delivers a plain text WhatsApp message.
func (s *TwilioSender) Send(ctx context.Context, address, body string) (*Receipt, error) {
	params := &twilioapi.CreateMessageParams{}
	params.SetFrom(s.from)
	params.SetTo(whatsappAddress(address))
	params.SetBody(body)
	return s.create(ctx, address, params)
}

// SendFlow delivers an interactive WhatsApp Flow by content sid, with the
// prompt as the call-to-action text.
func (s *TwilioSender) SendFlow(ctx context.Context, address, flowID, prompt string) (*Receipt, error) {
	if flowID == "" {
		return nil, &DeliveryError{Address: address, Cause: fmt.Errorf("no flow id configured")}
	}
	if prompt == "" {
		prompt = "Submit Proof"
	}
	variables, err := json.Marshal(map[string]string{"cta_text": prompt})
	if err != nil {
		return nil, &DeliveryError{Address: address, Cause: err}
	}

	params := &twilioapi.CreateMessageParams{}
	params.SetFrom(s.from)
	params.SetTo(whatsappAddress(address))
	params.SetContentSid(flowID)
	params.SetContentVariables(string(variables))
	return s.create(ctx, address, params)
}

// create performs the API call with a single retry on failure.
func (s *TwilioSender) create(ctx context.Context, address string, params *twilioapi.CreateMessageParams) (*Receipt, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, &DeliveryError{Address: address, Cause: err}
		}
		msg, err := s.client.Api.CreateMessage(params)
		if err == nil {
			sid := ""
			if msg.Sid != nil {
				sid = *msg.Sid
			}
			s.logger.Info("messaging.sent", "address", address, "message_id", sid, "attempt", attempt+1)
			return &Receipt{MessageID: sid, Address: address}, nil
		}
		lastErr = err
		s.logger.Warn("messaging.send_failed", "address", address, "attempt", attempt+1, "error", err.Error())
	}
	return nil, &DeliveryError{Address: address, Cause: lastErr}
}

// whatsappAddress normalizes a number to the whatsapp: addressing scheme.
func whatsappAddress(number string) string {
	if strings.HasPrefix(number, "whatsapp:") {
		return number
	}
	return "whatsapp:" + number
}
