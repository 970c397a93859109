package notify

import (
	"context"
	"errors"
	"fmt"

	"sparkvision/internal/config"
	"sparkvision/internal/logger"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// ErrNotConfigured is returned when SMS is requested without Twilio settings.
var ErrNotConfigured = errors.New("twilio is not configured")

// messageCreator is the part of the Twilio API the notifier uses.
type messageCreator interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// SMSNotifier sends alert text messages through Twilio.
type SMSNotifier struct {
	api    messageCreator
	from   string
	to     string
	logger *logger.Logger
}

// NewSMSNotifier creates a notifier from the Twilio settings.
func NewSMSNotifier(cfg config.TwilioConfig, logger *logger.Logger) (*SMSNotifier, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})

	return newSMSNotifier(client.Api, cfg.From, cfg.To, logger), nil
}

func newSMSNotifier(api messageCreator, from, to string, logger *logger.Logger) *SMSNotifier {
	return &SMSNotifier{api: api, from: from, to: to, logger: logger}
}

// Send delivers body to the configured destination number and returns the
// Twilio message SID.
func (n *SMSNotifier) Send(ctx context.Context, body string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	params := &openapi.CreateMessageParams{}
	params.SetTo(n.to)
	params.SetFrom(n.from)
	params.SetBody(body)

	resp, err := n.api.CreateMessage(params)
	if err != nil {
		return "", fmt.Errorf("failed to send SMS: %w", err)
	}

	sid := ""
	if resp != nil && resp.Sid != nil {
		sid = *resp.Sid
	}
	n.logger.Info("📱 SMS sent: %s", sid)
	return sid, nil
}
