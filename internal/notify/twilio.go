package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"

	"github.com/chamatrack/chama-service/internal/config"
)

const whatsappPrefix = "whatsapp:"

// messageCreator is the slice of the Twilio REST client used here.
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioChannel sends WhatsApp messages through the Twilio REST API.
type TwilioChannel struct {
	api    messageCreator
	from   string
	logger *zap.Logger
}

// NewTwilioChannel builds a channel from credentials.
func NewTwilioChannel(cfg config.TwilioConfig, logger *zap.Logger) *TwilioChannel {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &TwilioChannel{api: client.Api, from: WhatsAppAddress(cfg.WhatsAppNumber), logger: logger}
}

func (c *TwilioChannel) Send(ctx context.Context, to, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(WhatsAppAddress(to))
	params.SetFrom(c.from)
	params.SetBody(body)

	resp, err := c.api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("twilio create message: %w", err)
	}
	if resp != nil && resp.Sid != nil {
		c.logger.Debug("twilio message accepted", zap.String("phone", to), zap.String("sid", *resp.Sid))
	}
	return nil
}

// WhatsAppAddress prefixes a phone number with the WhatsApp channel scheme.
func WhatsAppAddress(phone string) string {
	if strings.HasPrefix(phone, whatsappPrefix) {
		return phone
	}
	return whatsappPrefix + phone
}
