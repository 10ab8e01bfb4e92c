package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	twilioclient "github.com/twilio/twilio-go/client"
	"github.com/twilio/twilio-go/twiml"
	"go.uber.org/zap"

	"github.com/chamatrack/chama-service/internal/service"
	apperrors "github.com/chamatrack/chama-service/pkg/util/errorutil"
)

const signatureHeader = "X-Twilio-Signature"

// SignatureValidator checks a provider signature over the request URL and form.
type SignatureValidator interface {
	Validate(url string, params map[string]string, expectedSignature string) bool
}

// WebhookHandler answers inbound WhatsApp messages with TwiML.
type WebhookHandler struct {
	inbound   *service.InboundService
	validator SignatureValidator
	publicURL string
	logger    *zap.Logger
}

// WebhookConfig controls signature validation. A nil validator accepts every request.
type WebhookConfig struct {
	Validator SignatureValidator
	// PublicURL is the externally visible webhook URL used for signing; when
	// empty the request URL is used.
	PublicURL string
}

// NewTwilioSignatureValidator returns a validator for the account auth token.
func NewTwilioSignatureValidator(authToken string) SignatureValidator {
	v := twilioclient.NewRequestValidator(authToken)
	return &v
}

// NewWebhookHandler constructs handler.
func NewWebhookHandler(inbound *service.InboundService, cfg WebhookConfig, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{inbound: inbound, validator: cfg.Validator, publicURL: cfg.PublicURL, logger: logger}
}

// WhatsApp handles POST /webhooks/whatsapp. Processing failures are answered
// with an apology at 200 so the provider does not retry.
func (h *WebhookHandler) WhatsApp(c *fiber.Ctx) error {
	if h.validator != nil && !h.validSignature(c) {
		return apperrors.NewForbidden("invalid webhook signature")
	}

	// Form values alias the pooled request buffer; the message ID ends up on the ledger.
	msg := service.InboundMessage{
		From:      utils.CopyString(c.FormValue("From")),
		Body:      utils.CopyString(c.FormValue("Body")),
		MessageID: utils.CopyString(c.FormValue("MessageSid")),
	}
	text := service.ReplyProcessingErr
	reply, err := h.inbound.Handle(c.UserContext(), msg)
	if err != nil {
		h.logger.Error("inbound message failed",
			zap.String("from", msg.From),
			zap.String("message_sid", msg.MessageID),
			zap.Error(err))
	} else {
		text = reply.Text
	}

	body, err := twiml.Messages([]twiml.Element{&twiml.MessagingMessage{Body: text}})
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	c.Set(fiber.HeaderContentType, "text/xml")
	return c.SendString(body)
}

func (h *WebhookHandler) validSignature(c *fiber.Ctx) bool {
	signature := c.Get(signatureHeader)
	if signature == "" {
		return false
	}
	params := map[string]string{}
	c.Request().PostArgs().VisitAll(func(key, value []byte) {
		params[string(key)] = string(value)
	})
	url := h.publicURL
	if url == "" {
		url = c.BaseURL() + c.OriginalURL()
	}
	return h.validator.Validate(url, params, signature)
}
