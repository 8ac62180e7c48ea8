package notifications

import (
	"context"
	"fmt"

	"github.com/nithinycr7/discipline-ai-health-prod-sub001/domain"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

// messageCreator is the slice of the Twilio REST API used here.
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioServiceImpl implements domain.NotificationService
type TwilioServiceImpl struct {
	api        messageCreator
	fromNumber string
	log        *zap.Logger
}

// NewTwilioService creates a new Twilio notification service. With an empty
// fromNumber messages are logged instead of sent.
func NewTwilioService(accountSID, authToken, fromNumber string, log *zap.Logger) *TwilioServiceImpl {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})

	return &TwilioServiceImpl{
		api:        client.Api,
		fromNumber: fromNumber,
		log:        log,
	}
}

// SendSMS implements domain.NotificationService
func (t *TwilioServiceImpl) SendSMS(ctx context.Context, to, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.fromNumber == "" {
		t.log.Info("sms delivery disabled, dropping message", zap.String("to", to), zap.Int("length", len(message)))
		return nil
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(t.fromNumber)
	params.SetBody(message)

	resp, err := t.api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("failed to send SMS: %w", err)
	}
	if resp != nil && resp.Sid != nil {
		t.log.Debug("sms sent", zap.String("sid", *resp.Sid))
	}
	return nil
}

// WelcomeMessage is sent to payers after their first registration.
func WelcomeMessage(name string) string {
	return fmt.Sprintf("Welcome to CoCare, %s! You will receive updates about your loved one here.", name)
}

var _ domain.NotificationService = (*TwilioServiceImpl)(nil)
