package notifications

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/twilio/twilio-go"
	twclient "github.com/twilio/twilio-go/client"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"

	"github.com/Yashdhankecha/Milkat-post-sub001/domain"
	"github.com/Yashdhankecha/Milkat-post-sub001/internal/logging"
)

// messageSender is the slice of the Twilio REST API the gateway uses
type messageSender interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioGateway implements domain.MessagingGateway over Twilio SMS
type TwilioGateway struct {
	api        messageSender
	fromNumber string
	logger     *zap.Logger
}

// NewTwilioGateway creates a Twilio backed gateway
func NewTwilioGateway(accountSID, authToken, fromNumber string, logger *zap.Logger) *TwilioGateway {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return newTwilioGateway(client.Api, fromNumber, logger)
}

func newTwilioGateway(api messageSender, fromNumber string, logger *zap.Logger) *TwilioGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TwilioGateway{api: api, fromNumber: fromNumber, logger: logger}
}

// SendOTP implements domain.MessagingGateway
func (t *TwilioGateway) SendOTP(ctx context.Context, phone, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(phone)
	params.SetFrom(t.fromNumber)
	params.SetBody(otpMessage(code))

	msg, err := t.api.CreateMessage(params)
	if err != nil {
		err = classifyTwilioError(err)
		t.logger.Warn("otp sms failed",
			zap.String("phone", logging.MaskPhone(phone)),
			zap.Bool("transient", errors.Is(err, domain.ErrTransientFailure)),
			zap.Error(err))
		return err
	}
	if msg != nil && msg.Sid != nil {
		t.logger.Info("otp sms sent", zap.String("phone", logging.MaskPhone(phone)), zap.String("sid", *msg.Sid))
	}
	return nil
}

func otpMessage(code string) string {
	return fmt.Sprintf("Your Milkat verification code is %s. Do not share it with anyone.", code)
}

// classifyTwilioError marks throttling, server side and network failures as transient
func classifyTwilioError(err error) error {
	var restErr *twclient.TwilioRestError
	if errors.As(err, &restErr) {
		if restErr.Status == http.StatusTooManyRequests || restErr.Status >= http.StatusInternalServerError {
			return fmt.Errorf("%w: twilio status %d: %s", domain.ErrTransientFailure, restErr.Status, restErr.Message)
		}
		return fmt.Errorf("twilio rejected message (code %d): %s", restErr.Code, restErr.Message)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", domain.ErrTransientFailure, err)
	}
	return fmt.Errorf("failed to send SMS: %w", err)
}

var _ domain.MessagingGateway = (*TwilioGateway)(nil)
