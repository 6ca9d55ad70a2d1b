package notifications

import (
	"context"

	"go.uber.org/zap"

	"github.com/Yashdhankecha/Milkat-post-sub001/domain"
)

// LogGateway writes codes to the log instead of sending them.
// Used when Twilio credentials are not configured.
type LogGateway struct {
	logger *zap.Logger
}

func NewLogGateway(logger *zap.Logger) *LogGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogGateway{logger: logger}
}

// SendOTP implements domain.MessagingGateway
func (g *LogGateway) SendOTP(ctx context.Context, phone, code string) error {
	g.logger.Info("[MOCK SMS] otp", zap.String("to", phone), zap.String("code", code))
	return nil
}

var _ domain.MessagingGateway = (*LogGateway)(nil)
