package mail

import (
	"context"
	"fmt"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

const otpSubject = "Your verification code"

// sendgridClient is the subset of *sendgrid.Client used here.
type sendgridClient interface {
	SendWithContext(ctx context.Context, email *sgmail.SGMailV3) (*rest.Response, error)
}

// SendGridSender delivers codes through the SendGrid v3 API.
type SendGridSender struct {
	client   sendgridClient
	fromName string
	fromAddr string
	logger   *zap.Logger
}

// NewSendGridSender builds a sender for the given API key and from address.
func NewSendGridSender(apiKey, fromName, fromAddr string, logger *zap.Logger) *SendGridSender {
	return &SendGridSender{
		client:   sendgrid.NewSendClient(apiKey),
		fromName: fromName,
		fromAddr: fromAddr,
		logger:   logger,
	}
}

func (s *SendGridSender) Send(ctx context.Context, recipient, code string) error {
	from := sgmail.NewEmail(s.fromName, s.fromAddr)
	to := sgmail.NewEmail("", recipient)
	plain := fmt.Sprintf("Your verification code is: %s", code)
	html := fmt.Sprintf("<p>Your verification code is: <strong>%s</strong></p>", code)

	message := sgmail.NewSingleEmail(from, otpSubject, to, plain, html)
	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid rejected message: status %d", resp.StatusCode)
	}
	s.logger.Debug("otp email accepted", zap.String("email", recipient), zap.Int("status", resp.StatusCode))
	return nil
}
