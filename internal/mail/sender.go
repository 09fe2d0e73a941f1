// Package mail delivers one-time verification codes to account emails.
package mail

import (
	"context"

	"go.uber.org/zap"
)

// Sender dispatches a verification code. A nil error means the message was
// accepted for delivery.
type Sender interface {
	Send(ctx context.Context, recipient, code string) error
}

// LogSender writes codes to the log instead of mailing them. Development only.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender builds a LogSender.
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, recipient, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.logger.Warn("otp issued (debug sender)", zap.String("email", recipient), zap.String("code", code))
	return nil
}
