package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/advisory-service/internal/events"
)

// NotificationService writes an audit trail for account events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger.Named("audit"),
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventUserRegistered, n.handleUserRegistered)
	n.dispatcher.Subscribe(events.EventUserVerified, n.handleUserVerified)
	n.dispatcher.Subscribe(events.EventUserLoggedIn, n.handleUserLoggedIn)
}

func (n *NotificationService) handleUserRegistered(_ context.Context, event events.Event) error {
	fields := n.baseFields(event)
	if p, ok := event.Payload.(events.UserRegisteredPayload); ok {
		fields = append(fields,
			zap.String("email", p.Email),
			zap.String("role", p.Role),
			zap.Bool("resumed", p.Resumed),
			zap.Time("otp_expires", p.OTPExpires))
	}
	n.logger.Info("UserRegistered", fields...)
	return nil
}

func (n *NotificationService) handleUserVerified(_ context.Context, event events.Event) error {
	fields := n.baseFields(event)
	if p, ok := event.Payload.(events.UserVerifiedPayload); ok {
		fields = append(fields, zap.String("email", p.Email))
	}
	n.logger.Info("UserVerified", fields...)
	return nil
}

func (n *NotificationService) handleUserLoggedIn(_ context.Context, event events.Event) error {
	fields := n.baseFields(event)
	if p, ok := event.Payload.(events.UserLoggedInPayload); ok {
		fields = append(fields, zap.String("email", p.Email))
	}
	n.logger.Info("UserLoggedIn", fields...)
	return nil
}

func (n *NotificationService) baseFields(event events.Event) []zap.Field {
	return []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("user_id", event.UserID),
		zap.Time("at", event.Timestamp),
	}
}
