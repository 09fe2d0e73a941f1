package worker

import (
	"github.com/spec-kit/advisory-service/internal/service"
)

// StartNotificationWorker subscribes the audit trail to account events.
// Handlers run synchronously on the publishing request.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
