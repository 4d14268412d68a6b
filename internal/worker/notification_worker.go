package worker

import (
	"go.uber.org/zap"
)

// NotificationSubscriber attaches notification handlers to the event dispatcher.
type NotificationSubscriber interface {
	RegisterHandlers()
}

// StartNotificationWorker subscribes in-app notifications and broker
// forwarding to complaint and role request events. Handlers run inline after
// each committed change, so there is no goroutine to stop.
func StartNotificationWorker(subscriber NotificationSubscriber, logger *zap.Logger) {
	if subscriber == nil {
		return
	}
	subscriber.RegisterHandlers()
	if logger != nil {
		logger.Info("notification handlers registered")
	}
}
