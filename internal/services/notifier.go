package services

import (
	"context"

	"github.com/anonto42/inkwell/backend/internal/models"
	"github.com/anonto42/inkwell/backend/internal/repositories"
	"go.uber.org/zap"
)

// Notifier records activity notifications. Delivery is best effort: a failure is logged and
// never fails the operation that triggered it.
type Notifier struct {
	repo repositories.NotificationRepository
	log  *zap.Logger
}

func NewNotifier(repo repositories.NotificationRepository, log *zap.Logger) *Notifier {
	return &Notifier{repo: repo, log: log}
}

// Notify stores n unless the actor is also the recipient
func (n *Notifier) Notify(ctx context.Context, notification *models.Notification) {
	if notification.RecipientID == "" || notification.RecipientID == notification.ActorID {
		return
	}
	if err := n.repo.CreateNotification(ctx, notification); err != nil {
		n.log.Warn("Failed to create notification",
			zap.String("type", notification.Type),
			zap.String("recipient", notification.RecipientID),
			zap.Error(err),
		)
	}
}
