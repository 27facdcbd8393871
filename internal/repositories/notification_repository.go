package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/anonto42/inkwell/backend/internal/apperrors"
	"github.com/anonto42/inkwell/backend/internal/models"
	"gorm.io/gorm"
)

// NotificationRepository defines the interface for notification operations
type NotificationRepository interface {
	CreateNotification(ctx context.Context, notification *models.Notification) error
	GetByRecipientID(ctx context.Context, recipientID string, page, limit int) ([]models.Notification, int64, error)
	GetUnreadCount(ctx context.Context, recipientID string) (int64, error)
	MarkAsRead(ctx context.Context, notificationID uint, recipientID string) error
	MarkAllAsRead(ctx context.Context, recipientID string) error
}

type postgresNotificationRepository struct {
	db *gorm.DB
}

func NewPostgresNotificationRepository(db *gorm.DB) NotificationRepository {
	return &postgresNotificationRepository{db: db}
}

func (r *postgresNotificationRepository) CreateNotification(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *postgresNotificationRepository) GetByRecipientID(ctx context.Context, recipientID string, page, limit int) ([]models.Notification, int64, error) {
	var notifications []models.Notification
	var total int64

	db := r.db.WithContext(ctx)
	if err := db.Model(&models.Notification{}).Where("recipient_id = ?", recipientID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}

	offset := (page - 1) * limit
	err := db.Where("recipient_id = ?", recipientID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&notifications).Error

	return notifications, total, err
}

func (r *postgresNotificationRepository) GetUnreadCount(ctx context.Context, recipientID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Notification{}).Where("recipient_id = ? AND seen = false", recipientID).Count(&count).Error
	return count, err
}

// MarkAsRead marks one notification as seen; only its recipient may do so
func (r *postgresNotificationRepository) MarkAsRead(ctx context.Context, notificationID uint, recipientID string) error {
	var notification models.Notification
	if err := r.db.WithContext(ctx).First(&notification, notificationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("Notification not found")
		}
		return fmt.Errorf("find notification: %w", err)
	}
	if notification.RecipientID != recipientID {
		return apperrors.Forbidden("Not authorized to update this notification.")
	}
	return r.db.WithContext(ctx).Model(&notification).Update("seen", true).Error
}

func (r *postgresNotificationRepository) MarkAllAsRead(ctx context.Context, recipientID string) error {
	return r.db.WithContext(ctx).Model(&models.Notification{}).Where("recipient_id = ? AND seen = false", recipientID).Update("seen", true).Error
}

// nopNotificationRepository stands in when PostgreSQL is not configured
type nopNotificationRepository struct{}

// NewNopNotificationRepository returns a repository that stores nothing and returns empty results
func NewNopNotificationRepository() NotificationRepository {
	return nopNotificationRepository{}
}

func (nopNotificationRepository) CreateNotification(context.Context, *models.Notification) error {
	return nil
}

func (nopNotificationRepository) GetByRecipientID(context.Context, string, int, int) ([]models.Notification, int64, error) {
	return []models.Notification{}, 0, nil
}

func (nopNotificationRepository) GetUnreadCount(context.Context, string) (int64, error) {
	return 0, nil
}

func (nopNotificationRepository) MarkAsRead(context.Context, uint, string) error {
	return apperrors.NotFound("Notification not found")
}

func (nopNotificationRepository) MarkAllAsRead(context.Context, string) error {
	return nil
}
