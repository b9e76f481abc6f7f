package persistence

import (
	"context"
	"time"

	"TaskNest/internal/modules/notification/domain/entity"
	"TaskNest/internal/modules/notification/domain/repository"

	"gorm.io/gorm"
)

type notificationRepositoryImpl struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) repository.NotificationRepository {
	return &notificationRepositoryImpl{db: db}
}

func (r *notificationRepositoryImpl) Create(ctx context.Context, n *entity.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *notificationRepositoryImpl) ListByRecipient(ctx context.Context, recipientID string, limit int) ([]entity.Notification, error) {
	var out []entity.Notification
	err := r.db.WithContext(ctx).
		Where("recipient_id = ?", recipientID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *notificationRepositoryImpl) GetByIDAndRecipient(ctx context.Context, notificationID, recipientID string) (*entity.Notification, error) {
	var n entity.Notification
	err := r.db.WithContext(ctx).
		Where("notification_id = ? AND recipient_id = ?", notificationID, recipientID).
		First(&n).Error
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// MarkRead 只更新未读行，已读行保持原样
func (r *notificationRepositoryImpl) MarkRead(ctx context.Context, notificationID, recipientID string, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&entity.Notification{}).
		Where("notification_id = ? AND recipient_id = ? AND is_read = ?", notificationID, recipientID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": at})
	return res.RowsAffected, res.Error
}

func (r *notificationRepositoryImpl) MarkAllRead(ctx context.Context, recipientID string, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&entity.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": at})
	return res.RowsAffected, res.Error
}

func (r *notificationRepositoryImpl) CountUnread(ctx context.Context, recipientID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&entity.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&n).Error
	return n, err
}
