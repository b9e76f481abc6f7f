package repository

import (
	"context"
	"time"

	"TaskNest/internal/modules/notification/domain/entity"
)

// NotificationRepository 通知账本持久化，所有查询都按接收者隔离
type NotificationRepository interface {
	Create(ctx context.Context, n *entity.Notification) error
	// ListByRecipient 按 created_at 倒序
	ListByRecipient(ctx context.Context, recipientID string, limit int) ([]entity.Notification, error)
	// GetByIDAndRecipient 不属于该接收者时返回 gorm.ErrRecordNotFound
	GetByIDAndRecipient(ctx context.Context, notificationID, recipientID string) (*entity.Notification, error)
	MarkRead(ctx context.Context, notificationID, recipientID string, at time.Time) (int64, error)
	MarkAllRead(ctx context.Context, recipientID string, at time.Time) (int64, error)
	CountUnread(ctx context.Context, recipientID string) (int64, error)
}

// GroupDirectory 群组成员来源，受众计算与订阅鉴权都以它为准
type GroupDirectory interface {
	// GetGroupAudience 群组不存在时返回 gorm.ErrRecordNotFound
	GetGroupAudience(ctx context.Context, groupID string) (*entity.GroupAudience, error)
	IsAcceptedMember(ctx context.Context, groupID, userID string) (bool, error)
}
