package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"TaskNest/internal/modules/notification/application/dto/respond"
	"TaskNest/internal/modules/notification/domain/entity"
	"TaskNest/internal/modules/notification/domain/repository"
	"TaskNest/pkg/util"
	"TaskNest/pkg/xerr"
	"TaskNest/pkg/zlog"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UnreadCounter 未读数缓存，实现方需保证 Redis 不可用时不报错。
// Get 未命中时返回当前版本号，Set 只写入该版本；Invalidate 推进版本，
// 因此查库期间发生的失效不会被旧计数覆盖。版本号为负表示不可缓存。
type UnreadCounter interface {
	Get(ctx context.Context, userID string) (n int64, version int64, ok bool)
	Set(ctx context.Context, userID string, version int64, n int64)
	Invalidate(ctx context.Context, userID string)
}

type CreateInput struct {
	RecipientId    string
	ActorId        string
	Kind           entity.Kind
	Message        string
	RelatedGroupId string
	RelatedTodoId  string
	Payload        map[string]interface{}
}

type LedgerService interface {
	Create(ctx context.Context, in CreateInput) (*entity.Notification, error)
	ListForUser(ctx context.Context, userID string, limit int) ([]respond.NotificationItem, error)
	MarkRead(ctx context.Context, notificationID, userID string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
}

type LedgerOptions struct {
	DefaultLimit int
	MaxLimit     int
}

type ledgerServiceImpl struct {
	repo  repository.NotificationRepository
	cache UnreadCounter
	opts  LedgerOptions
	clock *monotonicClock
}

func NewLedgerService(repo repository.NotificationRepository, cache UnreadCounter, opts LedgerOptions) LedgerService {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 50
	}
	if opts.MaxLimit < opts.DefaultLimit {
		opts.MaxLimit = opts.DefaultLimit
	}
	return &ledgerServiceImpl{
		repo:  repo,
		cache: cache,
		opts:  opts,
		clock: newMonotonicClock(time.Now),
	}
}

func (s *ledgerServiceImpl) Create(ctx context.Context, in CreateInput) (*entity.Notification, error) {
	if in.RecipientId == "" || !in.Kind.Valid() || in.Message == "" {
		return nil, xerr.ErrParam
	}

	var payload datatypes.JSON
	if len(in.Payload) > 0 {
		raw, err := json.Marshal(in.Payload)
		if err != nil {
			return nil, xerr.ErrParam
		}
		payload = raw
	}

	n := &entity.Notification{
		NotificationId: util.GenerateNotificationID(),
		RecipientId:    in.RecipientId,
		ActorId:        in.ActorId,
		Kind:           in.Kind,
		Message:        in.Message,
		RelatedGroupId: in.RelatedGroupId,
		RelatedTodoId:  in.RelatedTodoId,
		Payload:        payload,
		IsRead:         false,
		CreatedAt:      s.clock.Next(),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		ledgerWritesTotal.WithLabelValues("failed").Inc()
		return nil, err
	}
	ledgerWritesTotal.WithLabelValues("ok").Inc()
	s.invalidate(ctx, in.RecipientId)
	return n, nil
}

func (s *ledgerServiceImpl) ListForUser(ctx context.Context, userID string, limit int) ([]respond.NotificationItem, error) {
	if userID == "" {
		return nil, xerr.ErrParam
	}
	if limit <= 0 {
		limit = s.opts.DefaultLimit
	}
	if limit > s.opts.MaxLimit {
		limit = s.opts.MaxLimit
	}

	rows, err := s.repo.ListByRecipient(ctx, userID, limit)
	if err != nil {
		zlog.Error(err.Error())
		return nil, xerr.ErrServerError
	}
	items := make([]respond.NotificationItem, 0, len(rows))
	for i := range rows {
		items = append(items, toItem(&rows[i]))
	}
	return items, nil
}

func (s *ledgerServiceImpl) MarkRead(ctx context.Context, notificationID, userID string) error {
	if notificationID == "" || userID == "" {
		return xerr.ErrParam
	}
	n, err := s.repo.GetByIDAndRecipient(ctx, notificationID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return xerr.New(xerr.NotFound, "通知不存在")
		}
		zlog.Error(err.Error())
		return xerr.ErrServerError
	}
	if n.IsRead {
		return nil
	}
	if _, err := s.repo.MarkRead(ctx, notificationID, userID, time.Now()); err != nil {
		zlog.Error(err.Error())
		return xerr.ErrServerError
	}
	s.invalidate(ctx, userID)
	return nil
}

// MarkAllRead 没有未读时返回 0，不视为错误
func (s *ledgerServiceImpl) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, xerr.ErrParam
	}
	affected, err := s.repo.MarkAllRead(ctx, userID, time.Now())
	if err != nil {
		zlog.Error(err.Error())
		return 0, xerr.ErrServerError
	}
	s.invalidate(ctx, userID)
	return affected, nil
}

func (s *ledgerServiceImpl) UnreadCount(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, xerr.ErrParam
	}
	version := int64(-1)
	if s.cache != nil {
		n, v, ok := s.cache.Get(ctx, userID)
		if ok {
			return n, nil
		}
		version = v
	}
	n, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		zlog.Error(err.Error())
		return 0, xerr.ErrServerError
	}
	if s.cache != nil && version >= 0 {
		s.cache.Set(ctx, userID, version, n)
	}
	return n, nil
}

func (s *ledgerServiceImpl) invalidate(ctx context.Context, userID string) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, userID)
	}
}

func toItem(n *entity.Notification) respond.NotificationItem {
	item := respond.NotificationItem{
		NotificationId: n.NotificationId,
		Kind:           string(n.Kind),
		Message:        n.Message,
		ActorId:        n.ActorId,
		GroupId:        n.RelatedGroupId,
		TodoId:         n.RelatedTodoId,
		Read:           n.IsRead,
		CreatedAt:      n.CreatedAt.Format(time.RFC3339Nano),
	}
	if n.ReadAt != nil {
		item.ReadAt = n.ReadAt.Format(time.RFC3339Nano)
	}
	if len(n.Payload) > 0 {
		var p map[string]interface{}
		if err := json.Unmarshal(n.Payload, &p); err != nil {
			zlog.Warn("notification payload decode failed", zap.String("notification_id", n.NotificationId), zap.Error(err))
		} else {
			item.Payload = p
			if by, ok := p["performedBy"].(map[string]interface{}); ok {
				item.ActorName, _ = by["username"].(string)
			}
			item.GroupName, _ = p["groupName"].(string)
		}
	}
	return item
}

// monotonicClock 保证同一进程内写入的 created_at 严格递增（微秒精度）
type monotonicClock struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

func newMonotonicClock(now func() time.Time) *monotonicClock {
	return &monotonicClock{now: now}
}

func (c *monotonicClock) Next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now().Truncate(time.Microsecond)
	if !t.After(c.last) {
		t = c.last.Add(time.Microsecond)
	}
	c.last = t
	return t
}
