package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"TaskNest/internal/modules/notification/domain/compose"
	"TaskNest/internal/modules/notification/domain/repository"
	"TaskNest/internal/modules/notification/infrastructure/mq"
	"TaskNest/pkg/xerr"
	"TaskNest/pkg/zlog"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Pusher 实时推送通道，由 ws.Hub 实现。返回 false 表示未送达，不是错误
type Pusher interface {
	PushToUserOutside(userID, topicID, event string, data map[string]interface{}) bool
	PushToTopic(topicID, event string, data map[string]interface{}, excludeUserID string) bool
}

// ActivitySink 活动流导出，未配置消息队列时为 nil
type ActivitySink interface {
	PublishActivity(ctx context.Context, act mq.Activity) error
}

// DeliveryReport 一次投递的结果统计，仅用于日志与测试
type DeliveryReport struct {
	Recipients  int
	Persisted   int
	Pushed      int
	Failed      int
	TopicPushed bool
}

// DeliveryService 业务状态提交之后的唯一通知入口。
// 账本写入是事实来源，实时推送只是延迟优化，两者互不阻塞。
type DeliveryService interface {
	NotifyGroupEvent(ctx context.Context, ev compose.Event) (*DeliveryReport, error)
	NotifyDirectEvent(ctx context.Context, ev compose.Event) (*DeliveryReport, error)
}

type deliveryServiceImpl struct {
	ledger      LedgerService
	directory   repository.GroupDirectory
	pusher      Pusher
	activity    ActivitySink
	concurrency int
}

func NewDeliveryService(ledger LedgerService, directory repository.GroupDirectory, pusher Pusher, activity ActivitySink, concurrency int) DeliveryService {
	if concurrency <= 0 {
		concurrency = 16
	}
	return &deliveryServiceImpl{
		ledger:      ledger,
		directory:   directory,
		pusher:      pusher,
		activity:    activity,
		concurrency: concurrency,
	}
}

func (s *deliveryServiceImpl) NotifyGroupEvent(ctx context.Context, ev compose.Event) (*DeliveryReport, error) {
	if ev.GroupId == "" || !ev.Kind.Valid() {
		return nil, xerr.New(xerr.BadRequest, "group event requires group id and known kind")
	}

	aud, err := s.directory.GetGroupAudience(ctx, ev.GroupId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerr.New(xerr.NotFound, "群组不存在")
		}
		zlog.Error("load group audience failed", zap.String("group_id", ev.GroupId), zap.Error(err))
		return nil, xerr.ErrServerError
	}
	if ev.GroupName == "" {
		ev.GroupName = aud.GroupName
	}

	recipients := compose.GroupAudience(aud.Members, ev.ActorId)
	report := s.fanout(ctx, ev, recipients, ev.GroupId)

	if s.pusher != nil {
		data := compose.Payload(ev)
		data["message"] = compose.Message(ev, "")
		report.TopicPushed = s.pusher.PushToTopic(ev.GroupId, string(ev.Kind), data, ev.ActorId)
	}

	s.publishActivity(ctx, ev, report)
	return report, nil
}

func (s *deliveryServiceImpl) NotifyDirectEvent(ctx context.Context, ev compose.Event) (*DeliveryReport, error) {
	if ev.TargetUserId == "" || !ev.Kind.Valid() {
		return nil, xerr.New(xerr.BadRequest, "direct event requires target user and known kind")
	}

	recipients := compose.DirectAudience(ev.TargetUserId, ev.ActorId)
	report := s.fanout(ctx, ev, recipients, "")
	s.publishActivity(ctx, ev, report)
	return report, nil
}

// fanout 每个接收者独立写账本并推送，单个失败只记录，不影响其他接收者
func (s *deliveryServiceImpl) fanout(ctx context.Context, ev compose.Event, recipients []string, topicID string) *DeliveryReport {
	report := &DeliveryReport{Recipients: len(recipients)}
	if len(recipients) == 0 {
		return report
	}

	payload := compose.Payload(ev)
	var relatedTodo string
	if ev.Todo != nil {
		relatedTodo = ev.Todo.Id
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.concurrency)
	for _, c := range compose.Compose(ev, recipients) {
		g.Go(func() error {
			persisted, pushed := s.deliverOne(ctx, ev, c, payload, relatedTodo, topicID)
			mu.Lock()
			defer mu.Unlock()
			if persisted {
				report.Persisted++
			} else {
				report.Failed++
			}
			if pushed {
				report.Pushed++
			}
			return nil
		})
	}
	_ = g.Wait()

	if report.Failed > 0 {
		zlog.Warn("notification fanout partially failed",
			zap.String("event", string(ev.Kind)),
			zap.String("group_id", ev.GroupId),
			zap.Int("recipients", report.Recipients),
			zap.Int("failed", report.Failed))
	}
	return report
}

func (s *deliveryServiceImpl) deliverOne(ctx context.Context, ev compose.Event, c compose.Composed, payload map[string]interface{}, relatedTodo, topicID string) (persisted, pushed bool) {
	defer func() {
		if r := recover(); r != nil {
			zlog.Error("notification delivery panic", zap.String("recipient_id", c.RecipientId), zap.Any("panic", r))
		}
	}()

	n, err := s.ledger.Create(ctx, CreateInput{
		RecipientId:    c.RecipientId,
		ActorId:        ev.ActorId,
		Kind:           ev.Kind,
		Message:        c.Message,
		RelatedGroupId: ev.GroupId,
		RelatedTodoId:  relatedTodo,
		Payload:        payload,
	})
	if err != nil {
		zlog.Error("notification ledger write failed",
			zap.String("event", string(ev.Kind)),
			zap.String("recipient_id", c.RecipientId),
			zap.Error(err))
	} else {
		persisted = true
	}

	if s.pusher == nil {
		return persisted, false
	}
	data := make(map[string]interface{}, len(payload)+2)
	for k, v := range payload {
		data[k] = v
	}
	data["message"] = c.Message
	if n != nil {
		data["notificationId"] = n.NotificationId
	}
	pushed = s.pusher.PushToUserOutside(c.RecipientId, topicID, string(ev.Kind), data)
	return persisted, pushed
}

func (s *deliveryServiceImpl) publishActivity(ctx context.Context, ev compose.Event, report *DeliveryReport) {
	if s.activity == nil {
		return
	}
	act := mq.Activity{
		Kind:       string(ev.Kind),
		ActorId:    ev.ActorId,
		GroupId:    ev.GroupId,
		TargetId:   ev.TargetUserId,
		Message:    compose.Message(ev, ""),
		Recipients: report.Recipients,
		Payload:    compose.Payload(ev),
		OccurredAt: time.Now(),
	}
	if err := s.activity.PublishActivity(ctx, act); err != nil {
		zlog.Warn("activity publish failed", zap.String("event", string(ev.Kind)), zap.Error(err))
	}
}
