package mq

import (
	"context"
	"encoding/json"
	"time"
)

// Activity 一次领域事件的活动流记录（每个事件一条，不按接收者展开）
type Activity struct {
	Kind       string                 `json:"kind"`
	ActorId    string                 `json:"actorId"`
	GroupId    string                 `json:"groupId,omitempty"`
	TargetId   string                 `json:"targetUserId,omitempty"`
	Message    string                 `json:"message"`
	Recipients int                    `json:"recipients"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	OccurredAt time.Time              `json:"occurredAt"`
}

// ActivityPublisher 把活动写入消息队列
type ActivityPublisher struct {
	pub   Publisher
	topic string
}

func NewActivityPublisher(pub Publisher, topic string) *ActivityPublisher {
	return &ActivityPublisher{pub: pub, topic: topic}
}

func (a *ActivityPublisher) PublishActivity(ctx context.Context, act Activity) error {
	value, err := json.Marshal(act)
	if err != nil {
		return err
	}
	key := act.GroupId
	if key == "" {
		key = act.TargetId
	}
	_, err = a.pub.Publish(ctx, Message{
		Topic:   a.topic,
		Key:     []byte(key),
		Value:   value,
		Headers: map[string]string{"kind": act.Kind},
	})
	return err
}

func (a *ActivityPublisher) Close() error {
	return a.pub.Close()
}
