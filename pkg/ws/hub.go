package ws

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"TaskNest/pkg/zlog"

	"go.uber.org/zap"
)

const defaultPushTimeout = 3 * time.Second

// Envelope 下行事件格式：event 为事件名，data 为事件数据
type Envelope struct {
	Event string                 `json:"event"`
	Data  map[string]interface{} `json:"data"`
}

// Hub 尽力而为的实时推送。任何投递错误只记录日志并以 false 返回，
// 不会向调用方抛出，也不做重试与缓存。
type Hub struct {
	registry *Registry
	timeout  time.Duration
	running  atomic.Bool
	now      func() time.Time
}

func NewHub(registry *Registry, pushTimeout time.Duration) *Hub {
	if registry == nil {
		registry = NewRegistry()
	}
	if pushTimeout <= 0 {
		pushTimeout = defaultPushTimeout
	}
	return &Hub{
		registry: registry,
		timeout:  pushTimeout,
		now:      time.Now,
	}
}

func (h *Hub) Registry() *Registry {
	return h.registry
}

// Start 开始接受推送
func (h *Hub) Start() {
	h.running.Store(true)
	zlog.Info("ws hub started")
}

// Stop 停止推送并关闭全部连接
func (h *Hub) Stop() {
	if !h.running.Swap(false) {
		return
	}
	for _, id := range h.registry.ChannelIDs() {
		h.Disconnect(id)
	}
	zlog.Info("ws hub stopped")
}

// Ready nil 或未启动的 Hub 视为不可用
func (h *Hub) Ready() bool {
	return h != nil && h.running.Load()
}

// Register 登记连接。Hub 已停止（包括与 Stop 并发）时撤销登记并返回 false，
// 调用方需自行关闭传输层连接
func (h *Hub) Register(userID, channelID string, ch Channel) bool {
	if !h.Ready() {
		return false
	}
	if !h.registry.Register(userID, channelID, ch) {
		return false
	}
	// Stop 先置位再收集连接，这里复查可以覆盖收集之后才完成的登记
	if !h.running.Load() {
		h.registry.Unregister(channelID)
		return false
	}
	return true
}

// Disconnect 注销并关闭连接，可重复调用
func (h *Hub) Disconnect(channelID string) {
	if h == nil {
		return
	}
	if ch, ok := h.registry.Unregister(channelID); ok && ch != nil {
		ch.Close()
	}
}

// PushToUser 投递到用户的每一条连接。未启动或用户离线返回 false，这是常态而非错误。
func (h *Hub) PushToUser(userID, event string, data map[string]interface{}) bool {
	return h.PushToUserOutside(userID, "", event, data)
}

// PushToUserOutside 同 PushToUser，但跳过已订阅 topicID 的连接（这些连接会收到 topic 广播）
func (h *Hub) PushToUserOutside(userID, topicID, event string, data map[string]interface{}) (ok bool) {
	if !h.Ready() || userID == "" || event == "" {
		pushTotal.WithLabelValues("user", "skipped").Inc()
		return false
	}
	defer h.recoverPush("user", userID, event, &ok)

	conns := h.registry.ForUserOutside(userID, topicID)
	if len(conns) == 0 {
		pushTotal.WithLabelValues("user", "skipped").Inc()
		return false
	}

	payload, err := h.encode(event, data, nil)
	if err != nil {
		zlog.Error("ws push encode failed", zap.String("event", event), zap.String("user_id", userID), zap.Error(err))
		pushTotal.WithLabelValues("user", "failed").Inc()
		return false
	}
	return h.deliver("user", event, payload, conns)
}

// PushToTopic 投递到订阅了 topic 的连接，跳过 excludeUserID 的连接（避免操作者收到自己的回显）
func (h *Hub) PushToTopic(topicID, event string, data map[string]interface{}, excludeUserID string) (ok bool) {
	if !h.Ready() || topicID == "" || event == "" {
		pushTotal.WithLabelValues("topic", "skipped").Inc()
		return false
	}
	defer h.recoverPush("topic", topicID, event, &ok)

	subs := h.registry.Subscribers(topicID)
	targets := make([]*Connection, 0, len(subs))
	for _, c := range subs {
		if excludeUserID != "" && c.UserID == excludeUserID {
			continue
		}
		targets = append(targets, c)
	}
	if len(targets) == 0 {
		pushTotal.WithLabelValues("topic", "skipped").Inc()
		return false
	}

	payload, err := h.encode(event, data, map[string]interface{}{"topic": topicID})
	if err != nil {
		zlog.Error("ws push encode failed", zap.String("event", event), zap.String("topic", topicID), zap.Error(err))
		pushTotal.WithLabelValues("topic", "failed").Inc()
		return false
	}
	return h.deliver("topic", event, payload, targets)
}

func (h *Hub) encode(event string, data map[string]interface{}, extra map[string]interface{}) ([]byte, error) {
	out := make(map[string]interface{}, len(data)+len(extra)+1)
	for k, v := range data {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	out["timestamp"] = h.now().Format(time.RFC3339Nano)
	return json.Marshal(Envelope{Event: event, Data: out})
}

// deliver 并发写入各连接，每次写入受 timeout 约束
func (h *Hub) deliver(target, event string, payload []byte, conns []*Connection) bool {
	var (
		wg        sync.WaitGroup
		delivered atomic.Int32
	)
	for _, c := range conns {
		wg.Add(1)
		go func(c *Connection) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					zlog.Error("ws channel send panic", zap.String("channel_id", c.ChannelID), zap.Any("panic", r))
				}
			}()
			ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
			defer cancel()
			if err := c.Channel.Send(ctx, payload); err != nil {
				zlog.Warn("ws push failed",
					zap.String("target", target),
					zap.String("event", event),
					zap.String("user_id", c.UserID),
					zap.String("channel_id", c.ChannelID),
					zap.Error(err))
				return
			}
			delivered.Add(1)
		}(c)
	}
	wg.Wait()

	if delivered.Load() == 0 {
		pushTotal.WithLabelValues(target, "failed").Inc()
		return false
	}
	pushTotal.WithLabelValues(target, "delivered").Inc()
	return true
}

func (h *Hub) recoverPush(target, key, event string, ok *bool) {
	if r := recover(); r != nil {
		zlog.Error("ws push panic recovered",
			zap.String("target", target),
			zap.String("key", key),
			zap.String("event", event),
			zap.Any("panic", r))
		pushTotal.WithLabelValues(target, "failed").Inc()
		*ok = false
	}
}
