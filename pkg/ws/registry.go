package ws

import (
	"context"
	"sync"
	"time"
)

// Channel 传输层连接句柄，Hub 只通过它投递字节
type Channel interface {
	Send(ctx context.Context, payload []byte) error
	Close()
}

// Connection 一条已通过身份校验的长连接
type Connection struct {
	UserID    string
	ChannelID string
	Channel   Channel

	topics   map[string]struct{}
	lastSeen time.Time
}

// Registry 记录在线连接及其订阅的 topic（一个 topic 对应一个群组）。
// 所有修改在一次加锁内完成，不做任何 I/O；授权由调用方负责。
type Registry struct {
	mu      sync.RWMutex
	conns   map[string]*Connection
	byUser  map[string]map[string]*Connection
	byTopic map[string]map[string]*Connection
	now     func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		conns:   make(map[string]*Connection),
		byUser:  make(map[string]map[string]*Connection),
		byTopic: make(map[string]map[string]*Connection),
		now:     time.Now,
	}
}

// Register 登记连接，同一 channelID 重复登记不产生副作用
func (r *Registry) Register(userID, channelID string, ch Channel) bool {
	if userID == "" || channelID == "" || ch == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[channelID]; ok {
		return true
	}
	c := &Connection{
		UserID:    userID,
		ChannelID: channelID,
		Channel:   ch,
		topics:    make(map[string]struct{}),
		lastSeen:  r.now(),
	}
	r.conns[channelID] = c
	set := r.byUser[userID]
	if set == nil {
		set = make(map[string]*Connection)
		r.byUser[userID] = set
	}
	set[channelID] = c
	connectionsGauge.Set(float64(len(r.conns)))
	return true
}

// Subscribe 为连接追加 topic，返回实际新增的 topic
func (r *Registry) Subscribe(channelID string, topicIDs []string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[channelID]
	if !ok {
		return nil
	}
	added := make([]string, 0, len(topicIDs))
	for _, t := range topicIDs {
		if t == "" {
			continue
		}
		if _, dup := c.topics[t]; dup {
			continue
		}
		c.topics[t] = struct{}{}
		set := r.byTopic[t]
		if set == nil {
			set = make(map[string]*Connection)
			r.byTopic[t] = set
		}
		set[channelID] = c
		added = append(added, t)
	}
	return added
}

// Unsubscribe 移除连接上的 topic
func (r *Registry) Unsubscribe(channelID string, topicIDs []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[channelID]
	if !ok {
		return
	}
	for _, t := range topicIDs {
		r.dropTopicLocked(c, t)
	}
}

// UnsubscribeUser 将某用户所有连接从 topic 中移除，用于被移出群组后的清理
func (r *Registry) UnsubscribeUser(userID, topicID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, c := range r.byUser[userID] {
		if _, ok := c.topics[topicID]; ok {
			r.dropTopicLocked(c, topicID)
			n++
		}
	}
	return n
}

// Unregister 移除连接及其全部订阅，可重复调用
func (r *Registry) Unregister(channelID string) (Channel, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[channelID]
	if !ok {
		return nil, false
	}
	for t := range c.topics {
		r.dropTopicLocked(c, t)
	}
	delete(r.conns, channelID)
	if set := r.byUser[c.UserID]; set != nil {
		delete(set, channelID)
		if len(set) == 0 {
			delete(r.byUser, c.UserID)
		}
	}
	connectionsGauge.Set(float64(len(r.conns)))
	return c.Channel, true
}

func (r *Registry) dropTopicLocked(c *Connection, topicID string) {
	if _, ok := c.topics[topicID]; !ok {
		return
	}
	delete(c.topics, topicID)
	if set := r.byTopic[topicID]; set != nil {
		delete(set, c.ChannelID)
		if len(set) == 0 {
			delete(r.byTopic, topicID)
		}
	}
}

// Touch 刷新连接最近活跃时间
func (r *Registry) Touch(channelID string) {
	r.mu.Lock()
	if c, ok := r.conns[channelID]; ok {
		c.lastSeen = r.now()
	}
	r.mu.Unlock()
}

// ForUser 返回用户当前全部连接的快照
func (r *Registry) ForUser(userID string) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return snapshot(r.byUser[userID])
}

// ForUserOutside 返回用户未订阅 topicID 的连接，topicID 为空时等同 ForUser
func (r *Registry) ForUserOutside(userID, topicID string) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if topicID == "" {
		return snapshot(r.byUser[userID])
	}
	var out []*Connection
	for _, c := range r.byUser[userID] {
		if _, ok := c.topics[topicID]; ok {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Subscribers 返回 topic 当前订阅连接的快照
func (r *Registry) Subscribers(topicID string) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return snapshot(r.byTopic[topicID])
}

// Topics 返回连接已订阅的 topic
func (r *Registry) Topics(channelID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[channelID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(c.topics))
	for t := range c.topics {
		out = append(out, t)
	}
	return out
}

func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID]) > 0
}

// OnlineUsers 当前至少有一条连接的用户
func (r *Registry) OnlineUsers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byUser))
	for uid := range r.byUser {
		out = append(out, uid)
	}
	return out
}

// IdleSince 返回最近活跃时间早于 before 的连接
func (r *Registry) IdleSince(before time.Time) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for id, c := range r.conns {
		if c.lastSeen.Before(before) {
			out = append(out, id)
		}
	}
	return out
}

// Stats 连接数 / 在线用户数 / 活跃 topic 数
func (r *Registry) Stats() (connections, users, topics int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns), len(r.byUser), len(r.byTopic)
}

// ChannelIDs 全部连接句柄，Hub 停止时使用
func (r *Registry) ChannelIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.conns))
	for id := range r.conns {
		out = append(out, id)
	}
	return out
}

func snapshot(set map[string]*Connection) []*Connection {
	if len(set) == 0 {
		return nil
	}
	out := make([]*Connection, 0, len(set))
	for _, c := range set {
		out = append(out, c)
	}
	return out
}
