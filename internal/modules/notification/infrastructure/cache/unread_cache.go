package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"TaskNest/pkg/redis"
	"TaskNest/pkg/zlog"

	"go.uber.org/zap"
)

const unreadKeyPrefix = "tasknest:notify:unread:"

// UnreadCache 未读数缓存，计数键带版本号：tasknest:notify:unread:<userId>:<version>。
// 失效只推进版本，旧版本的计数随 TTL 过期。Redis 不可用时所有方法退化为未命中/空操作
type UnreadCache struct {
	ttl time.Duration
}

func NewUnreadCache(ttl time.Duration) *UnreadCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &UnreadCache{ttl: ttl}
}

func versionKey(userID string) string {
	return unreadKeyPrefix + userID + ":ver"
}

func countKey(userID string, version int64) string {
	return unreadKeyPrefix + userID + ":" + strconv.FormatInt(version, 10)
}

func (c *UnreadCache) Get(ctx context.Context, userID string) (int64, int64, bool) {
	if !redis.IsConnected() {
		return 0, -1, false
	}
	var version int64
	v, err := redis.Get(ctx, versionKey(userID))
	switch {
	case err == nil:
		if version, err = strconv.ParseInt(v, 10, 64); err != nil {
			return 0, -1, false
		}
	case !errors.Is(err, redis.Nil):
		zlog.Warn("unread cache version get failed", zap.String("user_id", userID), zap.Error(err))
		return 0, -1, false
	}

	raw, err := redis.Get(ctx, countKey(userID, version))
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			zlog.Warn("unread cache get failed", zap.String("user_id", userID), zap.Error(err))
			return 0, -1, false
		}
		return 0, version, false
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, version, false
	}
	return n, version, true
}

func (c *UnreadCache) Set(ctx context.Context, userID string, version int64, n int64) {
	if version < 0 || !redis.IsConnected() {
		return
	}
	if err := redis.Set(ctx, countKey(userID, version), n, c.ttl); err != nil {
		zlog.Warn("unread cache set failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func (c *UnreadCache) Invalidate(ctx context.Context, userID string) {
	if !redis.IsConnected() {
		return
	}
	next, err := redis.Incr(ctx, versionKey(userID))
	if err != nil {
		zlog.Warn("unread cache invalidate failed", zap.String("user_id", userID), zap.Error(err))
		return
	}
	if _, err := redis.Del(ctx, countKey(userID, next-1)); err != nil {
		zlog.Warn("unread cache cleanup failed", zap.String("user_id", userID), zap.Error(err))
	}
}
