package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotConnected Redis 未配置或初始化失败
var ErrNotConnected = errors.New("redis not connected")

// Nil key 不存在
const Nil = redis.Nil

var client *redis.Client

// SetClient 设置 Redis 客户端（由 internal/initial 调用），传 nil 表示禁用
func SetClient(c *redis.Client) {
	client = c
}

// Close 关闭 Redis 连接
func Close() error {
	if client == nil {
		return nil
	}
	err := client.Close()
	client = nil
	return err
}

// IsConnected 检查 Redis 是否已连接
func IsConnected() bool {
	return client != nil
}

func checkClient() error {
	if client == nil {
		return ErrNotConnected
	}
	return nil
}

// Ping 健康检查
func Ping(ctx context.Context) error {
	if err := checkClient(); err != nil {
		return err
	}
	return client.Ping(ctx).Err()
}

// Get 获取字符串值，key 不存在时返回 Nil
func Get(ctx context.Context, key string) (string, error) {
	if err := checkClient(); err != nil {
		return "", err
	}
	return client.Get(ctx, key).Result()
}

// Set 设置字符串值
func Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if err := checkClient(); err != nil {
		return err
	}
	return client.Set(ctx, key, value, expiration).Err()
}

// Del 删除 key
func Del(ctx context.Context, keys ...string) (int64, error) {
	if err := checkClient(); err != nil {
		return 0, err
	}
	return client.Del(ctx, keys...).Result()
}

// Incr 自增并返回新值，key 不存在时从 0 开始
func Incr(ctx context.Context, key string) (int64, error) {
	if err := checkClient(); err != nil {
		return 0, err
	}
	return client.Incr(ctx, key).Result()
}
