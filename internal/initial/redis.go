package initial

import (
	"context"
	"fmt"
	"time"

	"TaskNest/internal/config"
	"TaskNest/pkg/redis"
	"TaskNest/pkg/zlog"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewRedis 未配置主机或连接失败时不设置客户端，未读数缓存随之降级为直接查库
func NewRedis(conf *config.Config) {
	rc := conf.RedisConfig
	if rc.Host == "" {
		zlog.Info("redis not configured, skipping")
		return
	}
	port := rc.Port
	if port == 0 {
		port = 6379
	}
	addr := fmt.Sprintf("%s:%d", rc.Host, port)

	client := goredis.NewClient(&goredis.Options{
		Addr:         addr,
		Password:     rc.Password,
		DB:           rc.DB,
		PoolSize:     rc.PoolSize,
		MinIdleConns: rc.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		zlog.Error("redis connect failed", zap.String("addr", addr), zap.Error(err))
		_ = client.Close()
		return
	}

	redis.SetClient(client)
	zlog.Info("redis connected", zap.String("addr", addr))
}
