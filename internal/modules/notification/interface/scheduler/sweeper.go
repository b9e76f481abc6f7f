package scheduler

import (
	"time"

	"TaskNest/pkg/ws"
	"TaskNest/pkg/zlog"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ConnectionSweeper 定期清理长时间无活动的连接（未正常关闭的半开连接）
type ConnectionSweeper struct {
	cron    *cron.Cron
	hub     *ws.Hub
	spec    string
	maxIdle time.Duration
	now     func() time.Time
}

func NewConnectionSweeper(hub *ws.Hub, spec string, maxIdle time.Duration) *ConnectionSweeper {
	if spec == "" {
		spec = "@every 1m"
	}
	if maxIdle <= 0 {
		maxIdle = 2 * time.Minute
	}
	return &ConnectionSweeper{
		cron:    cron.New(),
		hub:     hub,
		spec:    spec,
		maxIdle: maxIdle,
		now:     time.Now,
	}
}

func (s *ConnectionSweeper) Start() error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.Sweep() }); err != nil {
		return err
	}
	s.cron.Start()
	zlog.Info("connection sweeper started", zap.String("spec", s.spec), zap.Duration("max_idle", s.maxIdle))
	return nil
}

func (s *ConnectionSweeper) Stop() {
	<-s.cron.Stop().Done()
}

// Sweep 返回本轮清理的连接数
func (s *ConnectionSweeper) Sweep() int {
	stale := s.hub.Registry().IdleSince(s.now().Add(-s.maxIdle))
	for _, id := range stale {
		s.hub.Disconnect(id)
	}
	conns, users, topics := s.hub.Registry().Stats()
	if len(stale) > 0 {
		zlog.Info("swept idle connections",
			zap.Int("removed", len(stale)),
			zap.Int("connections", conns),
			zap.Int("users", users),
			zap.Int("topics", topics))
	}
	return len(stale)
}
