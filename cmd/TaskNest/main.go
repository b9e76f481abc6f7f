package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	https_server "TaskNest/api/http"
	"TaskNest/internal/config"
	"TaskNest/internal/initial"
	notifyService "TaskNest/internal/modules/notification/application/service"
	"TaskNest/internal/modules/notification/interface/scheduler"
	"TaskNest/pkg/redis"
	"TaskNest/pkg/ws"
	"TaskNest/pkg/zlog"

	"go.uber.org/zap"
)

func main() {
	// 1. 加载配置与日志
	conf := config.GetConfig()
	if err := zlog.Init(zlog.Options{
		Level:      conf.LogConfig.Level,
		LogPath:    conf.LogConfig.LogPath,
		MaxSizeMB:  conf.LogConfig.MaxSizeMB,
		MaxBackups: conf.LogConfig.MaxBackups,
		MaxAgeDays: conf.LogConfig.MaxAgeDays,
		App:        conf.AppName,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
	}
	defer zlog.Sync()

	// 2. 外部资源
	db, err := initial.NewGormDB(conf)
	if err != nil {
		zlog.Fatal("mysql init failed", zap.Error(err))
	}
	initial.NewRedis(conf)

	var activity notifyService.ActivitySink
	publisher, err := initial.NewActivityPublisher(conf)
	if err != nil {
		zlog.Warn("kafka publisher init failed, activity export disabled", zap.Error(err))
	}
	if publisher != nil {
		activity = publisher
	}

	// 3. 实时推送
	hub := ws.NewHub(ws.NewRegistry(), time.Duration(conf.NotifyConfig.PushTimeoutMillis)*time.Millisecond)
	hub.Start()
	sweeper := scheduler.NewConnectionSweeper(hub, conf.WsConfig.SweepSpec, 2*time.Duration(conf.WsConfig.PongWaitSeconds)*time.Second)
	if err := sweeper.Start(); err != nil {
		zlog.Warn("connection sweeper disabled", zap.String("spec", conf.WsConfig.SweepSpec), zap.Error(err))
	}

	// 4. HTTP 服务
	engine, err := https_server.NewServer(https_server.Deps{Conf: conf, DB: db, Hub: hub, Activity: activity})
	if err != nil {
		zlog.Fatal("server init failed", zap.Error(err))
	}
	addr := fmt.Sprintf("%s:%d", conf.MainConfig.Host, conf.MainConfig.Port)
	srv := &http.Server{Addr: addr, Handler: engine}
	go func() {
		zlog.Info("server starting", zap.String("addr", addr), zap.Bool("tls", conf.MainConfig.TLS))
		var err error
		if conf.MainConfig.TLS {
			err = srv.ListenAndServeTLS(conf.MainConfig.CertFile, conf.MainConfig.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server start failed", zap.Error(err))
		}
	}()

	// 5. 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info("shutting down")

	sweeper.Stop()
	hub.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zlog.Error("server shutdown failed", zap.Error(err))
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			zlog.Warn("kafka publisher close failed", zap.Error(err))
		}
	}
	_ = redis.Close()
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	zlog.Info("server stopped")
}
