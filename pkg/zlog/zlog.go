package zlog

import (
	"os"
	"sync"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options 日志初始化参数
type Options struct {
	Level      string
	LogPath    string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	App        string
}

var (
	mu     sync.RWMutex
	logger = mustDefault()
)

func mustDefault() *zap.Logger {
	l, err := zap.NewProduction()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// Init 按配置重建全局 logger：stdout JSON，配置了 LogPath 时同时写滚动文件
func Init(opts Options) error {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		if err := level.Set(opts.Level); err != nil {
			level = zapcore.InfoLevel
		}
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encCfg)

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level),
	}
	if opts.LogPath != "" {
		fileWriter := &lumberjack.Logger{
			Filename:   opts.LogPath,
			MaxSize:    defaultInt(opts.MaxSizeMB, 100),
			MaxBackups: defaultInt(opts.MaxBackups, 7),
			MaxAge:     defaultInt(opts.MaxAgeDays, 30),
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(fileWriter), level))
	}

	l := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))
	if opts.App != "" {
		l = l.With(zap.String("service", opts.App))
	}

	mu.Lock()
	old := logger
	logger = l
	mu.Unlock()
	_ = old.Sync()
	return nil
}

// L 返回底层 zap.Logger，供需要 With 派生的组件使用
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func Debug(msg string, fields ...zap.Field) { L().Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { L().Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { L().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { L().Error(msg, fields...) }
func Fatal(msg string, fields ...zap.Field) { L().Fatal(msg, fields...) }

// Sync 刷新缓冲，进程退出前调用
func Sync() {
	_ = L().Sync()
}

func defaultInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
