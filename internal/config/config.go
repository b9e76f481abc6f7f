package config

import (
	"log"
	"os"
	"sync"

	"github.com/BurntSushi/toml"
)

type MainConfig struct {
	AppName  string `toml:"appName"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	TLS      bool   `toml:"tls"`
	CertFile string `toml:"certFile"`
	KeyFile  string `toml:"keyFile"`
}

type MysqlConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	DatabaseName string `toml:"databaseName"`
}

type LogConfig struct {
	LogPath    string `toml:"logPath"`
	Level      string `toml:"level"`
	MaxSizeMB  int    `toml:"maxSizeMB"`
	MaxBackups int    `toml:"maxBackups"`
	MaxAgeDays int    `toml:"maxAgeDays"`
}

type JwtConfig struct {
	Key         string `toml:"key"`
	ExpireHours int    `toml:"expireHours"`
	Issuer      string `toml:"issuer"`
}

type RedisConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	Password     string `toml:"password"`
	DB           int    `toml:"db"`
	PoolSize     int    `toml:"poolSize"`
	MinIdleConns int    `toml:"minIdleConns"`
}

type KafkaConfig struct {
	Brokers       []string `toml:"brokers"`
	ClientID      string   `toml:"clientID"`
	ActivityTopic string   `toml:"activityTopic"`
}

// NotifyConfig 通知投递相关参数
type NotifyConfig struct {
	PushTimeoutMillis     int `toml:"pushTimeoutMillis"`
	FanoutConcurrency     int `toml:"fanoutConcurrency"`
	ListDefaultLimit      int `toml:"listDefaultLimit"`
	ListMaxLimit          int `toml:"listMaxLimit"`
	UnreadCacheTTLSeconds int `toml:"unreadCacheTTLSeconds"`
}

// WsConfig 长连接参数
type WsConfig struct {
	SendBuffer        int    `toml:"sendBuffer"`
	ReadLimitBytes    int64  `toml:"readLimitBytes"`
	PongWaitSeconds   int    `toml:"pongWaitSeconds"`
	PingPeriodSeconds int    `toml:"pingPeriodSeconds"`
	SweepSpec         string `toml:"sweepSpec"`
}

type Config struct {
	MainConfig   `toml:"mainConfig"`
	MysqlConfig  `toml:"mysqlConfig"`
	JwtConfig    `toml:"jwtConfig"`
	LogConfig    `toml:"logConfig"`
	RedisConfig  `toml:"redisConfig"`
	KafkaConfig  `toml:"kafkaConfig"`
	NotifyConfig `toml:"notifyConfig"`
	WsConfig     `toml:"wsConfig"`
}

const defaultConfigPath = "configs/config_local.toml"

var (
	config *Config
	once   sync.Once
)

// Load 从指定路径加载配置，未设置的字段使用默认值
func Load(path string) (*Config, error) {
	conf := new(Config)
	if _, err := toml.DecodeFile(path, conf); err != nil {
		conf.applyDefaults()
		return conf, err
	}
	conf.applyDefaults()
	return conf, nil
}

// GetConfig 懒加载全局配置，TASKNEST_CONFIG 可覆盖默认路径
func GetConfig() *Config {
	once.Do(func() {
		path := defaultConfigPath
		if p := os.Getenv("TASKNEST_CONFIG"); p != "" {
			path = p
		}
		conf, err := Load(path)
		if err != nil {
			log.Printf("加载配置文件失败: %v, 使用默认设置", err)
		}
		config = conf
	})
	return config
}

// SetConfig 替换全局配置（测试与 main 显式加载时使用）
func SetConfig(c *Config) {
	once.Do(func() {})
	c.applyDefaults()
	config = c
}

func (c *Config) applyDefaults() {
	if c.AppName == "" {
		c.AppName = "TaskNest"
	}
	if c.MainConfig.Host == "" {
		c.MainConfig.Host = "127.0.0.1"
	}
	if c.MainConfig.Port == 0 {
		c.MainConfig.Port = 8000
	}
	if c.JwtConfig.ExpireHours <= 0 {
		c.JwtConfig.ExpireHours = 24
	}
	if c.NotifyConfig.PushTimeoutMillis <= 0 {
		c.NotifyConfig.PushTimeoutMillis = 3000
	}
	if c.NotifyConfig.FanoutConcurrency <= 0 {
		c.NotifyConfig.FanoutConcurrency = 16
	}
	if c.NotifyConfig.ListDefaultLimit <= 0 {
		c.NotifyConfig.ListDefaultLimit = 50
	}
	if c.NotifyConfig.ListMaxLimit <= 0 {
		c.NotifyConfig.ListMaxLimit = 200
	}
	if c.NotifyConfig.UnreadCacheTTLSeconds <= 0 {
		c.NotifyConfig.UnreadCacheTTLSeconds = 300
	}
	if c.WsConfig.SendBuffer <= 0 {
		c.WsConfig.SendBuffer = 64
	}
	if c.WsConfig.ReadLimitBytes <= 0 {
		c.WsConfig.ReadLimitBytes = 1 << 20
	}
	if c.WsConfig.PongWaitSeconds <= 0 {
		c.WsConfig.PongWaitSeconds = 60
	}
	if c.WsConfig.PingPeriodSeconds <= 0 || c.WsConfig.PingPeriodSeconds >= c.WsConfig.PongWaitSeconds {
		c.WsConfig.PingPeriodSeconds = c.WsConfig.PongWaitSeconds * 9 / 10
	}
	if c.WsConfig.SweepSpec == "" {
		c.WsConfig.SweepSpec = "@every 1m"
	}
	if c.KafkaConfig.ActivityTopic == "" {
		c.KafkaConfig.ActivityTopic = "tasknest.activity"
	}
}
