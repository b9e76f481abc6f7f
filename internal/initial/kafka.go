package initial

import (
	"time"

	"TaskNest/internal/config"
	"TaskNest/internal/modules/notification/infrastructure/mq"
	"TaskNest/internal/modules/notification/infrastructure/mq/kafka"
	"TaskNest/pkg/zlog"

	"go.uber.org/zap"
)

// NewActivityPublisher 未配置 broker 时返回 nil，活动流导出随之关闭
func NewActivityPublisher(conf *config.Config) (*mq.ActivityPublisher, error) {
	kc := conf.KafkaConfig
	if len(kc.Brokers) == 0 {
		zlog.Info("kafka not configured, activity export disabled")
		return nil, nil
	}

	if err := kafka.EnsureTopic(kafka.TopicAdminConfig{Brokers: kc.Brokers, ClientID: kc.ClientID}, kc.ActivityTopic, 3, 0); err != nil {
		// topic 可能由运维预先创建且当前账号无管理权限，继续尝试生产
		zlog.Warn("kafka ensure topic failed", zap.String("topic", kc.ActivityTopic), zap.Error(err))
	}

	pub, err := kafka.NewSaramaPublisher(kafka.PublisherConfig{
		Brokers:  kc.Brokers,
		ClientID: kc.ClientID,
		Timeout:  5 * time.Second,
	})
	if err != nil {
		return nil, err
	}
	zlog.Info("kafka activity publisher ready", zap.Strings("brokers", kc.Brokers), zap.String("topic", kc.ActivityTopic))
	return mq.NewActivityPublisher(pub, kc.ActivityTopic), nil
}
