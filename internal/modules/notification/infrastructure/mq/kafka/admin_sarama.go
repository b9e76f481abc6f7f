package kafka

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/IBM/sarama"
)

type TopicAdminConfig struct {
	Brokers  []string
	ClientID string
}

// EnsureTopic 启动时确保活动流 topic 存在，已存在视为成功
func EnsureTopic(cfg TopicAdminConfig, topic string, partitions int32, retention time.Duration) error {
	if len(cfg.Brokers) == 0 {
		return errors.New("kafka brokers is empty")
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return errors.New("kafka topic is empty")
	}
	if partitions <= 0 {
		partitions = 1
	}
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}

	sc := sarama.NewConfig()
	sc.Version = sarama.V2_8_0_0
	sc.ClientID = strings.TrimSpace(cfg.ClientID)

	admin, err := sarama.NewClusterAdmin(cfg.Brokers, sc)
	if err != nil {
		return err
	}
	defer admin.Close()

	topics, err := admin.ListTopics()
	if err != nil {
		return err
	}
	if _, ok := topics[topic]; ok {
		return nil
	}

	retentionMs := strconv.FormatInt(retention.Milliseconds(), 10)
	td := &sarama.TopicDetail{
		NumPartitions:     partitions,
		ReplicationFactor: 1,
		ConfigEntries:     map[string]*string{"retention.ms": &retentionMs},
	}
	if err := admin.CreateTopic(topic, td, false); err != nil {
		if errors.Is(err, sarama.ErrTopicAlreadyExists) {
			return nil
		}
		return err
	}
	return nil
}
