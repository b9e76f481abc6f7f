package kafka

import (
	"context"
	"errors"
	"strings"
	"time"

	"TaskNest/internal/modules/notification/infrastructure/mq"

	"github.com/IBM/sarama"
)

type PublisherConfig struct {
	Brokers  []string
	ClientID string
	// Timeout 单条消息等待 broker 确认的上限
	Timeout time.Duration
}

type saramaPublisher struct {
	p sarama.SyncProducer
}

func NewSaramaPublisher(cfg PublisherConfig) (mq.Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers is empty")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	sc := sarama.NewConfig()
	sc.Version = sarama.V2_8_0_0
	sc.Producer.Return.Successes = true
	sc.Producer.RequiredAcks = sarama.WaitForLocal
	sc.Producer.Retry.Max = 3
	sc.Producer.Retry.Backoff = 100 * time.Millisecond
	sc.Producer.Timeout = cfg.Timeout
	sc.Producer.Partitioner = sarama.NewHashPartitioner
	sc.ClientID = strings.TrimSpace(cfg.ClientID)

	p, err := sarama.NewSyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, err
	}
	return &saramaPublisher{p: p}, nil
}

func (s *saramaPublisher) Publish(ctx context.Context, msg mq.Message) (mq.PublishResult, error) {
	if ctx != nil {
		select {
		case <-ctx.Done():
			return mq.PublishResult{}, ctx.Err()
		default:
		}
	}
	if strings.TrimSpace(msg.Topic) == "" {
		return mq.PublishResult{}, errors.New("kafka topic is empty")
	}

	m := &sarama.ProducerMessage{
		Topic: msg.Topic,
		Key:   sarama.ByteEncoder(msg.Key),
		Value: sarama.ByteEncoder(msg.Value),
	}
	for k, v := range msg.Headers {
		kk := strings.TrimSpace(k)
		if kk == "" {
			continue
		}
		m.Headers = append(m.Headers, sarama.RecordHeader{Key: []byte(kk), Value: []byte(v)})
	}

	partition, offset, err := s.p.SendMessage(m)
	if err != nil {
		return mq.PublishResult{}, err
	}
	return mq.PublishResult{Partition: partition, Offset: offset}, nil
}

func (s *saramaPublisher) Close() error {
	if s == nil || s.p == nil {
		return nil
	}
	return s.p.Close()
}
