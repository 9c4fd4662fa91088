package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/truthengine/backend-go/internal/config"
	"github.com/truthengine/backend-go/internal/models"
)

// Producer Kafka生产者，发布入库批次事件
type Producer struct {
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger
}

// NewProducer 创建同步生产者。发送失败不重试，由调用方记录。
func NewProducer(cfg config.KafkaConfig, logger *zap.Logger) (*Producer, error) {
	sc := sarama.NewConfig()
	sc.Producer.Return.Successes = true
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Retry.Max = 0
	sc.Producer.Timeout = 10 * time.Second

	producer, err := sarama.NewSyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	logger.Info("Kafka producer initialized", zap.Strings("brokers", cfg.Brokers), zap.String("topic", cfg.Topic))
	return NewProducerWithClient(producer, cfg.Topic, logger), nil
}

// NewProducerWithClient 使用已有的 sarama 生产者
func NewProducerWithClient(producer sarama.SyncProducer, topic string, logger *zap.Logger) *Producer {
	return &Producer{producer: producer, topic: topic, logger: logger}
}

// PublishIngestBatch 以 run_id 为 key 发送，同一次运行的事件落在同一分区
func (p *Producer) PublishIngestBatch(ctx context.Context, event models.IngestBatchEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal batch event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.RunID),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte("ingest_batch")},
			{Key: []byte("batch_index"), Value: []byte(strconv.Itoa(event.BatchIndex))},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to send batch event: %w", err)
	}

	p.logger.Debug("Kafka message sent",
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
		zap.String("run_id", event.RunID),
		zap.Int("batch", event.BatchIndex))
	return nil
}

// Close 关闭生产者
func (p *Producer) Close() error {
	if p != nil && p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
