package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/truthengine/backend-go/internal/config"
	"github.com/truthengine/backend-go/internal/models"
)

// EventHandler 处理一条入库批次事件
type EventHandler func(ctx context.Context, event models.IngestBatchEvent) error

// Watcher 订阅入库批次事件（truthctl events）
type Watcher struct {
	group  sarama.ConsumerGroup
	topic  string
	logger *zap.Logger
}

// NewWatcher 创建消费者组，从最新位置开始消费
func NewWatcher(cfg config.KafkaConfig, logger *zap.Logger) (*Watcher, error) {
	sc := sarama.NewConfig()
	sc.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	sc.Consumer.Offsets.Initial = sarama.OffsetNewest
	sc.Version = sarama.V2_6_0_0

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, sc)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer group: %w", err)
	}

	logger.Info("Kafka consumer initialized",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("group_id", cfg.GroupID),
		zap.String("topic", cfg.Topic))
	return &Watcher{group: group, topic: cfg.Topic, logger: logger}, nil
}

// Watch 阻塞直到 ctx 取消
func (w *Watcher) Watch(ctx context.Context, handle EventHandler) error {
	handler := &eventGroupHandler{handle: handle, logger: w.logger}
	for {
		if err := w.group.Consume(ctx, []string{w.topic}, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return fmt.Errorf("failed to consume events: %w", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// Close 关闭消费者
func (w *Watcher) Close() error {
	if w == nil || w.group == nil {
		return nil
	}
	return w.group.Close()
}

// eventGroupHandler 消费者组处理器
type eventGroupHandler struct {
	handle EventHandler
	logger *zap.Logger
}

func (h *eventGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *eventGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *eventGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := h.process(session.Context(), message); err != nil {
				h.logger.Warn("Skipping kafka message",
					zap.Int32("partition", message.Partition),
					zap.Int64("offset", message.Offset),
					zap.Error(err))
			}
			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}

func (h *eventGroupHandler) process(ctx context.Context, message *sarama.ConsumerMessage) error {
	event, err := ParseIngestBatchEvent(message.Value)
	if err != nil {
		return err
	}
	return h.handle(ctx, *event)
}

// ParseIngestBatchEvent 解析入库批次事件
func ParseIngestBatchEvent(data []byte) (*models.IngestBatchEvent, error) {
	var event models.IngestBatchEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("failed to parse batch event: %w", err)
	}
	if event.RunID == "" {
		return nil, errors.New("batch event has no run_id")
	}
	return &event, nil
}
