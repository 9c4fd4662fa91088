package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/truthengine/backend-go/internal/models"
)

func sampleEvent() models.IngestBatchEvent {
	return models.IngestBatchEvent{
		RunID:       "3f1c2a4e-run",
		BatchIndex:  2,
		Rows:        1000,
		Processed:   2000,
		Total:       2500,
		CommittedAt: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestProducer_PublishIngestBatch(t *testing.T) {
	mp := mocks.NewSyncProducer(t, nil)
	mp.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		assert.Equal(t, "community-notes-ingest", msg.Topic)

		key, err := msg.Key.Encode()
		require.NoError(t, err)
		assert.Equal(t, "3f1c2a4e-run", string(key))

		value, err := msg.Value.Encode()
		require.NoError(t, err)
		var event models.IngestBatchEvent
		require.NoError(t, json.Unmarshal(value, &event))
		assert.Equal(t, sampleEvent(), event)
		return nil
	})

	p := NewProducerWithClient(mp, "community-notes-ingest", zap.NewNop())
	require.NoError(t, p.PublishIngestBatch(context.Background(), sampleEvent()))
	require.NoError(t, p.Close())
}

func TestProducer_SendFailure(t *testing.T) {
	mp := mocks.NewSyncProducer(t, nil)
	mp.ExpectSendMessageAndFail(errors.New("leader not available"))

	p := NewProducerWithClient(mp, "community-notes-ingest", zap.NewNop())
	err := p.PublishIngestBatch(context.Background(), sampleEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leader not available")
	require.NoError(t, p.Close())
}

func TestProducer_CancelledContext(t *testing.T) {
	mp := mocks.NewSyncProducer(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewProducerWithClient(mp, "community-notes-ingest", zap.NewNop())
	assert.ErrorIs(t, p.PublishIngestBatch(ctx, sampleEvent()), context.Canceled)
	require.NoError(t, p.Close())
}
