package kafka

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/truthengine/backend-go/internal/models"
)

func TestParseIngestBatchEvent(t *testing.T) {
	data, err := json.Marshal(sampleEvent())
	require.NoError(t, err)

	event, err := ParseIngestBatchEvent(data)
	require.NoError(t, err)
	assert.Equal(t, sampleEvent(), *event)

	_, err = ParseIngestBatchEvent([]byte("not json"))
	assert.Error(t, err)

	_, err = ParseIngestBatchEvent([]byte(`{"batch_index":1}`))
	assert.EqualError(t, err, "batch event has no run_id")
}

func TestEventGroupHandler_Process(t *testing.T) {
	var received []models.IngestBatchEvent
	h := &eventGroupHandler{
		logger: zap.NewNop(),
		handle: func(ctx context.Context, event models.IngestBatchEvent) error {
			received = append(received, event)
			return nil
		},
	}

	data, _ := json.Marshal(sampleEvent())
	require.NoError(t, h.process(context.Background(), &sarama.ConsumerMessage{Value: data}))
	assert.Error(t, h.process(context.Background(), &sarama.ConsumerMessage{Value: []byte("{")}))
	assert.Len(t, received, 1)
}
