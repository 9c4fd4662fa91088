package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/truthengine/backend-go/internal/config"
	apperrors "github.com/truthengine/backend-go/internal/errors"
	"github.com/truthengine/backend-go/internal/metrics"
)

func newTestPipeline(store *memoryStore, embedder *stubEmbedder, publisher BatchPublisher) *Pipeline {
	cfg := config.IngestConfig{BatchSize: 1000, HelpfulStatus: config.HelpfulStatus}
	return NewPipeline(store, embedder, publisher, cfg, zap.NewNop())
}

func TestPipeline_OnlyHelpfulNotesStored(t *testing.T) {
	notes, status := writeDataset(t, 5, 3)
	store := newMemoryStore()

	result, err := newTestPipeline(store, &stubEmbedder{}, nil).Ingest(context.Background(), notes, status)
	require.NoError(t, err)

	assert.Equal(t, 5, result.Candidates)
	assert.Equal(t, 3, result.Helpful)
	assert.Equal(t, 2, result.Filtered)
	assert.Equal(t, 3, result.Processed)
	assert.Equal(t, 1, result.Batches)
	assert.NotEmpty(t, result.RunID)
	assert.Len(t, store.rows, 3)
	assert.NotContains(t, store.rows, int64(4))

	row := store.rows[2]
	assert.Equal(t, "summary number 2", row.SummaryText)
	assert.Len(t, row.Embedding, 384)
	require.NotNil(t, row.TweetURL)
	assert.Equal(t, "https://twitter.com/i/web/status/5002", *row.TweetURL)
}

func TestPipeline_BatchBoundaries(t *testing.T) {
	tests := []struct {
		rows    int
		batches int
		sizes   []int
	}{
		{1000, 1, []int{1000}},
		{1001, 2, []int{1000, 1}},
		{2500, 3, []int{1000, 1000, 500}},
	}

	for _, tt := range tests {
		notes, status := writeDataset(t, tt.rows, tt.rows)
		store := newMemoryStore()
		publisher := &recordingPublisher{}

		var progress [][2]int
		p := newTestPipeline(store, &stubEmbedder{}, publisher)
		p.OnProgress(func(processed, total int) {
			progress = append(progress, [2]int{processed, total})
		})

		result, err := p.Ingest(context.Background(), notes, status)
		require.NoError(t, err)
		assert.Equal(t, tt.batches, result.Batches)
		assert.Equal(t, tt.rows, result.Processed)

		var sizes []int
		for _, b := range store.batches {
			sizes = append(sizes, len(b))
		}
		assert.Equal(t, tt.sizes, sizes)
		assert.Len(t, progress, tt.batches)
		assert.Equal(t, [2]int{tt.rows, tt.rows}, progress[len(progress)-1])

		require.Len(t, publisher.events, tt.batches)
		last := publisher.events[tt.batches-1]
		assert.Equal(t, result.RunID, last.RunID)
		assert.Equal(t, tt.batches, last.BatchIndex)
		assert.Equal(t, tt.rows, last.Processed)
		assert.Equal(t, tt.rows, last.Total)
	}
}

func TestPipeline_FailureKeepsEarlierBatches(t *testing.T) {
	notes, status := writeDataset(t, 1500, 1500)
	store := newMemoryStore()
	store.failOnCall = 2

	before := testutil.ToFloat64(metrics.IngestBatches.WithLabelValues("failed"))
	result, err := newTestPipeline(store, &stubEmbedder{}, nil).Ingest(context.Background(), notes, status)
	require.Error(t, err)

	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeBatchWrite))
	assert.Equal(t, map[string]int{"batch": 2, "committed": 1000}, apperrors.GetAppError(err).Details)
	assert.Equal(t, 1000, result.Processed)
	assert.Equal(t, 1, result.Batches)
	assert.Len(t, store.rows, 1000)
	assert.Equal(t, 2, store.calls)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.IngestBatches.WithLabelValues("failed")))
}

func TestPipeline_ReingestDoesNotDuplicate(t *testing.T) {
	notes, status := writeDataset(t, 10, 10)
	store := newMemoryStore()
	p := newTestPipeline(store, &stubEmbedder{}, nil)

	_, err := p.Ingest(context.Background(), notes, status)
	require.NoError(t, err)
	_, err = p.Ingest(context.Background(), notes, status)
	require.NoError(t, err)

	total, _ := store.Count(context.Background())
	assert.Equal(t, int64(10), total)
}

func TestPipeline_NoHelpfulNotes(t *testing.T) {
	notes, status := writeDataset(t, 4, 0)
	store := newMemoryStore()
	embedder := &stubEmbedder{}

	result, err := newTestPipeline(store, embedder, nil).Ingest(context.Background(), notes, status)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeEmptyInput))
	assert.False(t, apperrors.GetAppError(err).Fatal())
	assert.Zero(t, result.Processed)
	assert.Zero(t, embedder.calls)
	assert.Zero(t, store.calls)
}

func TestPipeline_BlankSummariesNotEmbedded(t *testing.T) {
	dir := t.TempDir()
	notes := writeFile(t, dir, "notes.tsv",
		"noteId\ttweetId\tsummary",
		"1\t5001\tthe quote is fabricated",
		"2\t5002\t \t ",
		"3\t5003\t",
	)
	status := writeFile(t, dir, "status.tsv",
		"noteId\tcurrentStatus",
		"1\tCURRENTLY_RATED_HELPFUL",
		"2\tCURRENTLY_RATED_HELPFUL",
		"3\tCURRENTLY_RATED_HELPFUL",
	)
	store := newMemoryStore()
	embedder := &stubEmbedder{}
	blankBefore := testutil.ToFloat64(metrics.IngestRows.WithLabelValues(metrics.StageBlank))

	result, err := newTestPipeline(store, embedder, nil).Ingest(context.Background(), notes, status)
	require.NoError(t, err)

	assert.Equal(t, []string{"the quote is fabricated"}, embedder.texts)
	assert.Equal(t, 2, result.Blank)
	assert.Equal(t, 1, result.Helpful)
	assert.Equal(t, 1, result.Processed)
	assert.Len(t, store.rows, 1)
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.IngestRows.WithLabelValues(metrics.StageBlank))-blankBefore)
}

func TestPipeline_AllSummariesBlank(t *testing.T) {
	dir := t.TempDir()
	notes := writeFile(t, dir, "notes.tsv", "noteId\tsummary", "1\t  ")
	status := writeFile(t, dir, "status.tsv", "noteId\tcurrentStatus", "1\tCURRENTLY_RATED_HELPFUL")
	embedder := &stubEmbedder{}

	result, err := newTestPipeline(newMemoryStore(), embedder, nil).Ingest(context.Background(), notes, status)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeEmptyInput))
	assert.Equal(t, 1, result.Blank)
	assert.Zero(t, embedder.calls)
}

func TestPipeline_EmbeddingFailure(t *testing.T) {
	notes, status := writeDataset(t, 3, 3)
	store := newMemoryStore()

	_, err := newTestPipeline(store, &stubEmbedder{err: errors.New("connection refused")}, nil).
		Ingest(context.Background(), notes, status)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeEmbedding))
	assert.Zero(t, store.calls)
}

func TestPipeline_PublishFailureIsNotFatal(t *testing.T) {
	notes, status := writeDataset(t, 3, 3)
	publisher := &recordingPublisher{err: errors.New("broker unavailable")}

	result, err := newTestPipeline(newMemoryStore(), &stubEmbedder{}, publisher).Ingest(context.Background(), notes, status)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Processed)
	assert.Len(t, publisher.events, 1)
}

func TestPipeline_InputFileError(t *testing.T) {
	notes, _ := writeDataset(t, 3, 3)

	_, err := newTestPipeline(newMemoryStore(), &stubEmbedder{}, nil).
		Ingest(context.Background(), notes, "/does/not/exist.tsv")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInputFile))
}

func TestPipeline_Cancelled(t *testing.T) {
	notes, status := writeDataset(t, 3, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := newMemoryStore()
	_, err := newTestPipeline(store, &stubEmbedder{}, nil).Ingest(ctx, notes, status)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, store.calls)
}
