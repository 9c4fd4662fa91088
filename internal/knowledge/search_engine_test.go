package knowledge

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/truthengine/backend-go/internal/errors"
	"github.com/truthengine/backend-go/internal/metrics"
)

type mockNoteStore struct {
	mock.Mock
}

func (m *mockNoteStore) UpsertNotes(ctx context.Context, notes []NoteRecord) error {
	return m.Called(ctx, notes).Error(0)
}

func (m *mockNoteStore) Nearest(ctx context.Context, embedding []float32, k int) ([]NearestNote, error) {
	args := m.Called(ctx, embedding, k)
	notes, _ := args.Get(0).([]NearestNote)
	return notes, args.Error(1)
}

func (m *mockNoteStore) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func TestSearchEngine_Match(t *testing.T) {
	store := new(mockNoteStore)
	embedder := newFakeEmbedder()
	store.On("Nearest", mock.Anything, embedder.vector("5g spreads viruses"), 3).Return([]NearestNote{
		{NoteID: 1, SummaryText: "5G does not spread viruses.", Distance: 0.21},
		{NoteID: 2, SummaryText: "Unrelated", Distance: 0.8},
	}, nil)

	before := testutil.ToFloat64(metrics.SearchQueries.WithLabelValues(metrics.OutcomeMatch))
	engine := NewSearchEngine(embedder, store, 3, 0.4, zap.NewNop())
	result, err := engine.Search(context.Background(), "  5g spreads viruses ")
	require.NoError(t, err)

	assert.Equal(t, "5g spreads viruses", result.Query)
	assert.True(t, result.Matched)
	assert.False(t, result.NoData)
	require.Len(t, result.Verdicts, 2)
	assert.True(t, result.Verdicts[0].Match)
	assert.False(t, result.Verdicts[1].Match)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.SearchQueries.WithLabelValues(metrics.OutcomeMatch)))
	store.AssertExpectations(t)
}

func TestSearchEngine_BoundaryIsNotAMatch(t *testing.T) {
	store := new(mockNoteStore)
	store.On("Nearest", mock.Anything, mock.Anything, 3).Return([]NearestNote{
		{NoteID: 1, SummaryText: "edge", Distance: 0.4},
	}, nil)

	result, err := NewSearchEngine(newFakeEmbedder(), store, 3, 0.4, zap.NewNop()).Search(context.Background(), "q")
	require.NoError(t, err)
	assert.False(t, result.Matched)
	assert.InDelta(t, 80.0, result.Verdicts[0].Similarity, 1e-9)
}

func TestSearchEngine_EmptyStore(t *testing.T) {
	store := new(mockNoteStore)
	store.On("Nearest", mock.Anything, mock.Anything, 3).Return(nil, nil)

	result, err := NewSearchEngine(newFakeEmbedder(), store, 3, 0.4, zap.NewNop()).Search(context.Background(), "anything")
	require.NoError(t, err)
	assert.True(t, result.NoData)
	assert.False(t, result.Matched)
	assert.Empty(t, result.Verdicts)
}

func TestSearchEngine_EmptyQuery(t *testing.T) {
	store := new(mockNoteStore)
	embedder := newFakeEmbedder()

	_, err := NewSearchEngine(embedder, store, 3, 0.4, zap.NewNop()).Search(context.Background(), " \t ")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidInput))
	assert.Zero(t, embedder.calls)
	store.AssertNotCalled(t, "Nearest", mock.Anything, mock.Anything, mock.Anything)
}

func TestSearchEngine_Failures(t *testing.T) {
	store := new(mockNoteStore)
	store.On("Nearest", mock.Anything, mock.Anything, 3).Return(nil, errors.New("connection reset"))

	_, err := NewSearchEngine(newFakeEmbedder(), store, 3, 0.4, zap.NewNop()).Search(context.Background(), "q")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeQuery))

	embedder := newFakeEmbedder()
	embedder.err = apperrors.NewEmbeddingError("embedding request failed", errors.New("timeout"))
	_, err = NewSearchEngine(embedder, store, 3, 0.4, zap.NewNop()).Search(context.Background(), "q")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeEmbedding))
}

func TestSearchEngine_Stats(t *testing.T) {
	store := new(mockNoteStore)
	store.On("Count", mock.Anything).Return(int64(12), nil).Once()
	store.On("Count", mock.Anything).Return(int64(0), errors.New("down")).Once()

	engine := NewSearchEngine(newFakeEmbedder(), store, 3, 0.4, zap.NewNop())
	total, err := engine.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(12), total)

	_, err = engine.Stats(context.Background())
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeQuery))
}
