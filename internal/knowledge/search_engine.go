package knowledge

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/truthengine/backend-go/internal/errors"
	"github.com/truthengine/backend-go/internal/metrics"
)

// SearchResult 一次检索的完整结果
type SearchResult struct {
	Query    string    `json:"query"`
	Matched  bool      `json:"matched"`
	NoData   bool      `json:"no_data"`
	Verdicts []Verdict `json:"results"`
}

// SearchEngine 嵌入查询文本并在笔记库中检索近邻
type SearchEngine struct {
	embedder  Embedder
	store     NoteStore
	topK      int
	threshold float64
	logger    *zap.Logger
}

func NewSearchEngine(embedder Embedder, store NoteStore, topK int, threshold float64, logger *zap.Logger) *SearchEngine {
	return &SearchEngine{
		embedder:  embedder,
		store:     store,
		topK:      topK,
		threshold: threshold,
		logger:    logger,
	}
}

func (e *SearchEngine) Threshold() float64 {
	return e.threshold
}

// Search 空查询返回 InvalidInput；嵌入失败原样返回，存储失败包装为 QueryError
func (e *SearchEngine) Search(ctx context.Context, query string) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.NewInvalidInputError("query", "query is empty")
	}

	vec, err := e.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	return e.SearchVector(ctx, query, vec)
}

// EmbedQuery 使用与入库相同的模型嵌入查询文本
func (e *SearchEngine) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		metrics.SearchQueries.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, err
	}
	return vec, nil
}

// SearchVector 查询最近的 topK 条并按阈值判定
func (e *SearchEngine) SearchVector(ctx context.Context, query string, vec []float32) (*SearchResult, error) {
	start := time.Now()
	nearest, err := e.store.Nearest(ctx, vec, e.topK)
	metrics.SearchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SearchQueries.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, apperrors.NewQueryError(err)
	}

	result := &SearchResult{
		Query:    query,
		Verdicts: Classify(nearest, e.threshold),
	}
	for _, v := range result.Verdicts {
		if v.Match {
			result.Matched = true
			break
		}
	}

	switch {
	case len(result.Verdicts) == 0:
		result.NoData = true
		metrics.SearchQueries.WithLabelValues(metrics.OutcomeNoData).Inc()
	case result.Matched:
		metrics.SearchQueries.WithLabelValues(metrics.OutcomeMatch).Inc()
	default:
		metrics.SearchQueries.WithLabelValues(metrics.OutcomeNoMatch).Inc()
	}

	e.logger.Debug("search completed",
		zap.Int("results", len(result.Verdicts)),
		zap.Bool("matched", result.Matched),
		zap.Duration("duration", time.Since(start)))
	return result, nil
}

// Stats 返回笔记总数
func (e *SearchEngine) Stats(ctx context.Context) (int64, error) {
	total, err := e.store.Count(ctx)
	if err != nil {
		return 0, apperrors.NewQueryError(err)
	}
	return total, nil
}
