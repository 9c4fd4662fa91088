package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/truthengine/backend-go/internal/config"
	apperrors "github.com/truthengine/backend-go/internal/errors"
	"github.com/truthengine/backend-go/internal/knowledge"
	"github.com/truthengine/backend-go/internal/metrics"
)

// Result 一次补全运行的汇总
type Result struct {
	Processed int           `json:"processed"`
	Found     int           `json:"found"`
	Missing   int           `json:"missing"`
	Failed    int           `json:"failed"`
	Batches   int           `json:"batches"`
	Duration  time.Duration `json:"duration"`
}

// Enricher 为已入库的笔记补全推文正文、形式与推文向量。
// 批次顺序执行，请求之间按配置间隔；单条请求失败跳过，不重试。
type Enricher struct {
	store     knowledge.TweetStore
	fetcher   TweetFetcher
	embedder  knowledge.Embedder
	batchSize int
	delay     time.Duration
	logger    *zap.Logger
}

func NewEnricher(store knowledge.TweetStore, fetcher TweetFetcher, embedder knowledge.Embedder, cfg config.EnrichConfig, logger *zap.Logger) *Enricher {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Enricher{
		store:     store,
		fetcher:   fetcher,
		embedder:  embedder,
		batchSize: batchSize,
		delay:     cfg.RequestDelay,
		logger:    logger,
	}
}

// Run 按 note_id 游标遍历一次待补全的笔记。失败跳过的行留待下次运行。
func (e *Enricher) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	result := &Result{}
	defer func() {
		result.Duration = time.Since(start)
	}()

	var after int64
	for {
		pending, err := e.store.PendingTweets(ctx, after, e.batchSize)
		if err != nil {
			return result, apperrors.NewQueryError(err)
		}
		if len(pending) == 0 {
			break
		}
		after = pending[len(pending)-1].NoteID

		batchIndex := result.Batches + 1
		updates, err := e.lookup(ctx, pending, result)
		if err != nil {
			return result, err
		}
		if err := e.embed(ctx, batchIndex, updates); err != nil {
			return result, err
		}
		if err := e.store.SaveTweets(ctx, updates); err != nil {
			return result, apperrors.NewBatchWriteError(batchIndex, result.Found+result.Missing, err)
		}

		result.Batches++
		for _, u := range updates {
			if u.Missing {
				result.Missing++
			} else {
				result.Found++
			}
		}

		e.logger.Info("Enrichment batch committed",
			zap.Int("batch", batchIndex),
			zap.Int("processed", result.Processed),
			zap.Int("found", result.Found),
			zap.Int("missing", result.Missing),
			zap.Int("failed", result.Failed))
	}

	e.logger.Info("Enrichment completed",
		zap.Int("processed", result.Processed),
		zap.Int("found", result.Found),
		zap.Int("missing", result.Missing),
		zap.Int("failed", result.Failed),
		zap.Duration("duration", time.Since(start)))
	return result, nil
}

func (e *Enricher) lookup(ctx context.Context, pending []knowledge.PendingTweet, result *Result) ([]knowledge.TweetUpdate, error) {
	updates := make([]knowledge.TweetUpdate, 0, len(pending))
	for _, p := range pending {
		if result.Processed > 0 {
			if err := e.wait(ctx); err != nil {
				return nil, fmt.Errorf("enrichment cancelled after %d tweets: %w", result.Processed, err)
			}
		}
		result.Processed++

		tweet, err := e.fetcher.Fetch(ctx, p.TweetID)
		switch {
		case errors.Is(err, ErrTweetNotFound):
			metrics.EnrichTweets.WithLabelValues(metrics.TweetMissing).Inc()
			updates = append(updates, knowledge.TweetUpdate{NoteID: p.NoteID, Missing: true})
		case err != nil:
			if ctx.Err() != nil {
				return nil, fmt.Errorf("enrichment cancelled after %d tweets: %w", result.Processed, ctx.Err())
			}
			result.Failed++
			metrics.EnrichTweets.WithLabelValues(metrics.TweetFailed).Inc()
			e.logger.Warn("Failed to fetch tweet", zap.Int64("tweet_id", p.TweetID), zap.Error(err))
		case strings.TrimSpace(tweet.Text) == "":
			// 无正文可嵌入，按缺失处理
			metrics.EnrichTweets.WithLabelValues(metrics.TweetMissing).Inc()
			updates = append(updates, knowledge.TweetUpdate{NoteID: p.NoteID, Missing: true})
		default:
			metrics.EnrichTweets.WithLabelValues(metrics.TweetFound).Inc()
			updates = append(updates, knowledge.TweetUpdate{NoteID: p.NoteID, Text: tweet.Text, Format: tweet.Format})
		}
	}
	return updates, nil
}

// embed 一次请求嵌入本批全部推文正文
func (e *Enricher) embed(ctx context.Context, batchIndex int, updates []knowledge.TweetUpdate) error {
	var (
		texts []string
		index []int
	)
	for i, u := range updates {
		if !u.Missing {
			texts = append(texts, u.Text)
			index = append(index, i)
		}
	}
	if len(texts) == 0 {
		return nil
	}

	vectors, err := e.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		if apperrors.HasCode(err, apperrors.ErrCodeEmbedding) {
			return err
		}
		return apperrors.NewEmbeddingError(fmt.Sprintf("enrichment batch %d embedding failed", batchIndex), err)
	}
	if len(vectors) != len(texts) {
		return apperrors.NewEmbeddingError(
			fmt.Sprintf("enrichment batch %d: got %d embeddings for %d tweets", batchIndex, len(vectors), len(texts)), nil)
	}
	for j, i := range index {
		updates[i].Vector = vectors[j]
	}
	return nil
}

func (e *Enricher) wait(ctx context.Context) error {
	if e.delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(e.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
