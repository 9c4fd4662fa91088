package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/truthengine/backend-go/internal/config"
	apperrors "github.com/truthengine/backend-go/internal/errors"
	"github.com/truthengine/backend-go/internal/knowledge"
	"github.com/truthengine/backend-go/internal/metrics"
	"github.com/truthengine/backend-go/internal/models"
)

const tweetURLFormat = "https://twitter.com/i/web/status/%d"

// BatchPublisher 批次提交事件发布者
type BatchPublisher interface {
	PublishIngestBatch(ctx context.Context, event models.IngestBatchEvent) error
}

// ProgressFunc 每个批次提交后回调
type ProgressFunc func(processed, total int)

// Result 一次入库运行的汇总
type Result struct {
	RunID      string        `json:"run_id"`
	Candidates int           `json:"candidates"`
	Helpful    int           `json:"helpful"`
	Filtered   int           `json:"filtered"`
	Blank      int           `json:"blank"`
	Duplicates int           `json:"duplicates"`
	Processed  int           `json:"processed"`
	Batches    int           `json:"batches"`
	Duration   time.Duration `json:"duration"`
}

// Pipeline 读取、过滤、嵌入并分批写入社区笔记
type Pipeline struct {
	store         knowledge.NoteStore
	embedder      knowledge.Embedder
	publisher     BatchPublisher
	logger        *zap.Logger
	batchSize     int
	helpfulStatus string
	progress      ProgressFunc
}

// NewPipeline publisher 可为 nil
func NewPipeline(store knowledge.NoteStore, embedder knowledge.Embedder, publisher BatchPublisher, cfg config.IngestConfig, logger *zap.Logger) *Pipeline {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 1000
	}
	status := cfg.HelpfulStatus
	if status == "" {
		status = config.HelpfulStatus
	}
	return &Pipeline{
		store:         store,
		embedder:      embedder,
		publisher:     publisher,
		logger:        logger,
		batchSize:     batchSize,
		helpfulStatus: status,
	}
}

// OnProgress 设置进度回调
func (p *Pipeline) OnProgress(fn ProgressFunc) {
	p.progress = fn
}

// Ingest 批次严格顺序执行；某批失败时停止，之前已提交的批次保留。
// 返回的 Result 在出错时同样有效，反映失败前的进度。
func (p *Pipeline) Ingest(ctx context.Context, notesPath, statusPath string) (*Result, error) {
	start := time.Now()
	result := &Result{RunID: uuid.NewString()}
	defer func() {
		result.Duration = time.Since(start)
	}()

	log := p.logger.With(zap.String("run_id", result.RunID))

	helpful, err := ReadHelpfulNoteIDs(statusPath, p.helpfulStatus)
	if err != nil {
		return result, err
	}
	rows, stats, err := ReadHelpfulNotes(notesPath, helpful)
	if err != nil {
		return result, err
	}

	result.Candidates = stats.Read
	result.Helpful = stats.Helpful
	result.Filtered = stats.Filtered
	result.Blank = stats.Blank
	result.Duplicates = stats.Duplicates
	metrics.IngestRows.WithLabelValues(metrics.StageRead).Add(float64(stats.Read))
	metrics.IngestRows.WithLabelValues(metrics.StageHelpful).Add(float64(stats.Helpful))
	metrics.IngestRows.WithLabelValues(metrics.StageFiltered).Add(float64(stats.Filtered))
	metrics.IngestRows.WithLabelValues(metrics.StageBlank).Add(float64(stats.Blank))

	log.Info("Loaded community notes",
		zap.Int("candidates", stats.Read),
		zap.Int("helpful", stats.Helpful),
		zap.Int("filtered", stats.Filtered),
		zap.Int("blank", stats.Blank),
		zap.Int("duplicates", stats.Duplicates))

	if len(rows) == 0 {
		return result, apperrors.NewEmptyInputError("no helpful notes to ingest")
	}

	total := len(rows)
	for offset := 0; offset < total; offset += p.batchSize {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("ingestion cancelled after %d rows: %w", result.Processed, err)
		}

		batchIndex := result.Batches + 1
		batch := rows[offset:min(offset+p.batchSize, total)]

		if err := p.writeBatch(ctx, batchIndex, batch, result.Processed); err != nil {
			metrics.IngestBatches.WithLabelValues("failed").Inc()
			return result, err
		}

		result.Batches++
		result.Processed += len(batch)
		metrics.IngestBatches.WithLabelValues("committed").Inc()
		metrics.IngestRows.WithLabelValues(metrics.StageWritten).Add(float64(len(batch)))

		log.Info("Batch committed",
			zap.Int("batch", batchIndex),
			zap.String("progress", fmt.Sprintf("%d/%d", result.Processed, total)))
		if p.progress != nil {
			p.progress(result.Processed, total)
		}
		p.publish(ctx, log, models.IngestBatchEvent{
			RunID:       result.RunID,
			BatchIndex:  batchIndex,
			Rows:        len(batch),
			Processed:   result.Processed,
			Total:       total,
			CommittedAt: time.Now().UTC(),
		})
	}

	log.Info("Ingestion completed",
		zap.Int("processed", result.Processed),
		zap.Int("batches", result.Batches),
		zap.Duration("duration", time.Since(start)))
	return result, nil
}

func (p *Pipeline) writeBatch(ctx context.Context, batchIndex int, batch []NoteRow, committed int) error {
	start := time.Now()
	defer func() {
		metrics.IngestBatchDuration.Observe(time.Since(start).Seconds())
	}()

	texts := make([]string, len(batch))
	for i, row := range batch {
		texts[i] = row.Summary
	}

	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		if apperrors.HasCode(err, apperrors.ErrCodeEmbedding) {
			return err
		}
		return apperrors.NewEmbeddingError(fmt.Sprintf("batch %d embedding failed", batchIndex), err)
	}
	if len(vectors) != len(batch) {
		return apperrors.NewEmbeddingError(
			fmt.Sprintf("batch %d: got %d embeddings for %d notes", batchIndex, len(vectors), len(batch)), nil)
	}

	records := make([]knowledge.NoteRecord, len(batch))
	for i, row := range batch {
		records[i] = knowledge.NoteRecord{
			NoteID:      row.NoteID,
			SummaryText: row.Summary,
			Embedding:   vectors[i],
			TweetID:     row.TweetID,
			TweetURL:    tweetURL(row.TweetID),
		}
	}

	if err := p.store.UpsertNotes(ctx, records); err != nil {
		return apperrors.NewBatchWriteError(batchIndex, committed, err)
	}
	return nil
}

func (p *Pipeline) publish(ctx context.Context, log *zap.Logger, event models.IngestBatchEvent) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.PublishIngestBatch(ctx, event); err != nil {
		log.Warn("Failed to publish batch event", zap.Int("batch", event.BatchIndex), zap.Error(err))
	}
}

func tweetURL(tweetID *int64) *string {
	if tweetID == nil {
		return nil
	}
	url := fmt.Sprintf(tweetURLFormat, *tweetID)
	return &url
}
