package knowledge

import (
	"context"
	"strings"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "github.com/truthengine/backend-go/internal/errors"
	"github.com/truthengine/backend-go/internal/models"
)

const keywordMatchQuery = `SELECT n.note_id, n.summary_text, n.tweet_url, n.embedding <=> k.keyword_vector AS distance
FROM community_notes n, keyword_filters k
WHERE k.keyword = ? AND n.embedding <=> k.keyword_vector < ?
ORDER BY distance ASC
LIMIT ?`

type keywordUpsertRow struct {
	Keyword       string          `gorm:"column:keyword"`
	KeywordVector pgvector.Vector `gorm:"column:keyword_vector"`
}

func (keywordUpsertRow) TableName() string {
	return models.KeywordFilter{}.TableName()
}

// KeywordStore 语义关键词过滤器
type KeywordStore struct {
	db       *gorm.DB
	embedder Embedder
}

func NewKeywordStore(db *gorm.DB, embedder Embedder) *KeywordStore {
	return &KeywordStore{db: db, embedder: embedder}
}

// Seed 嵌入关键词并按 keyword upsert，返回写入数量
func (s *KeywordStore) Seed(ctx context.Context, keywords []string) (int, error) {
	cleaned := make([]string, 0, len(keywords))
	seen := make(map[string]bool, len(keywords))
	for _, k := range keywords {
		k = strings.TrimSpace(k)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		cleaned = append(cleaned, k)
	}
	if len(cleaned) == 0 {
		return 0, apperrors.NewEmptyInputError("no keywords to seed")
	}

	vectors, err := s.embedder.EmbedBatch(ctx, cleaned)
	if err != nil {
		return 0, err
	}

	rows := make([]keywordUpsertRow, len(cleaned))
	for i, k := range cleaned {
		rows[i] = keywordUpsertRow{Keyword: k, KeywordVector: pgvector.NewVector(vectors[i])}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "keyword"}},
			DoUpdates: clause.AssignmentColumns([]string{"keyword_vector"}),
		}).Create(&rows).Error
	})
	if err != nil {
		return 0, apperrors.NewBatchWriteError(1, 0, err)
	}
	return len(rows), nil
}

// Match 返回与关键词向量距离小于阈值的笔记
func (s *KeywordStore) Match(ctx context.Context, keyword string, threshold float64, limit int) ([]NearestNote, error) {
	keyword = strings.TrimSpace(keyword)

	var seeded int64
	if err := s.db.WithContext(ctx).Model(&models.KeywordFilter{}).
		Where("keyword = ?", keyword).Count(&seeded).Error; err != nil {
		return nil, apperrors.NewQueryError(err)
	}
	if seeded == 0 {
		return nil, apperrors.NewInvalidInputError("keyword", "keyword has not been seeded")
	}

	var results []NearestNote
	if err := s.db.WithContext(ctx).Raw(keywordMatchQuery, keyword, threshold, limit).Scan(&results).Error; err != nil {
		return nil, apperrors.NewQueryError(err)
	}
	return results, nil
}
