package knowledge

import (
	"context"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/truthengine/backend-go/internal/models"
)

const nearestNotesQuery = `SELECT note_id, summary_text, tweet_url, embedding <=> ? AS distance
FROM community_notes
WHERE embedding IS NOT NULL
ORDER BY distance ASC
LIMIT ?`

// noteUpsertRow 仅包含 upsert 需要写入的列，id 与 created_at 交给数据库默认值
type noteUpsertRow struct {
	NoteID      int64           `gorm:"column:note_id"`
	SummaryText string          `gorm:"column:summary_text"`
	Embedding   pgvector.Vector `gorm:"column:embedding"`
	TweetID     *int64          `gorm:"column:tweet_id"`
	TweetURL    *string         `gorm:"column:tweet_url"`
}

func (noteUpsertRow) TableName() string {
	return models.Note{}.TableName()
}

// PGNoteStore 基于 PostgreSQL + pgvector 的笔记存储
type PGNoteStore struct {
	db *gorm.DB
}

func NewPGNoteStore(db *gorm.DB) *PGNoteStore {
	return &PGNoteStore{db: db}
}

func (s *PGNoteStore) UpsertNotes(ctx context.Context, notes []NoteRecord) error {
	if len(notes) == 0 {
		return nil
	}

	rows := make([]noteUpsertRow, len(notes))
	for i, n := range notes {
		rows[i] = noteUpsertRow{
			NoteID:      n.NoteID,
			SummaryText: n.SummaryText,
			Embedding:   pgvector.NewVector(n.Embedding),
			TweetID:     n.TweetID,
			TweetURL:    n.TweetURL,
		}
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "note_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"summary_text", "embedding", "tweet_id", "tweet_url"}),
		}).Create(&rows).Error
	})
}

func (s *PGNoteStore) Nearest(ctx context.Context, embedding []float32, k int) ([]NearestNote, error) {
	var results []NearestNote
	err := s.db.WithContext(ctx).
		Raw(nearestNotesQuery, pgvector.NewVector(embedding), k).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (s *PGNoteStore) Count(ctx context.Context) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).Model(&models.Note{}).Count(&total).Error
	return total, err
}
