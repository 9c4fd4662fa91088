package knowledge

import (
	"context"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/truthengine/backend-go/internal/models"
)

// 已标记为 Missing 的推文不再重试
const pendingTweetsQuery = `SELECT note_id, tweet_id
FROM community_notes
WHERE tweet_id IS NOT NULL
  AND tweet_text IS NULL
  AND (tweet_format IS NULL OR tweet_format <> ?)
  AND note_id > ?
ORDER BY note_id ASC
LIMIT ?`

// PendingTweet 尚未补全推文内容的笔记
type PendingTweet struct {
	NoteID  int64 `gorm:"column:note_id"`
	TweetID int64 `gorm:"column:tweet_id"`
}

// TweetUpdate 一条推文补全结果；Missing 为 true 时只写入 tweet_format
type TweetUpdate struct {
	NoteID  int64
	Text    string
	Format  string
	Vector  []float32
	Missing bool
}

// TweetStore 推文补全所需的存储操作
type TweetStore interface {
	// PendingTweets 按 note_id 升序返回 afterNoteID 之后的待补全笔记
	PendingTweets(ctx context.Context, afterNoteID int64, limit int) ([]PendingTweet, error)
	// SaveTweets 在单个事务中写入一批结果
	SaveTweets(ctx context.Context, updates []TweetUpdate) error
	CountEnriched(ctx context.Context) (int64, error)
}

func (s *PGNoteStore) PendingTweets(ctx context.Context, afterNoteID int64, limit int) ([]PendingTweet, error) {
	var pending []PendingTweet
	err := s.db.WithContext(ctx).
		Raw(pendingTweetsQuery, models.TweetFormatMissing, afterNoteID, limit).
		Scan(&pending).Error
	if err != nil {
		return nil, err
	}
	return pending, nil
}

func (s *PGNoteStore) SaveTweets(ctx context.Context, updates []TweetUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, u := range updates {
			values := map[string]interface{}{"tweet_format": models.TweetFormatMissing}
			if !u.Missing {
				values = map[string]interface{}{
					"tweet_text":   u.Text,
					"tweet_format": u.Format,
					"tweet_vector": pgvector.NewVector(u.Vector),
				}
			}
			if err := tx.Model(&models.Note{}).Where("note_id = ?", u.NoteID).Updates(values).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// CountEnriched 已取得推文正文的笔记数
func (s *PGNoteStore) CountEnriched(ctx context.Context) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).Model(&models.Note{}).Where("tweet_text IS NOT NULL").Count(&total).Error
	return total, err
}
