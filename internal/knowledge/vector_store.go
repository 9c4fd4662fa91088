package knowledge

import "context"

// NoteRecord 待写入的已嵌入笔记
type NoteRecord struct {
	NoteID      int64
	SummaryText string
	Embedding   []float32
	TweetID     *int64
	TweetURL    *string
}

// NearestNote 近邻检索命中，Distance 为余弦距离 (0..2)
type NearestNote struct {
	NoteID      int64   `gorm:"column:note_id" json:"note_id"`
	SummaryText string  `gorm:"column:summary_text" json:"summary"`
	TweetURL    *string `gorm:"column:tweet_url" json:"source,omitempty"`
	Distance    float64 `gorm:"column:distance" json:"distance"`
}

// Source 返回笔记对应推文地址，未知时为空
func (n NearestNote) Source() string {
	if n.TweetURL == nil {
		return ""
	}
	return *n.TweetURL
}

// NoteStore 笔记向量存储抽象
type NoteStore interface {
	// UpsertNotes 在单个事务中按 note_id 插入或覆盖，失败时整批回滚
	UpsertNotes(ctx context.Context, notes []NoteRecord) error
	// Nearest 按余弦距离升序返回前 k 条
	Nearest(ctx context.Context, embedding []float32, k int) ([]NearestNote, error)
	Count(ctx context.Context) (int64, error)
}
