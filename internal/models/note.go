package models

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// Note 社区笔记（已评为有用）及其向量
type Note struct {
	ID          uint             `gorm:"primaryKey;column:id" json:"id"`
	NoteID      int64            `gorm:"column:note_id;uniqueIndex;not null" json:"note_id"`
	SummaryText string           `gorm:"column:summary_text;type:text" json:"summary_text"`
	Embedding   pgvector.Vector  `gorm:"column:embedding;type:vector(384)" json:"-"`
	TweetID     *int64           `gorm:"column:tweet_id" json:"tweet_id,omitempty"`
	TweetURL    *string          `gorm:"column:tweet_url;type:text" json:"tweet_url,omitempty"`
	TweetText   *string          `gorm:"column:tweet_text;type:text" json:"tweet_text,omitempty"`
	TweetFormat *string          `gorm:"column:tweet_format;type:text" json:"tweet_format,omitempty"`
	TweetVector *pgvector.Vector `gorm:"column:tweet_vector;type:vector(384)" json:"-"`
	CreatedAt   time.Time        `gorm:"column:created_at;default:now()" json:"created_at"`
}

// 推文形式
const (
	TweetFormatText    = "Text"
	TweetFormatPhoto   = "Photo"
	TweetFormatVideo   = "Video"
	TweetFormatMissing = "Missing"
)

func (Note) TableName() string {
	return "community_notes"
}

// Source 返回笔记对应推文地址，未知时为空
func (n Note) Source() string {
	if n.TweetURL == nil {
		return ""
	}
	return *n.TweetURL
}

// KeywordFilter 语义关键词过滤器
type KeywordFilter struct {
	ID            uint            `gorm:"primaryKey;column:id" json:"id"`
	Keyword       string          `gorm:"column:keyword;uniqueIndex;not null" json:"keyword"`
	KeywordVector pgvector.Vector `gorm:"column:keyword_vector;type:vector(384)" json:"-"`
	CreatedAt     time.Time       `gorm:"column:created_at;default:now()" json:"created_at"`
}

func (KeywordFilter) TableName() string {
	return "keyword_filters"
}
