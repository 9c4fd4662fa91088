package models

import "time"

// IngestBatchEvent 每个批次提交后发布的事件
type IngestBatchEvent struct {
	RunID       string    `json:"run_id"`
	BatchIndex  int       `json:"batch_index"`
	Rows        int       `json:"rows"`
	Processed   int       `json:"processed"`
	Total       int       `json:"total"`
	CommittedAt time.Time `json:"committed_at"`
}
