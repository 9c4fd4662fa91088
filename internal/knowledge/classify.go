package knowledge

// Verdict 单条检索结果的判定
type Verdict struct {
	Rank       int     `json:"rank"`
	NoteID     int64   `json:"note_id"`
	Summary    string  `json:"summary"`
	Source     string  `json:"source,omitempty"`
	Distance   float64 `json:"distance"`
	Similarity float64 `json:"similarity"`
	Match      bool    `json:"match"`
}

// Similarity 将余弦距离 (0..2) 换算为百分比相似度
func Similarity(distance float64) float64 {
	return (1 - distance/2) * 100
}

// IsMatch 距离严格小于阈值才算命中
func IsMatch(distance, threshold float64) bool {
	return distance < threshold
}

// Classify 保持存储返回的顺序，rank 从 1 开始
func Classify(notes []NearestNote, threshold float64) []Verdict {
	verdicts := make([]Verdict, len(notes))
	for i, n := range notes {
		verdicts[i] = Verdict{
			Rank:       i + 1,
			NoteID:     n.NoteID,
			Summary:    n.SummaryText,
			Source:     n.Source(),
			Distance:   n.Distance,
			Similarity: Similarity(n.Distance),
			Match:      IsMatch(n.Distance, threshold),
		}
	}
	return verdicts
}
