package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/truthengine/backend-go/internal/knowledge"
	"github.com/truthengine/backend-go/internal/models"
)

func writeFile(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

// writeDataset 生成 n 条笔记，其中 helpful 条被评为有用
func writeDataset(t *testing.T, n, helpful int) (string, string) {
	t.Helper()
	dir := t.TempDir()

	notes := []string{"noteId\tparticipantId\ttweetId\tsummary"}
	status := []string{"noteId\tnoteAuthorParticipantId\tcurrentStatus"}
	for i := 1; i <= n; i++ {
		notes = append(notes, fmt.Sprintf("%d\tp%d\t%d\tsummary number %d", i, i, 5000+i, i))
		s := "NEEDS_MORE_RATINGS"
		if i <= helpful {
			s = "CURRENTLY_RATED_HELPFUL"
		}
		status = append(status, fmt.Sprintf("%d\tp%d\t%s", i, i, s))
	}
	return writeFile(t, dir, "notes.tsv", notes...), writeFile(t, dir, "status.tsv", status...)
}

type stubEmbedder struct {
	calls int
	texts []string
	err   error
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	s.calls++
	s.texts = append(s.texts, texts...)
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, 384)
		vec[len(text)%384] = 1
		out[i] = vec
	}
	return out, nil
}

func (s *stubEmbedder) Dimensions() int { return 384 }

func (s *stubEmbedder) Model() string { return "stub" }

// memoryStore 按 note_id upsert 的内存存储，failOnCall 指定第几次写入失败
type memoryStore struct {
	rows       map[int64]knowledge.NoteRecord
	batches    [][]knowledge.NoteRecord
	calls      int
	failOnCall int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{rows: map[int64]knowledge.NoteRecord{}}
}

func (m *memoryStore) UpsertNotes(ctx context.Context, notes []knowledge.NoteRecord) error {
	m.calls++
	if m.calls == m.failOnCall {
		return errors.New("could not serialize access")
	}
	m.batches = append(m.batches, notes)
	for _, n := range notes {
		m.rows[n.NoteID] = n
	}
	return nil
}

func (m *memoryStore) Nearest(ctx context.Context, embedding []float32, k int) ([]knowledge.NearestNote, error) {
	return nil, nil
}

func (m *memoryStore) Count(ctx context.Context) (int64, error) {
	return int64(len(m.rows)), nil
}

type recordingPublisher struct {
	events []models.IngestBatchEvent
	err    error
}

func (r *recordingPublisher) PublishIngestBatch(ctx context.Context, event models.IngestBatchEvent) error {
	r.events = append(r.events, event)
	return r.err
}
