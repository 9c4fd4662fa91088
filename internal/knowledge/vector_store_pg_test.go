package knowledge

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/truthengine/backend-go/internal/config"
	"github.com/truthengine/backend-go/internal/database"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func sampleRecords(n int) []NoteRecord {
	embedder := newFakeEmbedder()
	records := make([]NoteRecord, n)
	for i := range records {
		records[i] = NoteRecord{
			NoteID:      int64(1000 + i),
			SummaryText: "note",
			Embedding:   embedder.vector("note"),
		}
	}
	return records
}

func TestPGNoteStore_UpsertNotes(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewPGNoteStore(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "community_notes" \("note_id","summary_text","embedding","tweet_id","tweet_url"\) VALUES .* ON CONFLICT \("note_id"\) DO UPDATE SET "summary_text"="excluded"."summary_text","embedding"="excluded"."embedding","tweet_id"="excluded"."tweet_id","tweet_url"="excluded"."tweet_url"`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := store.UpsertNotes(context.Background(), sampleRecords(2))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGNoteStore_UpsertNotesRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewPGNoteStore(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "community_notes"`).WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	err := store.UpsertNotes(context.Background(), sampleRecords(3))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deadlock detected")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGNoteStore_UpsertNotesEmpty(t *testing.T) {
	db, mock := newMockDB(t)
	require.NoError(t, NewPGNoteStore(db).UpsertNotes(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGNoteStore_Nearest(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewPGNoteStore(db)

	url := "https://twitter.com/i/web/status/7"
	mock.ExpectQuery(`SELECT note_id, summary_text, tweet_url, embedding <=> \$1 AS distance\s+FROM community_notes`).
		WithArgs(sqlmock.AnyArg(), int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"note_id", "summary_text", "tweet_url", "distance"}).
			AddRow(int64(1), "first", url, 0.12).
			AddRow(int64(2), "second", nil, 0.55))

	results, err := store.Nearest(context.Background(), newFakeEmbedder().vector("q"), 3)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, int64(1), results[0].NoteID)
	assert.Equal(t, url, results[0].Source())
	assert.InDelta(t, 0.12, results[0].Distance, 1e-9)
	assert.Empty(t, results[1].Source())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGNoteStore_NearestEmptyStore(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`FROM community_notes`).
		WillReturnRows(sqlmock.NewRows([]string{"note_id", "summary_text", "tweet_url", "distance"}))

	results, err := NewPGNoteStore(db).Nearest(context.Background(), newFakeEmbedder().vector("q"), 3)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestPGNoteStore_Count(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT count\(\*\) FROM "community_notes"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(42)))

	total, err := NewPGNoteStore(db).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), total)
}

// 需要带 pgvector 的真实数据库
func TestPGNoteStore_RoundTrip(t *testing.T) {
	dbURL := os.Getenv("TEST_DB_URL")
	if dbURL == "" {
		t.Skip("Skipping round trip test: TEST_DB_URL not set")
	}

	ctx := context.Background()
	cfg := config.DatabaseConfig{URL: dbURL}

	sqlDB, err := database.OpenSQL(ctx, cfg)
	require.NoError(t, err)
	defer sqlDB.Close()
	require.NoError(t, database.NewSchemaInitializer(sqlDB, logrus.New()).Initialize(ctx))

	db, err := database.Open(ctx, cfg)
	require.NoError(t, err)
	defer database.Close(db)

	ids := []int64{990000001, 990000002}
	cleanup := func() { db.Exec("DELETE FROM community_notes WHERE note_id IN ?", ids) }
	cleanup()
	defer cleanup()

	embedder := newFakeEmbedder()
	texts := []string{"Vaccines do not contain microchips.", "The photo is from 2015, not this week."}
	records := make([]NoteRecord, len(texts))
	for i, text := range texts {
		records[i] = NoteRecord{NoteID: ids[i], SummaryText: text, Embedding: embedder.vector(text)}
	}

	store := NewPGNoteStore(db)
	require.NoError(t, store.UpsertNotes(ctx, records))
	before, err := store.Count(ctx)
	require.NoError(t, err)

	// 重复入库不产生新行
	require.NoError(t, store.UpsertNotes(ctx, records))
	after, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	engine := NewSearchEngine(embedder, store, 3, 0.4, zap.NewNop())
	result, err := engine.Search(ctx, texts[0])
	require.NoError(t, err)
	require.NotEmpty(t, result.Verdicts)
	assert.Equal(t, ids[0], result.Verdicts[0].NoteID)
	assert.InDelta(t, 0.0, result.Verdicts[0].Distance, 1e-6)
	assert.True(t, result.Matched)
}
