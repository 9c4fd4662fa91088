package knowledge

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/truthengine/backend-go/internal/errors"
)

func TestKeywordStore_Seed(t *testing.T) {
	db, mock := newMockDB(t)
	embedder := newFakeEmbedder()
	store := NewKeywordStore(db, embedder)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "keyword_filters" \("keyword","keyword_vector"\) VALUES .* ON CONFLICT \("keyword"\) DO UPDATE SET "keyword_vector"="excluded"."keyword_vector"`).
		WithArgs("AI generated", sqlmock.AnyArg(), "AI video", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	n, err := store.Seed(context.Background(), []string{"AI generated", " AI video ", "AI generated", ""})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, embedder.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKeywordStore_SeedNothing(t *testing.T) {
	db, _ := newMockDB(t)
	_, err := NewKeywordStore(db, newFakeEmbedder()).Seed(context.Background(), []string{" "})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeEmptyInput))
}

func TestKeywordStore_Match(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewKeywordStore(db, newFakeEmbedder())

	mock.ExpectQuery(`SELECT count\(\*\) FROM "keyword_filters" WHERE keyword = \$1`).
		WithArgs("AI video").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery(`FROM community_notes n, keyword_filters k`).
		WithArgs("AI video", 0.5, int64(50)).
		WillReturnRows(sqlmock.NewRows([]string{"note_id", "summary_text", "tweet_url", "distance"}).
			AddRow(int64(9), "This video was generated with AI.", nil, 0.31))

	results, err := store.Match(context.Background(), "AI video", 0.5, 50)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(9), results[0].NoteID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKeywordStore_MatchUnknownKeyword(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT count\(\*\) FROM "keyword_filters"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(0)))

	_, err := NewKeywordStore(db, newFakeEmbedder()).Match(context.Background(), "deepfake", 0.5, 50)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidInput))
	assert.NoError(t, mock.ExpectationsWereMet())
}
