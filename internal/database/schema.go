package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"

	apperrors "github.com/truthengine/backend-go/internal/errors"
)

const (
	vectorExtensionQuery = "SELECT EXISTS (SELECT 1 FROM pg_extension WHERE extname = 'vector')"
	notesTableQuery      = "SELECT to_regclass('public.community_notes') IS NOT NULL"
	notesIndexQuery      = "SELECT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'community_notes_embedding_idx')"
)

// SchemaInitializer 负责建立向量扩展、笔记表与索引，可重复执行
type SchemaInitializer struct {
	db     *sql.DB
	logger *logrus.Logger
}

func NewSchemaInitializer(db *sql.DB, logger *logrus.Logger) *SchemaInitializer {
	return &SchemaInitializer{db: db, logger: logger}
}

// Initialize 执行全部迁移并校验结果
func (s *SchemaInitializer) Initialize(ctx context.Context) error {
	version, err := s.migrate(ctx)
	if err != nil {
		return err
	}
	if err := s.Verify(ctx); err != nil {
		return err
	}

	s.logger.WithField("version", version).Info("Database schema is ready")
	return nil
}

// migrate 在校验前归还迁移连接，单连接池下也不会阻塞
func (s *SchemaInitializer) migrate(ctx context.Context) (uint, error) {
	mm, err := NewMigrationManager(ctx, s.db, s.logger)
	if err != nil {
		return 0, err
	}
	defer mm.Close()

	if err := mm.Up(); err != nil {
		return 0, err
	}
	version, _, err := mm.Version()
	if err != nil {
		return 0, err
	}
	return version, nil
}

// Verify 确认扩展、表和索引均已存在
func (s *SchemaInitializer) Verify(ctx context.Context) error {
	checks := []struct {
		query   string
		missing string
	}{
		{vectorExtensionQuery, "vector extension is not installed"},
		{notesTableQuery, "table community_notes does not exist"},
		{notesIndexQuery, "index community_notes_embedding_idx does not exist"},
	}

	for _, check := range checks {
		var ok bool
		if err := s.db.QueryRowContext(ctx, check.query).Scan(&ok); err != nil {
			return apperrors.NewSchemaError(fmt.Sprintf("schema verification failed: %s", check.missing), err)
		}
		if !ok {
			return apperrors.NewSchemaError(check.missing, nil)
		}
	}
	return nil
}
