package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	apperrors "github.com/truthengine/backend-go/internal/errors"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// MigrationManager 数据库迁移管理器
type MigrationManager struct {
	migrate *migrate.Migrate
	logger  *logrus.Logger
}

// NewMigrationManager 基于内嵌的迁移文件创建迁移管理器。
// 迁移占用 db 中的一个独立连接，Close 时归还，db 本身由调用方关闭。
func NewMigrationManager(ctx context.Context, db *sql.DB, logger *logrus.Logger) (*MigrationManager, error) {
	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, apperrors.NewConnectionError("failed to acquire migration connection", err)
	}

	// 创建PostgreSQL驱动实例
	driver, err := postgres.WithConnection(ctx, conn, &postgres.Config{})
	if err != nil {
		conn.Close()
		return nil, classifyMigrationError("failed to create postgres migration driver", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		driver.Close()
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	return &MigrationManager{
		migrate: m,
		logger:  logger,
	}, nil
}

// Up 执行所有待执行的迁移
func (mm *MigrationManager) Up() error {
	mm.logger.Info("Starting database migration up")

	err := mm.migrate.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		mm.logger.Info("No migrations to apply")
		return nil
	}
	if err != nil {
		return classifyMigrationError("failed to run migrations", err)
	}

	mm.logger.Info("Database migrations completed successfully")
	return nil
}

// Down 回滚最后一次迁移
func (mm *MigrationManager) Down() error {
	mm.logger.Info("Rolling back last migration")

	if err := mm.migrate.Steps(-1); err != nil {
		return classifyMigrationError("failed to rollback migration", err)
	}

	mm.logger.Info("Migration rollback completed")
	return nil
}

// Version 获取当前数据库版本，未迁移时返回 0
func (mm *MigrationManager) Version() (uint, bool, error) {
	version, dirty, err := mm.migrate.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get migration version: %w", err)
	}
	return version, dirty, nil
}

// ForceVersion 强制设置数据库版本（用于修复脏状态）
func (mm *MigrationManager) ForceVersion(version int) error {
	mm.logger.Warnf("Force setting migration version to %d", version)

	if err := mm.migrate.Force(version); err != nil {
		return fmt.Errorf("failed to force version %d: %w", version, err)
	}
	return nil
}

// Close 关闭迁移源并归还迁移连接
func (mm *MigrationManager) Close() error {
	sourceErr, dbErr := mm.migrate.Close()
	if sourceErr != nil {
		mm.logger.Errorf("Error closing migration source: %v", sourceErr)
		return fmt.Errorf("failed to close migration source: %w", sourceErr)
	}
	if dbErr != nil {
		mm.logger.Errorf("Error closing migration connection: %v", dbErr)
		return fmt.Errorf("failed to close migration connection: %w", dbErr)
	}
	return nil
}

// classifyMigrationError 将迁移错误归类为 SchemaError
func classifyMigrationError(message string, err error) error {
	var dirty migrate.ErrDirty
	if errors.As(err, &dirty) {
		return apperrors.NewSchemaError(
			fmt.Sprintf("%s: database is dirty at version %d, fix the schema and force the version", message, dirty.Version), err)
	}

	if pqErr := pqErrorFrom(err); pqErr != nil {
		return apperrors.NewSchemaError(message, err).WithDetails(map[string]string{
			"sqlstate": string(pqErr.Code),
			"hint":     pqErr.Hint,
		})
	}

	return apperrors.NewSchemaError(message, err)
}

// pqErrorFrom 从 migrate 包装的错误中取出 *pq.Error
func pqErrorFrom(err error) *pq.Error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr
	}
	var dbErr migratedb.Error
	if errors.As(err, &dbErr) && errors.As(dbErr.OrigErr, &pqErr) {
		return pqErr
	}
	return nil
}
