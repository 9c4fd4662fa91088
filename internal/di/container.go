package di

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"go.uber.org/dig"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/truthengine/backend-go/internal/config"
	"github.com/truthengine/backend-go/internal/database"
	"github.com/truthengine/backend-go/internal/enrich"
	"github.com/truthengine/backend-go/internal/ingest"
	"github.com/truthengine/backend-go/internal/kafka"
	"github.com/truthengine/backend-go/internal/knowledge"
	"github.com/truthengine/backend-go/internal/logger"
)

// Lifecycle 记录需要在退出时释放的资源，按注册的逆序关闭
type Lifecycle struct {
	mu    sync.Mutex
	hooks []hook
}

type hook struct {
	name  string
	close func() error
}

func NewLifecycle() *Lifecycle {
	return &Lifecycle{}
}

// Append 注册关闭函数
func (l *Lifecycle) Append(name string, fn func() error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hooks = append(l.hooks, hook{name: name, close: fn})
}

// Shutdown 尽力关闭全部资源，返回合并后的错误
func (l *Lifecycle) Shutdown() error {
	l.mu.Lock()
	hooks := l.hooks
	l.hooks = nil
	l.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		if err := hooks[i].close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", hooks[i].name, err))
		}
	}
	return errors.Join(errs...)
}

// NewContainer 注册所有依赖提供者。
// 提供者按需构造：REPL 不会触发 Kafka 连接，入库命令不会触发 Redis 连接。
func NewContainer(ctx context.Context, cfg *config.Config, log *zap.Logger, lc *Lifecycle) (*dig.Container, error) {
	c := dig.New()

	providers := []interface{}{
		func() *config.Config { return cfg },
		func() *zap.Logger { return log },
		func() *logrus.Logger { return logger.NewLogrus(cfg.App.Env, cfg.App.LogLevel) },
		func() (*gorm.DB, error) {
			db, err := database.Open(ctx, cfg.Database)
			if err != nil {
				return nil, err
			}
			lc.Append("database", func() error { return database.Close(db) })
			return db, nil
		},
		func(db *gorm.DB) (*sql.DB, error) { return db.DB() },
		func() knowledge.Embedder {
			return knowledge.NewOpenAIEmbedder(knowledge.EmbedderOptions{
				BaseURL:    cfg.Embedding.BaseURL,
				APIKey:     cfg.Embedding.APIKey,
				Model:      cfg.Embedding.Model,
				Dimensions: cfg.Embedding.Dimensions,
				BatchSize:  cfg.Embedding.BatchSize,
				Timeout:    cfg.Embedding.Timeout,
			})
		},
		knowledge.NewPGNoteStore,
		func(store *knowledge.PGNoteStore) knowledge.NoteStore { return store },
		func(store *knowledge.PGNoteStore) knowledge.TweetStore { return store },
		func(embedder knowledge.Embedder, store knowledge.NoteStore) *knowledge.SearchEngine {
			return knowledge.NewSearchEngine(queryEmbedder(ctx, cfg, embedder, log, lc), store, cfg.Search.TopK, cfg.Search.Threshold, log)
		},
		func(db *gorm.DB, embedder knowledge.Embedder) *knowledge.KeywordStore {
			return knowledge.NewKeywordStore(db, embedder)
		},
		func() ingest.BatchPublisher { return newPublisher(cfg, log, lc) },
		func(store knowledge.NoteStore, embedder knowledge.Embedder, publisher ingest.BatchPublisher) *ingest.Pipeline {
			return ingest.NewPipeline(store, embedder, publisher, cfg.Ingest, log)
		},
		func() *ingest.Downloader { return ingest.NewDownloader(cfg.Ingest, log) },
		func(store knowledge.TweetStore, embedder knowledge.Embedder) *enrich.Enricher {
			return enrich.NewEnricher(store, enrich.NewSyndicationClient(cfg.Enrich), embedder, cfg.Enrich, log)
		},
		func(db *sql.DB, l *logrus.Logger) *database.HealthChecker {
			return database.NewHealthChecker(db, l)
		},
	}

	for _, p := range providers {
		if err := c.Provide(p); err != nil {
			return nil, fmt.Errorf("failed to register provider: %w", err)
		}
	}
	return c, nil
}

// queryEmbedder Redis 可用时为查询向量加缓存，否则退回直接调用
func queryEmbedder(ctx context.Context, cfg *config.Config, embedder knowledge.Embedder, log *zap.Logger, lc *Lifecycle) knowledge.Embedder {
	if !cfg.Redis.Enabled {
		return embedder
	}

	client, err := database.OpenRedis(ctx, cfg.Redis)
	if err != nil {
		log.Warn("Failed to initialize Redis, embedding cache disabled", zap.Error(err))
		return embedder
	}
	lc.Append("redis", client.Close)

	log.Info("Embedding cache enabled", zap.String("addr", cfg.Redis.Addr()))
	return knowledge.NewCachedEmbedder(embedder, knowledge.NewRedisVectorCache(client, cfg.Redis.TTL), log)
}

// newPublisher Kafka 不可用时返回 nil，入库照常进行
func newPublisher(cfg *config.Config, log *zap.Logger, lc *Lifecycle) ingest.BatchPublisher {
	if !cfg.Kafka.Enabled {
		return nil
	}

	producer, err := kafka.NewProducer(cfg.Kafka, log)
	if err != nil {
		log.Warn("Failed to initialize Kafka producer", zap.Error(err))
		return nil
	}
	lc.Append("kafka producer", producer.Close)
	return producer
}
