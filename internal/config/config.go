package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// HelpfulStatus 社区笔记中“当前被评为有用”的状态值
const HelpfulStatus = "CURRENTLY_RATED_HELPFUL"

// Config 应用配置
type Config struct {
	App       AppConfig       `mapstructure:"app" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Embedding EmbeddingConfig `mapstructure:"embedding" validate:"required"`
	Ingest    IngestConfig    `mapstructure:"ingest" validate:"required"`
	Search    SearchConfig    `mapstructure:"search" validate:"required"`
	Enrich    EnrichConfig    `mapstructure:"enrich" validate:"required"`
	Keywords  KeywordsConfig  `mapstructure:"keywords"`
	Server    ServerConfig    `mapstructure:"server"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name     string `mapstructure:"name" validate:"required"`
	Env      string `mapstructure:"env" validate:"required,oneof=development staging production"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	Host            string        `mapstructure:"host" validate:"required"`
	Port            int           `mapstructure:"port" validate:"required,min=1,max=65535"`
	Name            string        `mapstructure:"dbname" validate:"required"`
	User            string        `mapstructure:"user" validate:"required"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"sslmode" validate:"required,oneof=disable allow prefer require verify-ca verify-full"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"min=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN 返回连接串，URL 优先
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:   "/" + d.Name,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// EmbeddingConfig 嵌入模型配置
//
// 模型通过 OpenAI 兼容的 /v1/embeddings 接口提供（例如 text-embeddings-inference
// 或 LocalAI 部署的 all-MiniLM-L6-v2）。入库与查询必须使用同一个模型版本。
type EmbeddingConfig struct {
	BaseURL    string        `mapstructure:"base_url" validate:"required,url"`
	APIKey     string        `mapstructure:"api_key"`
	Model      string        `mapstructure:"model" validate:"required"`
	Dimensions int           `mapstructure:"dimensions" validate:"required,min=1"`
	BatchSize  int           `mapstructure:"batch_size" validate:"required,min=1"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// IngestConfig 入库配置
type IngestConfig struct {
	BatchSize       int           `mapstructure:"batch_size" validate:"required,min=1"`
	HelpfulStatus   string        `mapstructure:"helpful_status" validate:"required"`
	DataDir         string        `mapstructure:"data_dir" validate:"required"`
	DownloadBaseURL string        `mapstructure:"download_base_url" validate:"required,url"`
	LookbackDays    int           `mapstructure:"lookback_days" validate:"min=1"`
	DownloadTimeout time.Duration `mapstructure:"download_timeout"`
}

// SearchConfig 检索配置
type SearchConfig struct {
	TopK      int     `mapstructure:"top_k" validate:"required,min=1"`
	Threshold float64 `mapstructure:"threshold" validate:"gt=0,lte=2"`
}

// EnrichConfig 推文补全配置，使用公开的 syndication 接口
type EnrichConfig struct {
	SyndicationURL string        `mapstructure:"syndication_url" validate:"required,url"`
	BatchSize      int           `mapstructure:"batch_size" validate:"required,min=1"`
	RequestDelay   time.Duration `mapstructure:"request_delay"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// KeywordsConfig 关键词语义过滤配置
type KeywordsConfig struct {
	Defaults  []string `mapstructure:"defaults"`
	Threshold float64  `mapstructure:"threshold" validate:"gte=0,lte=2"`
	Limit     int      `mapstructure:"limit" validate:"min=0"`
}

// ServerConfig HTTP服务配置
type ServerConfig struct {
	Port string `mapstructure:"port"`
}

// RedisConfig 查询向量缓存配置
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	DB       int           `mapstructure:"db"`
	Password string        `mapstructure:"password"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// Addr 返回 host:port
func (r RedisConfig) Addr() string {
	return net.JoinHostPort(r.Host, r.Port)
}

// KafkaConfig 入库事件配置
type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"group_id"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	Job            string `mapstructure:"job"`
}

// Loader 配置加载器
type Loader struct {
	viper     *viper.Viper
	validator *validator.Validate
}

// NewLoader 创建配置加载器
func NewLoader() *Loader {
	v := viper.New()
	v.SetEnvPrefix("TRUTH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return &Loader{
		viper:     v,
		validator: validator.New(),
	}
}

// Load 从默认值、环境变量和可选配置文件加载配置
func (l *Loader) Load() (*Config, error) {
	l.setDefaults()
	l.loadFromEnv()

	if configFile := os.Getenv("CONFIG_FILE"); configFile != "" {
		l.viper.SetConfigFile(configFile)
		if err := l.viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := l.viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := l.validator.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults 设置默认值
func (l *Loader) setDefaults() {
	l.viper.SetDefault("app.name", "truth-engine")
	l.viper.SetDefault("app.env", "production")
	l.viper.SetDefault("app.log_level", "info")

	// 数据库配置
	l.viper.SetDefault("database.url", "")
	l.viper.SetDefault("database.host", "localhost")
	l.viper.SetDefault("database.port", 5432)
	l.viper.SetDefault("database.dbname", "truth_db")
	l.viper.SetDefault("database.user", "truth_user")
	l.viper.SetDefault("database.password", "truth_password")
	l.viper.SetDefault("database.sslmode", "disable")
	l.viper.SetDefault("database.max_open_conns", 1)
	l.viper.SetDefault("database.max_idle_conns", 1)
	l.viper.SetDefault("database.conn_max_lifetime", "1h")

	// 嵌入模型配置
	l.viper.SetDefault("embedding.base_url", "http://localhost:8080/v1")
	l.viper.SetDefault("embedding.api_key", "")
	l.viper.SetDefault("embedding.model", "sentence-transformers/all-MiniLM-L6-v2")
	l.viper.SetDefault("embedding.dimensions", 384)
	l.viper.SetDefault("embedding.batch_size", 64)
	l.viper.SetDefault("embedding.timeout", "60s")

	// 入库配置
	l.viper.SetDefault("ingest.batch_size", 1000)
	l.viper.SetDefault("ingest.helpful_status", HelpfulStatus)
	l.viper.SetDefault("ingest.data_dir", "data")
	l.viper.SetDefault("ingest.download_base_url", "https://ton.twimg.com/birdwatch-public-data")
	l.viper.SetDefault("ingest.lookback_days", 3)
	l.viper.SetDefault("ingest.download_timeout", "60s")

	// 检索配置
	l.viper.SetDefault("search.top_k", 3)
	l.viper.SetDefault("search.threshold", 0.4)

	// 推文补全配置
	l.viper.SetDefault("enrich.syndication_url", "https://cdn.syndication.twimg.com/tweet-result")
	l.viper.SetDefault("enrich.batch_size", 100)
	l.viper.SetDefault("enrich.request_delay", "1s")
	l.viper.SetDefault("enrich.timeout", "10s")

	// 关键词配置
	l.viper.SetDefault("keywords.defaults", []string{"AI generated", "AI video"})
	l.viper.SetDefault("keywords.threshold", 0.5)
	l.viper.SetDefault("keywords.limit", 50)

	l.viper.SetDefault("server.port", "8000")

	l.viper.SetDefault("redis.enabled", false)
	l.viper.SetDefault("redis.host", "localhost")
	l.viper.SetDefault("redis.port", "6379")
	l.viper.SetDefault("redis.db", 0)
	l.viper.SetDefault("redis.password", "")
	l.viper.SetDefault("redis.ttl", "24h")

	l.viper.SetDefault("kafka.enabled", false)
	l.viper.SetDefault("kafka.brokers", []string{"localhost:9092"})
	l.viper.SetDefault("kafka.topic", "community-notes-ingest")
	l.viper.SetDefault("kafka.group_id", "truthctl-events")

	l.viper.SetDefault("metrics.pushgateway_url", "")
	l.viper.SetDefault("metrics.job", "truth_ingest")
}

// loadFromEnv 处理不带前缀的常用环境变量
func (l *Loader) loadFromEnv() {
	l.setFromEnv("database.url", "DATABASE_URL")
	l.setFromEnv("embedding.api_key", "EMBEDDING_API_KEY")
	l.setFromEnv("server.port", "PORT")

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		brokerList := strings.Split(brokers, ",")
		for i := range brokerList {
			brokerList[i] = strings.TrimSpace(brokerList[i])
		}
		l.viper.Set("kafka.brokers", brokerList)
		l.viper.Set("kafka.enabled", true)
	}
}

// setFromEnv 辅助函数：从环境变量设置配置
func (l *Loader) setFromEnv(configKey, envKey string) {
	if value := os.Getenv(envKey); value != "" {
		l.viper.Set(configKey, value)
	}
}
