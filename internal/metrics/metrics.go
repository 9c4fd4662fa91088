package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "truth"

// 入库阶段行数标签
const (
	StageRead     = "read"
	StageHelpful  = "helpful"
	StageFiltered = "filtered"
	StageBlank    = "blank"
	StageWritten  = "written"
)

// 推文补全结果标签
const (
	TweetFound   = "found"
	TweetMissing = "missing"
	TweetFailed  = "failed"
)

// 检索结果标签
const (
	OutcomeMatch   = "match"
	OutcomeNoMatch = "no_match"
	OutcomeNoData  = "no_data"
	OutcomeError   = "error"
)

var (
	// IngestRows 按阶段统计的行数
	IngestRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "rows_total",
			Help:      "Community notes rows seen by the ingestion pipeline, by stage",
		},
		[]string{"stage"},
	)

	IngestBatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "batches_total",
			Help:      "Ingestion batches by status",
		},
		[]string{"status"},
	)

	IngestBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "batch_duration_seconds",
			Help:      "Time spent embedding and writing one batch",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		},
	)

	// EnrichTweets 推文补全按结果计数
	EnrichTweets = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrich",
			Name:      "tweets_total",
			Help:      "Tweets looked up for enrichment, by outcome",
		},
		[]string{"outcome"},
	)

	SearchQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "queries_total",
			Help:      "Similarity queries by outcome",
		},
		[]string{"outcome"},
	)

	SearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "Time spent querying the vector store for one search",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

// PushIngest 将入库指标推送到 Pushgateway，按 run_id 分组
func PushIngest(ctx context.Context, gatewayURL, job, runID string) error {
	return push.New(gatewayURL, job).
		Grouping("run_id", runID).
		Collector(IngestRows).
		Collector(IngestBatches).
		Collector(IngestBatchDuration).
		PushContext(ctx)
}

// PushEnrich 推送推文补全计数，与入库指标分组隔开
func PushEnrich(ctx context.Context, gatewayURL, job string) error {
	return push.New(gatewayURL, job).
		Grouping("stage", "enrich").
		Collector(EnrichTweets).
		PushContext(ctx)
}
