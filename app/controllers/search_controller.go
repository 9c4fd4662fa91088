package controllers

import (
	"context"

	beecontext "github.com/beego/beego/v2/server/web/context"
	"go.uber.org/zap"

	apperrors "github.com/truthengine/backend-go/internal/errors"
	"github.com/truthengine/backend-go/internal/knowledge"
)

// Searcher 检索与统计
type Searcher interface {
	Search(ctx context.Context, query string) (*knowledge.SearchResult, error)
	Stats(ctx context.Context) (int64, error)
}

// EnrichmentCounter 统计已补全推文正文的笔记
type EnrichmentCounter interface {
	CountEnriched(ctx context.Context) (int64, error)
}

// SearchController 搜索控制器
type SearchController struct {
	BaseController
	searcher Searcher
	enriched EnrichmentCounter
}

// NewSearchController 创建搜索控制器
func NewSearchController(searcher Searcher, enriched EnrichmentCounter, logger *zap.Logger) *SearchController {
	return &SearchController{
		BaseController: BaseController{logger: logger},
		searcher:       searcher,
		enriched:       enriched,
	}
}

// Search GET /api/search?q=
func (c *SearchController) Search(ctx *beecontext.Context) {
	result, err := c.searcher.Search(ctx.Request.Context(), ctx.Input.Query("q"))
	if err != nil {
		c.JSONAppError(ctx, err)
		return
	}
	if result.Verdicts == nil {
		result.Verdicts = []knowledge.Verdict{}
	}
	c.JSONSuccess(ctx, result)
}

// Stats GET /api/stats
func (c *SearchController) Stats(ctx *beecontext.Context) {
	total, err := c.searcher.Stats(ctx.Request.Context())
	if err != nil {
		c.JSONAppError(ctx, err)
		return
	}
	enriched, err := c.enriched.CountEnriched(ctx.Request.Context())
	if err != nil {
		c.JSONAppError(ctx, apperrors.NewQueryError(err))
		return
	}
	c.JSONSuccess(ctx, map[string]interface{}{
		"total":    total,
		"enriched": enriched,
	})
}
