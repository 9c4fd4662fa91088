package controllers

import (
	"context"
	"net/http"

	beecontext "github.com/beego/beego/v2/server/web/context"
	"go.uber.org/zap"

	"github.com/truthengine/backend-go/internal/database"
)

// HealthChecker 数据库健康检查
type HealthChecker interface {
	Check(ctx context.Context) database.HealthCheckResult
}

// HealthController 健康检查控制器
type HealthController struct {
	BaseController
	checker HealthChecker
}

func NewHealthController(checker HealthChecker, logger *zap.Logger) *HealthController {
	return &HealthController{
		BaseController: BaseController{logger: logger},
		checker:        checker,
	}
}

// Health GET /health，数据库不可用时返回 503
func (c *HealthController) Health(ctx *beecontext.Context) {
	result := c.checker.Check(ctx.Request.Context())
	status := http.StatusOK
	if !result.Healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(ctx, status, map[string]interface{}{
		"success": result.Healthy,
		"data":    result,
	})
}
