package controllers

import (
	"net/http"

	beecontext "github.com/beego/beego/v2/server/web/context"
	"go.uber.org/zap"

	apperrors "github.com/truthengine/backend-go/internal/errors"
)

// BaseController provides helpers for consistent JSON responses.
type BaseController struct {
	logger *zap.Logger
}

// JSON writes a JSON response with the supplied HTTP status code.
func (c *BaseController) JSON(ctx *beecontext.Context, status int, payload interface{}) {
	ctx.Output.SetStatus(status)
	if err := ctx.Output.JSON(payload, false, false); err != nil {
		c.logger.Error("failed to write response", zap.Error(err))
	}
}

// JSONSuccess writes a standard success envelope.
func (c *BaseController) JSONSuccess(ctx *beecontext.Context, data interface{}) {
	c.JSON(ctx, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

// JSONError writes an error envelope with message.
func (c *BaseController) JSONError(ctx *beecontext.Context, status int, message string) {
	c.JSON(ctx, status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// JSONAppError maps an AppError to its HTTP status.
func (c *BaseController) JSONAppError(ctx *beecontext.Context, err error) {
	appErr := apperrors.GetAppError(err)
	if appErr.HTTPCode >= http.StatusInternalServerError {
		c.logger.Error("request failed",
			zap.String("path", ctx.Input.URL()),
			zap.String("error_code", string(appErr.Code)),
			zap.Error(err))
	}
	c.JSON(ctx, appErr.HTTPCode, map[string]interface{}{
		"success": false,
		"error":   appErr.Message,
		"code":    appErr.Code,
	})
}
