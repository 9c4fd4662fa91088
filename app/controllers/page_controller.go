package controllers

import (
	_ "embed"
	"net/http"

	beecontext "github.com/beego/beego/v2/server/web/context"
)

//go:embed static/index.html
var indexPage []byte

// PageController 搜索页面
type PageController struct{}

// Index GET /
func (c *PageController) Index(ctx *beecontext.Context) {
	ctx.Output.Header("Content-Type", "text/html; charset=utf-8")
	ctx.Output.SetStatus(http.StatusOK)
	ctx.Output.Body(indexPage)
}
