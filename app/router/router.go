package router

import (
	"github.com/beego/beego/v2/server/web"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/truthengine/backend-go/app/controllers"
)

// New registers all routes on a dedicated ControllerRegister.
func New(search *controllers.SearchController, health *controllers.HealthController) *web.ControllerRegister {
	reg := web.NewControllerRegister()

	reg.Get("/", (&controllers.PageController{}).Index)
	reg.Get("/health", health.Health)
	reg.Get("/api/search", search.Search)
	reg.Get("/api/stats", search.Stats)
	reg.Handler("/metrics", promhttp.Handler())

	return reg
}
