package cli

import (
	"context"
	"net"

	"github.com/spf13/cobra"

	"github.com/truthengine/backend-go/app/bootstrap"
	"github.com/truthengine/backend-go/app/controllers"
	"github.com/truthengine/backend-go/app/router"
	"github.com/truthengine/backend-go/internal/database"
	"github.com/truthengine/backend-go/internal/knowledge"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the search API over HTTP",
	Long: `Starts the search page on / and the HTTP API: /api/search, /api/stats,
/health and /metrics.
Stops gracefully on SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
			port := app.Config.Server.Port
			if servePort != "" {
				port = servePort
			}

			return app.Invoke(func(engine *knowledge.SearchEngine, tweets knowledge.TweetStore, checker *database.HealthChecker) error {
				reg := router.New(
					controllers.NewSearchController(engine, tweets, app.Logger),
					controllers.NewHealthController(checker, app.Logger),
				)
				return bootstrap.Serve(ctx, net.JoinHostPort("", port), reg, app.Logger)
			})
		})
	},
}

func init() {
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "listen port (default from server.port)")
	rootCmd.AddCommand(serveCmd)
}
