package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/truthengine/backend-go/app/bootstrap"
	"github.com/truthengine/backend-go/internal/enrich"
	"github.com/truthengine/backend-go/internal/metrics"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Fetch tweet text for stored notes and embed it",
	Long: `Looks up the tweet behind every stored note that has not been enriched yet,
saves its text and format, and stores an embedding of the tweet text. Tweets
are fetched one at a time with a fixed delay; failed lookups are skipped and
picked up again on the next run. Deleted tweets are marked Missing.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
			return app.Invoke(func(enricher *enrich.Enricher) error {
				result, err := enricher.Run(ctx)
				pushEnrichMetrics(app)
				printEnrichResult(cmd, result)
				return err
			})
		})
	},
}

func init() {
	rootCmd.AddCommand(enrichCmd)
}

func pushEnrichMetrics(app *bootstrap.App) {
	url := app.Config.Metrics.PushgatewayURL
	if url == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()
	if err := metrics.PushEnrich(ctx, url, app.Config.Metrics.Job); err != nil {
		app.Logger.Warn("Failed to push enrichment metrics", zap.String("pushgateway", url), zap.Error(err))
	}
}

func printEnrichResult(cmd *cobra.Command, result *enrich.Result) {
	if result == nil {
		return
	}
	cmd.Printf("Looked up %d tweets in %d batches: %d found, %d missing, %d failed (%s)\n",
		result.Processed, result.Batches, result.Found, result.Missing, result.Failed,
		result.Duration.Round(time.Millisecond))
}
