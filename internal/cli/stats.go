package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/truthengine/backend-go/app/bootstrap"
	apperrors "github.com/truthengine/backend-go/internal/errors"
	"github.com/truthengine/backend-go/internal/knowledge"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show how many helpful notes are stored",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
			return app.Invoke(func(engine *knowledge.SearchEngine, tweets knowledge.TweetStore) error {
				total, err := engine.Stats(ctx)
				if err != nil {
					return err
				}
				enriched, err := tweets.CountEnriched(ctx)
				if err != nil {
					return apperrors.NewQueryError(err)
				}
				printStats(cmd, total, enriched, app.Config.Embedding.Model, app.Config.Embedding.Dimensions)
				return nil
			})
		})
	},
}

func printStats(cmd *cobra.Command, total, enriched int64, model string, dims int) {
	cmd.Printf("Database contains %d helpful notes.\n", total)
	cmd.Printf("Tweet text available for %d notes.\n", enriched)
	cmd.Printf("Embedding model: %s (%d dimensions)\n", model, dims)
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
