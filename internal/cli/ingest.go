package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/truthengine/backend-go/app/bootstrap"
	"github.com/truthengine/backend-go/internal/ingest"
	"github.com/truthengine/backend-go/internal/metrics"
)

const pushTimeout = 10 * time.Second

var (
	ingestNotes    string
	ingestStatus   string
	ingestDownload bool
)

var errIngestSource = errors.New("either --download or both --notes and --status are required")

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load helpful community notes into the vector store",
	Long: `Reads the notes and note status TSV files, keeps notes currently rated
helpful, embeds their summaries and upserts them in batches. With --download
the latest public dataset is fetched first.`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestNotes, "notes", "", "path to the notes TSV file")
	ingestCmd.Flags().StringVar(&ingestStatus, "status", "", "path to the note status history TSV file")
	ingestCmd.Flags().BoolVar(&ingestDownload, "download", false, "download the latest dataset before ingesting")
	rootCmd.AddCommand(ingestCmd)
}

func validateIngestSource() error {
	if ingestDownload {
		return nil
	}
	if ingestNotes == "" || ingestStatus == "" {
		return errIngestSource
	}
	return nil
}

func runIngest(cmd *cobra.Command, _ []string) error {
	if err := validateIngestSource(); err != nil {
		return err
	}

	return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
		return app.Invoke(func(pipeline *ingest.Pipeline, downloader *ingest.Downloader) error {
			notes, status := ingestNotes, ingestStatus
			if ingestDownload {
				var err error
				if notes, status, err = downloader.FetchLatest(ctx); err != nil {
					return err
				}
			}

			pipeline.OnProgress(func(processed, total int) {
				cmd.Printf("Processed %d/%d notes\n", processed, total)
			})

			result, err := pipeline.Ingest(ctx, notes, status)
			pushIngestMetrics(app, result)
			printIngestResult(cmd, result)
			return err
		})
	})
}

// pushIngestMetrics 失败也推送，便于观察中断的运行
func pushIngestMetrics(app *bootstrap.App, result *ingest.Result) {
	url := app.Config.Metrics.PushgatewayURL
	if url == "" || result == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()
	if err := metrics.PushIngest(ctx, url, app.Config.Metrics.Job, result.RunID); err != nil {
		app.Logger.Warn("Failed to push ingest metrics", zap.String("pushgateway", url), zap.Error(err))
	}
}

func printIngestResult(cmd *cobra.Command, result *ingest.Result) {
	if result == nil {
		return
	}
	cmd.Printf("Run %s: %d candidates, %d helpful, %d filtered, %d blank, %d duplicates\n",
		result.RunID, result.Candidates, result.Helpful, result.Filtered, result.Blank, result.Duplicates)
	cmd.Printf("Processed %d notes in %d batches (%s)\n",
		result.Processed, result.Batches, result.Duration.Round(time.Millisecond))
}
