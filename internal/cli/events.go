package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/truthengine/backend-go/app/bootstrap"
	"github.com/truthengine/backend-go/internal/kafka"
	"github.com/truthengine/backend-go/internal/models"
)

var errKafkaDisabled = errors.New("kafka is disabled: set TRUTH_KAFKA_ENABLED=true or KAFKA_BROKERS")

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Follow ingestion batch events from Kafka",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
			if !app.Config.Kafka.Enabled {
				return errKafkaDisabled
			}

			watcher, err := kafka.NewWatcher(app.Config.Kafka, app.Logger)
			if err != nil {
				return err
			}
			defer watcher.Close()

			cmd.Printf("Following %s (Ctrl-C to stop)\n", app.Config.Kafka.Topic)
			return watcher.Watch(ctx, func(_ context.Context, event models.IngestBatchEvent) error {
				printEvent(cmd, event)
				return nil
			})
		})
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
}

func printEvent(cmd *cobra.Command, event models.IngestBatchEvent) {
	cmd.Printf("%s  run %s  batch %d  +%d rows  %d/%d\n",
		event.CommittedAt.Format("2006-01-02 15:04:05"),
		event.RunID, event.BatchIndex, event.Rows, event.Processed, event.Total)
}
