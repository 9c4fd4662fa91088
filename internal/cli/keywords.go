package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/truthengine/backend-go/app/bootstrap"
	"github.com/truthengine/backend-go/internal/knowledge"
)

var (
	keywordThreshold float64
	keywordLimit     int
	keywordJSON      bool
)

var keywordsCmd = &cobra.Command{
	Use:   "keywords",
	Short: "Manage semantic keyword filters",
}

var keywordsSeedCmd = &cobra.Command{
	Use:   "seed [keyword...]",
	Short: "Embed and store keyword filters",
	Long: `Embeds each keyword and stores it in keyword_filters. Without arguments
the configured default keywords are seeded.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
			keywords := args
			if len(keywords) == 0 {
				keywords = app.Config.Keywords.Defaults
			}
			return app.Invoke(func(store *knowledge.KeywordStore) error {
				n, err := store.Seed(ctx, keywords)
				if err != nil {
					return err
				}
				cmd.Printf("Seeded %d keywords.\n", n)
				return nil
			})
		})
	},
}

var keywordsMatchCmd = &cobra.Command{
	Use:   "match [keyword]",
	Short: "List notes semantically close to a seeded keyword",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
			threshold := app.Config.Keywords.Threshold
			if cmd.Flags().Changed("threshold") {
				threshold = keywordThreshold
			}
			limit := app.Config.Keywords.Limit
			if cmd.Flags().Changed("limit") {
				limit = keywordLimit
			}

			return app.Invoke(func(store *knowledge.KeywordStore) error {
				notes, err := store.Match(ctx, args[0], threshold, limit)
				if err != nil {
					return err
				}
				return outputKeywordMatches(cmd, args[0], notes)
			})
		})
	},
}

func init() {
	keywordsMatchCmd.Flags().Float64Var(&keywordThreshold, "threshold", 0.5, "maximum cosine distance")
	keywordsMatchCmd.Flags().IntVarP(&keywordLimit, "limit", "n", 50, "maximum number of notes")
	keywordsMatchCmd.Flags().BoolVar(&keywordJSON, "json", false, "output results as JSON")

	keywordsCmd.AddCommand(keywordsSeedCmd, keywordsMatchCmd)
	rootCmd.AddCommand(keywordsCmd)
}

func outputKeywordMatches(cmd *cobra.Command, keyword string, notes []knowledge.NearestNote) error {
	if keywordJSON {
		data, err := json.MarshalIndent(notes, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(notes) == 0 {
		cmd.Printf("No notes match %q.\n", keyword)
		return nil
	}

	cmd.Printf("Notes matching %q:\n\n", keyword)
	for i, n := range notes {
		cmd.Printf("  [%d] note %d  distance %.4f\n", i+1, n.NoteID, n.Distance)
		cmd.Printf("      %s\n", n.SummaryText)
		if src := n.Source(); src != "" {
			cmd.Printf("      Source: %s\n", src)
		}
	}
	return nil
}
