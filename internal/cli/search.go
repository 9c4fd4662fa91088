package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/truthengine/backend-go/app/bootstrap"
	"github.com/truthengine/backend-go/internal/console"
	"github.com/truthengine/backend-go/internal/knowledge"
)

var searchJSON bool

var searchCmd = &cobra.Command{
	Use:   "search [claim]",
	Short: "Check a single claim against the community notes",
	Long: `Embeds the claim, fetches the nearest community notes and flags the
ones within the match threshold. For an interactive session use check_truth.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
			return app.Invoke(func(engine *knowledge.SearchEngine) error {
				result, err := engine.Search(ctx, query)
				if err != nil {
					return err
				}
				return outputSearch(cmd, result)
			})
		})
	},
}

func init() {
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output the result as JSON")
	rootCmd.AddCommand(searchCmd)
}

func outputSearch(cmd *cobra.Command, result *knowledge.SearchResult) error {
	if searchJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	console.NewPrinter(cmd.OutOrStdout()).Result(result)
	return nil
}
