package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/FuckingPengvin/browse-helper/pkg/engine"
)

func newNavigateCommand() *cobra.Command {
	var extract string

	cmd := &cobra.Command{
		Use:   "navigate <url>",
		Short: "Open a URL without model planning",
		Long: `Build and execute a fixed plan directly: navigate to the URL and,
optionally, extract the text of one element. No model call is made.`,
		Example: `  # Open a page and report its title
  browse-helper navigate https://example.com

  # Also read the first heading
  browse-helper navigate https://example.com --extract h1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			url := args[0]

			a, err := newApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.shutdown(ctx)

			plan := &engine.Plan{
				Task: fmt.Sprintf("navigate to %s", url),
				Actions: []engine.Action{
					{
						Type:        engine.ActionNavigate,
						Target:      url,
						Description: "open the requested URL",
						RetryOnFail: true,
					},
				},
			}
			if extract != "" {
				plan.Actions = append(plan.Actions, engine.Action{
					Type:        engine.ActionExtractData,
					Target:      extract,
					Value:       "text",
					Description: "read the requested element",
					RetryOnFail: true,
				})
			}

			summary := a.coord.ExecutePlan(ctx, plan)
			if jsonOutput {
				return printJSON(summary)
			}
			printSummary(plan, summary)
			if !summary.Success {
				return fmt.Errorf("navigation did not complete successfully")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&extract, "extract", "", "CSS selector to read after the page loads")

	return cmd
}
