package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newTaskCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task <description...>",
		Short: "Plan and execute a natural-language browser task",
		Long: `Turn a natural-language task into a typed action plan and execute it.

The plan comes from the configured Ollama model; when the model is
unreachable or its response is unusable, a heuristic planner produces a
simplified plan instead. Every action retries with exponential backoff
before it counts as failed.`,
		Example: `  # Open a site and read its headline
  browse-helper task "go to https://news.ycombinator.com and extract the top story title"

  # Fill a search box
  browse-helper task "open https://duckduckgo.com and search for chromedp"

  # Machine-readable result
  browse-helper task --json "navigate to https://example.com"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			task := strings.Join(args, " ")

			a, err := newApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.shutdown(ctx)

			a.tel.Logger.WithTask(task).Info("Planning task")
			plan, err := a.planner.CreatePlan(ctx, task)
			if err != nil {
				a.tel.Metrics.RecordPlannerCall("error")
				return fmt.Errorf("planning failed: %w", err)
			}
			a.tel.Metrics.RecordPlannerCall("ok")

			summary := a.coord.ExecutePlan(ctx, plan)
			if jsonOutput {
				return printJSON(summary)
			}
			printSummary(plan, summary)
			if !summary.Success {
				return fmt.Errorf("task did not complete successfully")
			}
			return nil
		},
	}

	return cmd
}
