package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report engine, budget, and store status",
		Long: `Assemble the configured components without launching a browser and
report the engine's capabilities, the token budget, and the health of
the execution ledger.`,
		Example: `  browse-helper status
  browse-helper status --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, false)
			if err != nil {
				return err
			}
			defer a.shutdown(ctx)

			report := a.coord.Status()
			budget := a.budget.Budget()
			usage := a.budget.Stats()

			storeHealth := "disabled"
			if a.store != nil {
				storeHealth = "ok"
				if err := a.store.HealthCheck(ctx); err != nil {
					storeHealth = fmt.Sprintf("unhealthy: %v", err)
				}
			}

			if jsonOutput {
				return printJSON(map[string]any{
					"engine": report,
					"tokens": usage,
					"budget": budget,
					"store":  storeHealth,
				})
			}

			fmt.Printf("engine:  ready=%v active=%v max_parallel=%d\n",
				report.Ready, report.Active, report.MaxParallel)
			fmt.Printf("actions: %v\n", report.AvailableActions)
			fmt.Printf("model:   %s @ %s\n", a.cfg.Ollama.Model, a.cfg.Ollama.BaseURL)
			fmt.Printf("tokens:  hourly %d/%d, daily %d/%d, refusals %d\n",
				usage.Hourly.Used, budget.HourlyLimit,
				usage.Daily.Used, budget.DailyLimit, usage.Refusals)
			fmt.Printf("store:   %s\n", storeHealth)

			if a.store != nil && storeHealth == "ok" {
				totals, err := a.store.GetTokenTotals(ctx, time.Now().Add(-24*time.Hour))
				if err == nil && totals.Requests > 0 {
					fmt.Printf("ledger:  %d model calls in 24h (%d prompt / %d completion tokens)\n",
						totals.Requests, totals.PromptTokens, totals.CompletionTokens)
				}
			}
			return nil
		},
	}

	return cmd
}
