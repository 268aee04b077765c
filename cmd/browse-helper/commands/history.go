package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newHistoryCommand() *cobra.Command {
	var (
		limit      int
		withEvents bool
		purge      bool
	)

	cmd := &cobra.Command{
		Use:   "history [execution-id]",
		Short: "Inspect the execution ledger",
		Long: `Without an argument, list recent plan executions. With an execution
id, show its per-step results and, optionally, its event log.`,
		Example: `  # Recent executions
  browse-helper history

  # One execution in detail
  browse-helper history exec_a1b2c3d4 --events

  # Remove an execution and its results
  browse-helper history exec_a1b2c3d4 --purge`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, false)
			if err != nil {
				return err
			}
			defer a.shutdown(ctx)

			if a.store == nil {
				return fmt.Errorf("the execution ledger is disabled in the configuration")
			}

			if len(args) == 0 {
				execs, err := a.store.ListExecutions(ctx, limit, 0)
				if err != nil {
					return fmt.Errorf("failed to list executions: %w", err)
				}
				if jsonOutput {
					return printJSON(execs)
				}
				for _, e := range execs {
					verdict := "FAILED"
					if e.Success {
						verdict = "OK"
					}
					fmt.Printf("%s  %-6s  %d/%d actions  %s  %s\n",
						e.ID, verdict, e.SuccessfulActions, e.TotalActions,
						(time.Duration(e.DurationMS) * time.Millisecond).Round(10*time.Millisecond),
						truncate(e.Task, 60))
				}
				return nil
			}

			id := args[0]
			if purge {
				if err := a.store.DeleteExecution(ctx, id); err != nil {
					return fmt.Errorf("failed to delete execution: %w", err)
				}
				fmt.Printf("deleted %s\n", id)
				return nil
			}

			exec, err := a.store.GetExecution(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to load execution: %w", err)
			}
			results, err := a.store.ListActionResults(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to load results: %w", err)
			}
			if jsonOutput {
				out := map[string]any{"execution": exec, "results": results}
				if withEvents {
					events, err := a.store.GetEvents(ctx, &id, nil, 1000, 0)
					if err != nil {
						return fmt.Errorf("failed to load events: %w", err)
					}
					out["events"] = events
				}
				return printJSON(out)
			}

			verdict := "FAILED"
			if exec.Success {
				verdict = "OK"
			}
			fmt.Printf("%s  %s  %d/%d actions  %s\n", exec.ID, verdict,
				exec.SuccessfulActions, exec.TotalActions,
				(time.Duration(exec.DurationMS) * time.Millisecond).Round(10*time.Millisecond))
			fmt.Printf("task: %s\n", exec.Task)
			if exec.Error != nil {
				fmt.Printf("error: %s\n", *exec.Error)
			}
			for _, r := range results {
				line := fmt.Sprintf("  %-8s %-14s %-9s %s",
					r.ActionID, r.ActionType, r.Status,
					(time.Duration(r.DurationMS) * time.Millisecond).Round(10*time.Millisecond))
				if r.RetryCount > 0 {
					line += fmt.Sprintf("  (%d retries)", r.RetryCount)
				}
				fmt.Println(line)
				if r.Error != nil {
					fmt.Printf("           %s\n", *r.Error)
				}
			}
			if withEvents {
				events, err := a.store.GetEvents(ctx, &id, nil, 1000, 0)
				if err != nil {
					return fmt.Errorf("failed to load events: %w", err)
				}
				for _, ev := range events {
					fmt.Printf("  %s  %-7s %-20s %s\n",
						ev.Timestamp.Format(time.RFC3339), ev.Severity, ev.Type, ev.Message)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "number of executions to list")
	cmd.Flags().BoolVar(&withEvents, "events", false, "include the event log")
	cmd.Flags().BoolVar(&purge, "purge", false, "delete the execution and its results")

	return cmd
}
