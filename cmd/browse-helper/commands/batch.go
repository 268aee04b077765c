package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/FuckingPengvin/browse-helper/pkg/engine"
)

func newBatchCommand() *cobra.Command {
	var delay time.Duration

	cmd := &cobra.Command{
		Use:   "batch <tasks-file>",
		Short: "Execute a file of tasks, one per line",
		Long: `Read tasks from a file and execute them sequentially against one
browser session. Blank lines and lines starting with '#' are ignored.
A failed task does not stop the batch.`,
		Example: `  # Run every task in the file
  browse-helper batch tasks.txt

  # Leave five seconds between tasks
  browse-helper batch tasks.txt --delay 5s`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			tasks, err := readTasks(args[0])
			if err != nil {
				return err
			}
			if len(tasks) == 0 {
				return fmt.Errorf("no tasks in %s", args[0])
			}

			a, err := newApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.shutdown(ctx)

			var summaries []*engine.ExecutionSummary
			failed := 0
			for i, task := range tasks {
				if ctx.Err() != nil {
					break
				}
				logger := a.tel.Logger.WithTask(task)
				logger.Infof("Task %d/%d", i+1, len(tasks))

				plan, err := a.planner.CreatePlan(ctx, task)
				if err != nil {
					a.tel.Metrics.RecordPlannerCall("error")
					logger.WithError(err).Error("Planning failed, skipping task")
					failed++
					continue
				}
				a.tel.Metrics.RecordPlannerCall("ok")

				summary := a.coord.ExecutePlan(ctx, plan)
				summaries = append(summaries, summary)
				if !summary.Success {
					failed++
				}
				if !jsonOutput {
					printSummary(plan, summary)
				}

				if delay > 0 && i < len(tasks)-1 {
					select {
					case <-time.After(delay):
					case <-ctx.Done():
					}
				}
			}

			if jsonOutput {
				if err := printJSON(summaries); err != nil {
					return err
				}
			} else {
				fmt.Printf("batch: %d/%d tasks succeeded\n", len(tasks)-failed, len(tasks))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d tasks failed", failed, len(tasks))
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&delay, "delay", 2*time.Second, "pause between tasks")

	return cmd
}

// readTasks loads one task per line, skipping blanks and comments.
func readTasks(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open tasks file: %w", err)
	}
	defer f.Close()

	var tasks []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		tasks = append(tasks, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tasks file: %w", err)
	}
	return tasks, nil
}
