package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/FuckingPengvin/browse-helper/pkg/engine"
)

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printSummary renders one execution summary. Results are matched to plan
// actions by position; skipped markers carry their own step index.
func printSummary(plan *engine.Plan, summary *engine.ExecutionSummary) {
	verdict := "FAILED"
	if summary.Success {
		verdict = "OK"
	}
	fmt.Printf("%s  %s  %d/%d actions succeeded in %s\n",
		summary.ExecutionID, verdict, summary.SuccessfulActions, summary.TotalActions,
		summary.Duration.Round(10*time.Millisecond))
	if summary.Error != "" {
		fmt.Printf("  error: %s\n", summary.Error)
	}

	for i, result := range summary.Results {
		actionType := ""
		if plan != nil && i < len(plan.Actions) {
			actionType = string(plan.Actions[i].Type)
		}
		line := fmt.Sprintf("  %-8s %-14s %-9s %s",
			result.ActionID, actionType, result.Status, result.Duration.Round(10*time.Millisecond))
		if result.RetryCount > 0 {
			line += fmt.Sprintf("  (%d retries)", result.RetryCount)
		}
		fmt.Println(line)
		if result.Error != "" {
			fmt.Printf("           %s\n", result.Error)
		}
		if title, ok := result.Data["page_title"].(string); ok && title != "" {
			fmt.Printf("           title: %s\n", title)
		}
		if data, ok := result.Data["data"].(string); ok && data != "" {
			fmt.Printf("           extracted: %s\n", truncate(data, 200))
		}
	}
	for _, skipped := range summary.Skipped {
		fmt.Printf("  %-8s %-14s %-9s\n", skipped.ActionID, "", skipped.Status)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
