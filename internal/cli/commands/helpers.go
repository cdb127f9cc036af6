package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"docstack/internal/types"
)

// printJSON renders any value as indented JSON on stdout
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printStatusTable renders a status report as an aligned table
func printStatusTable(report *types.StatusReport) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SERVICE\tROLE\tSTATE\tDETAIL")
	for _, svc := range report.Services {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", svc.Service, svc.Role, svc.State, svc.Detail)
	}
	w.Flush()

	if report.AllHealthy {
		fmt.Println("\nAll services healthy.")
	} else {
		fmt.Println("\nStack is not fully healthy.")
	}
}

// formatBytes renders a byte count for humans
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
