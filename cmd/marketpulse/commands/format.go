package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/wonny/marketpulse/internal/pipeline"
	"github.com/wonny/marketpulse/pkg/config"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// PrintBanner prints the application name and version
func PrintBanner(title string) {
	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Printf("  %s v%s  %s\n", config.AppName, config.Version, title)
	fmt.Println("═══════════════════════════════════════════════════════════")
}

// PrintSeparator prints a visual separator
func PrintSeparator() {
	fmt.Println("───────────────────────────────────────────────────────────")
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Println()
	fmt.Printf("⚠️  %s\n", message)
	fmt.Println()
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Printf("✅ %s\n", message)
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Printf("❌ %s\n", message)
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(key string, value string, keyWidth int) {
	fmt.Printf("   %-*s : %s\n", keyWidth, key, value)
}

// PrintTableHeader prints a table header
func PrintTableHeader(columns []string, widths []int) {
	PrintTableRow(columns, widths)

	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2 // spacing
		}
	}
	fmt.Println(strings.Repeat("─", totalWidth))
}

// PrintTableRow prints a table row
func PrintTableRow(values []string, widths []int) {
	for i, val := range values {
		fmt.Printf("%-*s", widths[i], val)
		if i < len(values)-1 {
			fmt.Print("  ")
		}
	}
	fmt.Println()
}

// PrintRunSummary prints one row per symbol followed by totals
func PrintRunSummary(summary *pipeline.RunSummary) {
	columns := []string{"SYMBOL", "STATUS", "RAW", "RECORDS", "INSERTED", "DETAIL"}
	widths := []int{8, 8, 5, 8, 9, 40}

	fmt.Println()
	PrintTableHeader(columns, widths)
	for _, r := range summary.Results {
		status := "done"
		detail := ""
		if r.State == pipeline.StateSkipped {
			status = "skipped"
			detail = fmt.Sprintf("%s (%s)", r.Reason, r.SkippedAt)
		}
		PrintTableRow([]string{
			r.Symbol,
			status,
			fmt.Sprint(r.Raw),
			fmt.Sprint(r.Records),
			fmt.Sprint(r.Inserted),
			detail,
		}, widths)
	}
	PrintSeparator()

	elapsed := summary.FinishedAt.Sub(summary.StartedAt).Round(time.Millisecond)
	fmt.Printf("Run %s: %d done, %d skipped, %d records, %d inserted in %s\n",
		summary.RunID, summary.Done(), summary.Skipped(), len(summary.Records), summary.Inserted(), elapsed)
}

// PrintReportResult reports whether the run produced report files
func PrintReportResult(summary *pipeline.RunSummary, dir string, formats []string) {
	switch {
	case len(summary.Records) == 0:
		PrintWarning("No data processed")
	case summary.ReportErr != nil:
		PrintWarning(fmt.Sprintf("Reports not written: %v", summary.ReportErr))
	default:
		PrintSuccess(fmt.Sprintf("Reports written to %s (%s)", dir, strings.Join(formats, ", ")))
	}
}
