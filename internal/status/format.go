package status

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/meow-stack/stagefan/internal/types"
)

// FormatOptions controls output formatting.
type FormatOptions struct {
	NoColor bool
	Quiet   bool
}

// FormatDetailedRun formats a single run with full details.
func FormatDetailedRun(summary *RunSummary, opts FormatOptions) string {
	var b strings.Builder

	b.WriteString(formatHeader(summary, opts))
	b.WriteString("\n\n")

	b.WriteString(formatProgress(summary, opts))
	b.WriteString("\n\n")

	if len(summary.Branches) > 0 {
		b.WriteString(formatBranches(summary, opts))
		b.WriteString("\n")
	}

	if len(summary.Errors) > 0 {
		b.WriteString(formatErrors(summary, opts))
		b.WriteString("\n")
	}

	return b.String()
}

// FormatRunList formats a list of runs.
func FormatRunList(summaries []*RunSummary, opts FormatOptions) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Found %d run(s):\n\n", len(summaries)))

	for i, summary := range summaries {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(formatRunListItem(summary, opts))
		b.WriteString("\n")
	}

	return b.String()
}

func formatHeader(summary *RunSummary, opts FormatOptions) string {
	var b strings.Builder

	statusColor := getStatusColor(summary.Status, opts.NoColor)

	b.WriteString(fmt.Sprintf("Run:      %s\n", summary.ID))
	b.WriteString(fmt.Sprintf("Pipeline: %s\n", summary.Pipeline))
	b.WriteString(fmt.Sprintf("Status:   %s%s %s%s\n",
		statusColor, getStatusIcon(summary.Status), summary.Status, resetColor(opts.NoColor)))
	b.WriteString(fmt.Sprintf("Started:  %s", formatTime(summary.StartedAt)))

	if summary.DoneAt != nil {
		b.WriteString(fmt.Sprintf(" (took %s)", formatDuration(summary.DoneAt.Sub(summary.StartedAt))))
	} else {
		b.WriteString(fmt.Sprintf(" (%s ago)", formatDuration(time.Since(summary.StartedAt))))
	}

	if len(summary.Args) > 0 && !opts.Quiet {
		keys := make([]string, 0, len(summary.Args))
		for k := range summary.Args {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteString("\n\nArgs:")
		for _, k := range keys {
			b.WriteString(fmt.Sprintf("\n  %s = %s", k, strings.Join(summary.Args[k], " | ")))
		}
	}

	return b.String()
}

func formatProgress(summary *RunSummary, opts FormatOptions) string {
	var b strings.Builder

	stats := summary.BranchStats
	completed := stats.Success + stats.Failure

	var percentage int
	if stats.Total > 0 {
		percentage = (completed * 100) / stats.Total
	}

	// 25 characters wide
	barWidth := 25
	filled := (percentage * barWidth) / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	b.WriteString(fmt.Sprintf("Progress: %s %d%% (%d/%d branches)\n", bar, percentage, completed, stats.Total))
	b.WriteString("\nBranches: ")

	var parts []string
	if stats.Success > 0 {
		parts = append(parts, fmt.Sprintf("%s✓ %d succeeded%s",
			getColor("green", opts.NoColor), stats.Success, resetColor(opts.NoColor)))
	}
	if stats.Failure > 0 {
		parts = append(parts, fmt.Sprintf("%s✗ %d failed%s",
			getColor("red", opts.NoColor), stats.Failure, resetColor(opts.NoColor)))
	}
	if stats.Pending > 0 {
		parts = append(parts, fmt.Sprintf("%s○ %d pending%s",
			getColor("gray", opts.NoColor), stats.Pending, resetColor(opts.NoColor)))
	}
	if len(parts) == 0 {
		parts = append(parts, "none")
	}
	b.WriteString(strings.Join(parts, ", "))

	return b.String()
}

func formatBranches(summary *RunSummary, opts FormatOptions) string {
	var b strings.Builder

	width := 0
	for _, br := range summary.Branches {
		if len(br.Job) > width {
			width = len(br.Job)
		}
	}

	b.WriteString("Results:\n")
	for _, br := range summary.Branches {
		icon, color := "○", getColor("gray", opts.NoColor)
		switch br.Status {
		case types.BranchStatusSuccess:
			icon, color = "✓", getColor("green", opts.NoColor)
		case types.BranchStatusFailure:
			icon, color = "✗", getColor("red", opts.NoColor)
		}
		b.WriteString(fmt.Sprintf("  %s%s %-*s%s  %s", color, icon, width, br.Job, resetColor(opts.NoColor), br.Status))
		if br.Duration > 0 {
			b.WriteString(fmt.Sprintf(" (%s)", formatDuration(br.Duration)))
		}
		b.WriteString("\n")
	}

	return b.String()
}

func formatErrors(summary *RunSummary, opts FormatOptions) string {
	var b strings.Builder

	errColor := getColor("red", opts.NoColor)
	reset := resetColor(opts.NoColor)

	b.WriteString(fmt.Sprintf("%sErrors:%s\n", errColor, reset))
	for _, err := range summary.Errors {
		b.WriteString(fmt.Sprintf("  %s✗%s %s\n", errColor, reset, err))
	}

	return b.String()
}

func formatRunListItem(summary *RunSummary, opts FormatOptions) string {
	var b strings.Builder

	statusColor := getStatusColor(summary.Status, opts.NoColor)
	b.WriteString(fmt.Sprintf("%s%s %s%s", statusColor, getStatusIcon(summary.Status), summary.ID, resetColor(opts.NoColor)))

	if opts.Quiet {
		return b.String()
	}

	stats := summary.BranchStats
	b.WriteString(fmt.Sprintf("\n  Pipeline: %s", summary.Pipeline))
	b.WriteString(fmt.Sprintf("\n  Status:   %s%s%s", statusColor, summary.Status, resetColor(opts.NoColor)))
	b.WriteString(fmt.Sprintf("\n  Branches: %d/%d succeeded", stats.Success, stats.Total))

	if summary.DoneAt != nil {
		b.WriteString(fmt.Sprintf("\n  Duration: %s", formatDuration(summary.DoneAt.Sub(summary.StartedAt))))
	} else {
		b.WriteString(fmt.Sprintf("\n  Running:  %s", formatDuration(time.Since(summary.StartedAt))))
	}

	return b.String()
}

// Formatting helpers

func getStatusIcon(status types.RunStatus) string {
	switch status {
	case types.RunStatusRunning:
		return "●"
	case types.RunStatusDone:
		return "✓"
	case types.RunStatusFailed:
		return "✗"
	case types.RunStatusPending:
		return "○"
	default:
		return "?"
	}
}

func getStatusColor(status types.RunStatus, noColor bool) string {
	switch status {
	case types.RunStatusRunning:
		return getColor("yellow", noColor)
	case types.RunStatusDone:
		return getColor("green", noColor)
	case types.RunStatusFailed:
		return getColor("red", noColor)
	case types.RunStatusPending:
		return getColor("gray", noColor)
	default:
		return ""
	}
}

func getColor(name string, noColor bool) string {
	if noColor {
		return ""
	}

	switch name {
	case "red":
		return "\033[31m"
	case "green":
		return "\033[32m"
	case "yellow":
		return "\033[33m"
	case "gray":
		return "\033[90m"
	default:
		return ""
	}
}

func resetColor(noColor bool) string {
	if noColor {
		return ""
	}
	return "\033[0m"
}

func formatTime(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
