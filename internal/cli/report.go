package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Veraticus/tally/internal/model"
)

// RenderReport formats a batch report for terminal display.
func RenderReport(report *model.BatchReport) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("%-12s %d\n", "Processed:", report.Processed))
	b.WriteString(fmt.Sprintf("%-12s %s\n", "Matched:", SuccessStyle.Render(fmt.Sprintf("%d", report.Matched))))
	b.WriteString(fmt.Sprintf("%-12s %s\n", "Unmatched:", WarningStyle.Render(fmt.Sprintf("%d", report.Unmatched))))
	if report.Errors > 0 {
		b.WriteString(fmt.Sprintf("%-12s %s\n", "Errors:", ErrorStyle.Render(fmt.Sprintf("%d", report.Errors))))
	}
	b.WriteString(fmt.Sprintf("%-12s %s\n", "Duration:", SubtleStyle.Render(report.Duration().Round(10*time.Millisecond).String())))

	if len(report.MatchedByType) > 0 {
		b.WriteString("\n" + BoldStyle.Render("By match type") + "\n")
		for _, line := range sortedCounts(matchTypeCounts(report)) {
			b.WriteString("  " + line + "\n")
		}
	}

	if len(report.StageHistogram) > 0 {
		b.WriteString("\n" + BoldStyle.Render("By extraction stage") + "\n")
		for _, line := range sortedCounts(stageCounts(report)) {
			b.WriteString("  " + line + "\n")
		}
	}

	if len(report.ErrorSamples) > 0 {
		b.WriteString("\n" + BoldStyle.Render("Error samples") + "\n")
		categories := make([]string, 0, len(report.ErrorSamples))
		for category := range report.ErrorSamples {
			categories = append(categories, category)
		}
		sort.Strings(categories)
		for _, category := range categories {
			for _, sample := range report.ErrorSamples[category] {
				b.WriteString("  " + SubtleStyle.Render(category+": "+sample) + "\n")
			}
		}
	}

	return RenderBox(ChartIcon+" Reconciliation Report", strings.TrimRight(b.String(), "\n"))
}

func matchTypeCounts(report *model.BatchReport) map[string]int {
	counts := make(map[string]int, len(report.MatchedByType))
	for matchType, n := range report.MatchedByType {
		counts[string(matchType)] = n
	}
	return counts
}

func stageCounts(report *model.BatchReport) map[string]int {
	counts := make(map[string]int, len(report.StageHistogram))
	for method, n := range report.StageHistogram {
		counts[string(method)] = n
	}
	return counts
}

// sortedCounts renders label/count pairs, highest count first, ties by
// label for stable output.
func sortedCounts(counts map[string]int) []string {
	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if counts[labels[i]] != counts[labels[j]] {
			return counts[labels[i]] > counts[labels[j]]
		}
		return labels[i] < labels[j]
	})

	lines := make([]string, 0, len(labels))
	for _, label := range labels {
		lines = append(lines, fmt.Sprintf("%-16s %d", label, counts[label]))
	}
	return lines
}
