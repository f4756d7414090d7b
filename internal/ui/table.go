package ui

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"testme/internal/domain"
)

// printTable renders one row per test result, grouped by config directory
func (f *Formatter) printTable(summary *domain.Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(f.out)
	t.SetTitle(fmt.Sprintf("Test Results (%s)", summary.RunID))
	t.AppendHeader(table.Row{"Group", "Test", "Type", "Iteration", "Status", "Duration", "Assertions", "Error"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Iteration", Align: text.AlignRight},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Assertions", Align: text.AlignRight},
		{Name: "Error", WidthMax: 60},
	})

	for _, group := range summary.Groups {
		name := f.relPath(group.ConfigDir)
		if group.ConfigDir == "" {
			name = "(defaults)"
		}
		if len(group.Results) == 0 {
			reason := group.Error
			if reason == "" {
				reason = group.SkipReason
			}
			t.AppendRow(table.Row{name, "", "", "", string(group.State), "", "", reason})
			continue
		}
		for _, result := range group.Results {
			assertions := ""
			if result.Passed+result.Failed > 0 {
				assertions = fmt.Sprintf("%d/%d", result.Passed, result.Passed+result.Failed)
			}
			t.AppendRow(table.Row{
				name,
				result.File.RelPath,
				result.File.Type.String(),
				result.Iteration,
				statusLabel(result.Status),
				formatDuration(result.Duration),
				assertions,
				result.Error,
			})
		}
		t.AppendSeparator()
	}

	t.AppendFooter(table.Row{
		"TOTAL", summary.Total, "", "",
		fmt.Sprintf("%d passed, %d failed", summary.Passed, summary.Failed+summary.Errors),
		formatDuration(summary.Duration), "", "",
	})

	switch {
	case !summary.Success():
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	case summary.Skipped > 0:
		t.SetStyle(table.StyleColoredBlackOnYellowWhite)
	default:
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	}
	if !f.colors {
		t.SetStyle(table.StyleLight)
	}
	t.Render()
}
