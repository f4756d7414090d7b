package ui

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"go.uber.org/zap"

	"testme/internal/domain"
	"testme/internal/logging"
	"testme/internal/storage"
)

// FailureViewer browses a run's failing groups and tests in a TUI.
// Marking a test resolved is saved back to storage.
type FailureViewer struct {
	storage storage.Storage
	out     io.Writer
	logger  *zap.Logger
}

// NewFailureViewer creates a new FailureViewer. out receives the message
// printed when there is nothing to browse.
func NewFailureViewer(st storage.Storage, out io.Writer, logger *zap.Logger) *FailureViewer {
	return &FailureViewer{storage: st, out: out, logger: logging.OrNop(logger)}
}

// failureEntry is one node of the viewer: a group whose lifecycle failed or
// a test result that did not pass
type failureEntry struct {
	group    *domain.GroupResult
	result   *domain.TestResult
	failures []int // indexes into Report.Failures
}

func (e *failureEntry) resolved(report *domain.Report) bool {
	if len(e.failures) == 0 {
		return false
	}
	for _, i := range e.failures {
		if !report.Failures[i].Resolved {
			return false
		}
	}
	return true
}

func (e *failureEntry) toggle(report *domain.Report) {
	mark := !e.resolved(report)
	for _, i := range e.failures {
		report.Failures[i].Resolved = mark
	}
}

// collectEntries returns the failing groups of report, each followed by
// its tests that failed or errored
func collectEntries(report *domain.Report) [][]*failureEntry {
	var groups [][]*failureEntry
	for gi := range report.Groups {
		group := &report.Groups[gi]
		entries := []*failureEntry{{group: group}}
		for ri := range group.Results {
			result := &group.Results[ri]
			if result.Status != domain.StatusFailed && result.Status != domain.StatusError {
				continue
			}
			entry := &failureEntry{group: group, result: result}
			for fi, failure := range report.Failures {
				if failure.FilePath == result.File.Path {
					entry.failures = append(entry.failures, fi)
				}
			}
			entries = append(entries, entry)
		}
		if len(entries) > 1 || group.Error != "" {
			groups = append(groups, entries)
		}
	}
	return groups
}

// View displays the failures of report
func (fv *FailureViewer) View(report *domain.Report) error {
	groups := collectEntries(report)
	if len(groups) == 0 {
		green.Fprintln(fv.out, "✓ No test failures found!")
		return nil
	}

	app := tview.NewApplication()
	details := tview.NewTextView().SetDynamicColors(true).SetWrap(true).SetWordWrap(true)
	details.SetBorder(true).SetTitle(" details ")
	status := tview.NewTextView().SetDynamicColors(true)

	root := tview.NewTreeNode(fmt.Sprintf("run %s", report.Meta.RunID)).SetColor(tcell.ColorTeal)
	tree := tview.NewTreeView().SetRoot(root)
	tree.SetBorder(true).SetTitle(" failures ")

	for _, entries := range groups {
		groupNode := tview.NewTreeNode(entryLabel(entries[0], report)).SetReference(entries[0]).SetExpanded(true)
		for _, entry := range entries[1:] {
			groupNode.AddChild(tview.NewTreeNode(entryLabel(entry, report)).SetReference(entry))
		}
		root.AddChild(groupNode)
	}

	updateStatus := func() {
		unresolved := 0
		for _, entries := range groups {
			for _, entry := range entries[1:] {
				if !entry.resolved(report) {
					unresolved++
				}
			}
		}
		status.SetText(fmt.Sprintf(" %d unresolved | [yellow]r[white] resolve  [yellow]tab[white] details  [yellow]q[white] quit", unresolved))
	}
	show := func(node *tview.TreeNode) {
		if entry, ok := node.GetReference().(*failureEntry); ok {
			details.SetText(entryDetails(entry, report)).ScrollToBeginning()
		}
	}

	tree.SetChangedFunc(show)
	tree.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch {
		case event.Key() == tcell.KeyTab:
			app.SetFocus(details)
			return nil
		case event.Rune() == 'q':
			app.Stop()
			return nil
		case event.Rune() == 'r' || event.Rune() == 'R':
			node := tree.GetCurrentNode()
			entry, ok := node.GetReference().(*failureEntry)
			if !ok || entry.result == nil {
				return nil
			}
			entry.toggle(report)
			node.SetText(entryLabel(entry, report))
			show(node)
			updateStatus()
			if err := fv.storage.Save(report); err != nil {
				fv.logger.Warn("failed to save resolved status", zap.Error(err))
			}
			return nil
		}
		return event
	})
	details.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyTab || event.Key() == tcell.KeyEsc {
			app.SetFocus(tree)
			return nil
		}
		return event
	})

	first := root.GetChildren()[0]
	tree.SetCurrentNode(first)
	show(first)
	updateStatus()

	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(tview.NewFlex().
			AddItem(tree, 0, 1, true).
			AddItem(details, 0, 2, false), 0, 1, true).
		AddItem(status, 1, 0, false)

	if err := app.SetRoot(layout, true).SetFocus(tree).Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func entryLabel(entry *failureEntry, report *domain.Report) string {
	if entry.result == nil {
		name := entry.group.ConfigDir
		if name == "" {
			name = "(defaults)"
		}
		return fmt.Sprintf("%s (%s)", tview.Escape(name), entry.group.State)
	}

	r := entry.result
	label := tview.Escape(r.File.RelPath)
	if r.Iteration > 1 {
		label += fmt.Sprintf(" #%d", r.Iteration)
	}
	switch {
	case entry.resolved(report):
		return "✓ " + label
	case r.Status == domain.StatusError:
		return "! " + label
	}
	return "✗ " + label
}

// entryDetails renders an entry with tview color tags
func entryDetails(entry *failureEntry, report *domain.Report) string {
	var b strings.Builder
	g := entry.group

	if entry.result == nil {
		fmt.Fprintf(&b, "[cyan]Group:[white] %s\n", tview.Escape(g.ConfigDir))
		fmt.Fprintf(&b, "[cyan]State:[white] %s\n", g.State)
		if g.Error != "" {
			fmt.Fprintf(&b, "[red]Error:[white] %s\n", tview.Escape(g.Error))
		}
		for _, phase := range g.Phases {
			mark := "[green]✓[white]"
			if !phase.Success {
				mark = "[red]✗[white]"
			}
			fmt.Fprintf(&b, "\n%s %s (%s)\n", mark, phase.Phase, phase.Duration.Round(time.Millisecond))
			if phase.Error != "" {
				fmt.Fprintf(&b, "  %s\n", tview.Escape(phase.Error))
			}
			if !phase.Success && phase.Output != "" {
				fmt.Fprintf(&b, "[gray]%s[white]\n", tview.Escape(strings.TrimRight(phase.Output, "\n")))
			}
		}
		return b.String()
	}

	r := entry.result
	fmt.Fprintf(&b, "[cyan]Test:[white] %s  [gray](%s, iteration %d)[white]\n", tview.Escape(r.File.RelPath), r.File.Type, max(r.Iteration, 1))
	fmt.Fprintf(&b, "[cyan]Group:[white] %s\n", tview.Escape(filepath.ToSlash(g.ConfigDir)))
	fmt.Fprintf(&b, "[cyan]Status:[white] %s in %s", r.Status, r.Duration.Round(time.Millisecond))
	if r.ExitCode != nil {
		fmt.Fprintf(&b, ", exit code %d", *r.ExitCode)
	}
	b.WriteString("\n")
	if r.Passed+r.Failed > 0 {
		fmt.Fprintf(&b, "[cyan]Assertions:[white] %d passed, %d failed\n", r.Passed, r.Failed)
	}
	if r.Error != "" {
		fmt.Fprintf(&b, "[red]Error:[white] %s\n", tview.Escape(r.Error))
	}

	for _, i := range entry.failures {
		f := report.Failures[i]
		mark := "[red]✗[white]"
		if f.Resolved {
			mark = "[gray]✓[white]"
		}
		fmt.Fprintf(&b, "\n%s %s\n", mark, tview.Escape(f.Message))
		if f.File != "" && f.Line > 0 {
			fmt.Fprintf(&b, "  [yellow]at %s:%d[white]\n", tview.Escape(f.File), f.Line)
		}
		if f.Expected != "" || f.Received != "" {
			fmt.Fprintf(&b, "  [green]Expected:[white] %s\n", tview.Escape(f.Expected))
			fmt.Fprintf(&b, "  [red]Received:[white] %s\n", tview.Escape(f.Received))
		}
	}

	if out := strings.TrimRight(r.Output, "\n"); out != "" {
		fmt.Fprintf(&b, "\n[cyan]Output:[white]\n%s\n", tview.Escape(out))
	}
	return b.String()
}
