// Package controller provides the progress and summary displays of a compare run.
package controller

import (
	"context"
	"io"
	"os"

	"golang.org/x/term"

	m "pkgabidiff.dev/pkg/pkgabidiff/internal/model"
)

// StartOption is a functional option for Start method.
type StartOption func(*StartConfig)

// StartConfig holds configuration for starting the UI.
type StartConfig struct {
	title string
}

// WithTitle sets the heading shown while the run is in progress.
func WithTitle(title string) StartOption {
	return func(c *StartConfig) {
		c.title = title
	}
}

// UI receives progress events from the compare workflow. Implementations
// must be safe for concurrent use: dump and compare events arrive from the
// worker pool.
type UI interface {
	Start(ctx context.Context, options ...StartOption) error
	Close(ctx context.Context)
	// DisplayStage announces a new stage. total is the number of work items
	// the stage will report, or 0 when unknown.
	DisplayStage(ctx context.Context, stage string, total int)
	DisplayWarning(ctx context.Context, message string)
	DisplayDumpResult(ctx context.Context, age m.Age, object string, dump m.ABIDump, err error)
	DisplayComparison(ctx context.Context, result m.PairResult, err error)
	DisplaySummary(ctx context.Context, summary *m.RunSummary)
	DisplayReportExists(ctx context.Context, dir m.Path)
}

// IsTTY reports whether w is an interactive terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return term.IsTerminal(int(f.Fd()))
}

// NewUI returns the TUI for terminals and the plain UI otherwise.
func NewUI(out io.Writer, useTUI bool) UI {
	if useTUI && IsTTY(out) {
		return NewTUI(out)
	}

	return NewSimpleUI(out)
}

func rateSummary(record m.CompatibilityRecord) string {
	var text string

	if record.Binary != nil {
		text = "BC: " + m.FormatPercent(record.Binary.Rate()) + "%"
	}

	if record.Source != nil {
		if text != "" {
			text += ", "
		}

		text += "SC: " + m.FormatPercent(record.Source.Rate()) + "%"
	}

	return text
}

func headline(summary *m.RunSummary) string {
	var text string

	if summary.Mode.Binary && summary.Meta.BC != nil {
		text = "Avg. BC: " + string(*summary.Meta.BC) + "%"
	}

	if summary.Mode.Source && summary.Meta.SourceBC != nil {
		if text != "" {
			text += ", "
		}

		text += "Avg. SC: " + string(*summary.Meta.SourceBC) + "%"
	}

	return text
}

func objectCells(mode m.CompareMode, row m.ObjectRow) []string {
	cells := []string{row.Name}

	switch row.Status {
	case m.ObjectAdded:
		return append(cells, "added")
	case m.ObjectRemoved:
		return append(cells, "removed")
	case m.ObjectFailed:
		return append(cells, "N/A")
	case m.ObjectCompared:
	}

	var rates []string

	if mode.Binary && row.Binary != nil {
		rates = append(rates, row.Binary.Text+"%")
	}

	if mode.Source && row.Source != nil {
		rates = append(rates, row.Source.Text+"%")
	}

	status := joinNonEmpty(rates, " / ")

	switch {
	case row.SONAMEChanged:
		status += " (changed SONAME to " + row.NewSONAME + ")"
	case row.Renamed:
		status += " (renamed to " + row.NewName + ")"
	}

	return append(cells, status)
}

func joinNonEmpty(parts []string, sep string) string {
	var out string

	for _, p := range parts {
		if p == "" {
			continue
		}

		if out != "" {
			out += sep
		}

		out += p
	}

	return out
}
