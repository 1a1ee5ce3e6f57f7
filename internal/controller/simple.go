package controller

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/olekukonko/tablewriter"

	m "pkgabidiff.dev/pkg/pkgabidiff/internal/model"
)

// SimpleUI prints plain progress lines, one per event.
type SimpleUI struct {
	out io.Writer
	mu  sync.Mutex
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(out io.Writer) *SimpleUI {
	return &SimpleUI{out: out}
}

// Start initializes the UI.
func (s *SimpleUI) Start(ctx context.Context, options ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var cfg StartConfig
	for _, opt := range options {
		opt(&cfg)
	}

	if cfg.title != "" {
		s.printf("%s\n", cfg.title)
	}

	return nil
}

// Close finalizes the UI.
func (s *SimpleUI) Close(_ context.Context) {}

// DisplayStage prints the stage name.
func (s *SimpleUI) DisplayStage(ctx context.Context, stage string, _ int) {
	if ctx.Err() != nil {
		return
	}

	s.printf("%s ...\n", stage)
}

// DisplayWarning prints a warning line.
func (s *SimpleUI) DisplayWarning(_ context.Context, message string) {
	s.printf("WARNING: %s\n", message)
}

// DisplayDumpResult prints the outcome of one dump.
func (s *SimpleUI) DisplayDumpResult(ctx context.Context, age m.Age, object string, dump m.ABIDump, err error) {
	if ctx.Err() != nil {
		return
	}

	switch {
	case err != nil:
		s.printf("WARNING: %s (%s): %v\n", object, age, err)
	case dump.Cached:
		s.printf("Using existing ABI dump for %s (%s)\n", object, age)
	default:
		s.printf("Created ABI dump for %s (%s)\n", object, age)
	}
}

// DisplayComparison prints the rates of one compared pair.
func (s *SimpleUI) DisplayComparison(ctx context.Context, result m.PairResult, err error) {
	if ctx.Err() != nil {
		return
	}

	pair := result.Pair
	if err != nil {
		s.printf("ERROR: comparing %s (old) and %s (new): %v\n", pair.Old.Name, pair.New.Name, err)
		return
	}

	s.printf("Compared %s (old) and %s (new): %s\n", pair.Old.Name, pair.New.Name, rateSummary(result.Record))
}

// DisplaySummary prints the object table and the package rates.
func (s *SimpleUI) DisplaySummary(_ context.Context, summary *m.RunSummary) {
	s.printf("\n%s", RenderObjectTable(summary))
	s.printf("%s\n", headline(summary))
	s.printf("The report has been generated to: %s\n", summary.ReportDir)
}

// DisplayReportExists prints the location of the existing report.
func (s *SimpleUI) DisplayReportExists(_ context.Context, dir m.Path) {
	s.printf("The report already exists: %s\n", dir)
}

// RenderObjectTable renders the shared object table of a summary.
func RenderObjectTable(summary *m.RunSummary) string {
	var buf bytes.Buffer

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Object", "Compatibility", "Symbols"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})

	for _, row := range summary.Objects {
		symbols := ""
		if row.Status == m.ObjectCompared {
			symbols = strconv.Itoa(row.Symbols)
		}

		table.Append(append(objectCells(summary.Mode, row), symbols))
	}

	table.SetFooter([]string{
		fmt.Sprintf("%d objects", len(summary.Objects)),
		fmt.Sprintf("+%d -%d", summary.Score.ObjectsAdded, summary.Score.ObjectsRemoved),
		strconv.Itoa(summary.Score.TotalSymbols),
	})

	table.Render()

	return buf.String()
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = fmt.Fprintf(s.out, format, args...)
}
