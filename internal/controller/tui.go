package controller

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	m "pkgabidiff.dev/pkg/pkgabidiff/internal/model"
)

const recentEvents = 6

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)
	stageStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	classStyles = map[string]lipgloss.Style{
		"ok":                lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		"warning":           lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		"almost_compatible": lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
		"incompatible":      lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
)

type stageMsg struct {
	name  string
	total int
}

type eventMsg struct {
	line  string
	style lipgloss.Style
	// step advances the stage progress.
	step    bool
	warning bool
}

type finishMsg struct{}

// runModel is the Bubble Tea model shown while a compare run is in progress.
type runModel struct {
	title    string
	stage    string
	total    int
	done     int
	warnings int
	events   []string
	spinner  spinner.Model
	progress progress.Model
	finished bool
}

func newRunModel(title string) runModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = stageStyle

	return runModel{
		title:    title,
		spinner:  s,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
}

func (rm runModel) Init() tea.Cmd {
	return rm.spinner.Tick
}

func (rm runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stageMsg:
		rm.stage = msg.name
		rm.total = msg.total
		rm.done = 0

		return rm, nil
	case eventMsg:
		if msg.step {
			rm.done++
		}

		if msg.warning {
			rm.warnings++
		}

		rm.events = append(rm.events, msg.style.Render(msg.line))
		if len(rm.events) > recentEvents {
			rm.events = rm.events[len(rm.events)-recentEvents:]
		}

		return rm, nil
	case finishMsg:
		rm.finished = true
		return rm, tea.Quit
	case tea.WindowSizeMsg:
		rm.progress.Width = min(max(msg.Width-20, 10), 60)
		return rm, nil
	case spinner.TickMsg:
		var cmd tea.Cmd

		rm.spinner, cmd = rm.spinner.Update(msg)

		return rm, cmd
	}

	return rm, nil
}

func (rm runModel) View() string {
	var b strings.Builder

	if rm.title != "" {
		b.WriteString(titleStyle.Render(rm.title))
		b.WriteString("\n\n")
	}

	if rm.finished {
		for _, line := range rm.events {
			b.WriteString("  " + line + "\n")
		}

		return b.String()
	}

	fmt.Fprintf(&b, "%s %s", rm.spinner.View(), stageStyle.Render(rm.stage))

	if rm.total > 0 {
		fmt.Fprintf(&b, " %s\n  %s", dimStyle.Render(fmt.Sprintf("(%d/%d)", rm.done, rm.total)),
			rm.progress.ViewAs(float64(rm.done)/float64(rm.total)))
	}

	b.WriteString("\n\n")

	for _, line := range rm.events {
		b.WriteString("  " + line + "\n")
	}

	if rm.warnings > 0 {
		b.WriteString(warningStyle.Render(fmt.Sprintf("\n  %d warning(s), see the log for details\n", rm.warnings)))
	}

	return b.String()
}

// TUI renders run progress with Bubble Tea.
type TUI struct {
	output  io.Writer
	program *tea.Program
	done    chan struct{}
	once    sync.Once
}

// NewTUI creates a new TUI.
func NewTUI(output io.Writer) *TUI {
	return &TUI{output: output}
}

// Start launches the Bubble Tea program in the background.
func (t *TUI) Start(ctx context.Context, options ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var cfg StartConfig
	for _, opt := range options {
		opt(&cfg)
	}

	t.program = tea.NewProgram(newRunModel(cfg.title),
		tea.WithOutput(t.output),
		tea.WithInput(nil),
		tea.WithoutSignalHandler(),
	)
	t.done = make(chan struct{})

	go func() {
		defer close(t.done)

		_, _ = t.program.Run()
	}()

	return nil
}

// Close stops the program and waits for it to restore the terminal.
func (t *TUI) Close(_ context.Context) {
	t.stop()
}

func (t *TUI) stop() {
	if t.program == nil {
		return
	}

	t.once.Do(func() {
		t.program.Send(finishMsg{})
		<-t.done
	})
}

func (t *TUI) send(msg tea.Msg) {
	if t.program != nil {
		t.program.Send(msg)
	}
}

// DisplayStage switches the progress bar to a new stage.
func (t *TUI) DisplayStage(_ context.Context, stage string, total int) {
	t.send(stageMsg{name: stage, total: total})
}

// DisplayWarning adds a warning line.
func (t *TUI) DisplayWarning(_ context.Context, message string) {
	t.send(eventMsg{line: "WARNING: " + message, style: warningStyle, warning: true})
}

// DisplayDumpResult advances the dump stage.
func (t *TUI) DisplayDumpResult(_ context.Context, age m.Age, object string, dump m.ABIDump, err error) {
	switch {
	case err != nil:
		t.send(eventMsg{line: fmt.Sprintf("%s (%s): %v", object, age, err), style: warningStyle, step: true, warning: true})
	case dump.Cached:
		t.send(eventMsg{line: fmt.Sprintf("cached %s (%s)", object, age), style: dimStyle, step: true})
	default:
		t.send(eventMsg{line: fmt.Sprintf("dumped %s (%s)", object, age), style: dimStyle, step: true})
	}
}

// DisplayComparison advances the compare stage.
func (t *TUI) DisplayComparison(_ context.Context, result m.PairResult, err error) {
	pair := result.Pair
	if err != nil {
		t.send(eventMsg{line: fmt.Sprintf("%s: %v", pair.Old.Name, err), style: errorStyle, step: true})
		return
	}

	t.send(eventMsg{
		line:  fmt.Sprintf("%s -> %s  %s", pair.Old.Name, pair.New.Name, rateSummary(result.Record)),
		style: dimStyle,
		step:  true,
	})
}

// DisplaySummary stops the progress display and prints the result table.
func (t *TUI) DisplaySummary(_ context.Context, summary *m.RunSummary) {
	t.stop()

	style := dimStyle
	if s, ok := classStyles[summary.BinaryClass]; ok && summary.Mode.Binary {
		style = s
	} else if s, ok := classStyles[summary.SourceClass]; ok {
		style = s
	}

	_, _ = fmt.Fprintf(t.output, "\n%s%s\n", RenderObjectTable(summary), style.Bold(true).Render(headline(summary)))
	_, _ = fmt.Fprintf(t.output, "%s %s\n", dimStyle.Render("Report:"), summary.ReportDir)
}

// DisplayReportExists stops the progress display and names the existing report.
func (t *TUI) DisplayReportExists(_ context.Context, dir m.Path) {
	t.stop()

	_, _ = fmt.Fprintf(t.output, "%s %s\n", stageStyle.Render("The report already exists:"), dir)
}
