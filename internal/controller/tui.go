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
	"github.com/spf13/cobra"
)

const defaultTask = "scanning"

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	faintStyle = lipgloss.NewStyle().Faint(true)
)

// TUI shows a live progress bar on the terminal while a query runs and
// prints results the same way SimpleUI does.
type TUI struct {
	*SimpleUI

	output  io.Writer
	mu      sync.Mutex
	program *tea.Program
	done    chan struct{}
}

// NewTUI creates a new TUI drawing progress on output.
func NewTUI(cmd *cobra.Command, output io.Writer, opts OutputOptions) (*TUI, error) {
	simple, err := NewSimpleUI(cmd, opts)
	if err != nil {
		return nil, err
	}

	return &TUI{SimpleUI: simple, output: output}, nil
}

// Start launches the progress display.
func (t *TUI) Start(ctx context.Context, options ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cfg := StartConfig{task: defaultTask}
	for _, opt := range options {
		opt(&cfg)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.program != nil {
		return nil
	}

	t.program = tea.NewProgram(
		newProgressModel(cfg.task),
		tea.WithOutput(t.output),
		tea.WithInput(nil),
		tea.WithContext(ctx),
		tea.WithoutSignalHandler(),
	)
	t.done = make(chan struct{})

	go func(p *tea.Program, done chan struct{}) {
		defer close(done)

		_, _ = p.Run()
	}(t.program, t.done)

	return nil
}

// Close stops the progress display and waits until the terminal is restored.
func (t *TUI) Close(context.Context) {
	t.mu.Lock()
	p, done := t.program, t.done
	t.program, t.done = nil, nil
	t.mu.Unlock()

	if p == nil {
		return
	}

	p.Send(finishedMsg{})
	<-done
}

// DisplayProgress updates the bar for task.
func (t *TUI) DisplayProgress(_ context.Context, task string, read, total int64) {
	t.mu.Lock()
	p := t.program
	t.mu.Unlock()

	if p == nil {
		return
	}

	p.Send(progressMsg{task: task, read: read, total: total})
}

type progressMsg struct {
	task  string
	read  int64
	total int64
}

type finishedMsg struct{}

type taskProgress struct {
	read  int64
	total int64
}

// progressModel is the Bubble Tea model behind TUI.
type progressModel struct {
	title    string
	spinner  spinner.Model
	bar      progress.Model
	order    []string
	tasks    map[string]taskProgress
	finished bool
}

func newProgressModel(title string) progressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot

	return progressModel{
		title:   title,
		spinner: s,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		tasks:   map[string]taskProgress{},
	}
}

func (pm progressModel) Init() tea.Cmd {
	return pm.spinner.Tick
}

func (pm progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case progressMsg:
		if _, ok := pm.tasks[msg.task]; !ok {
			pm.order = append(pm.order, msg.task)
		}

		pm.tasks[msg.task] = taskProgress{read: msg.read, total: msg.total}

		return pm, nil
	case finishedMsg:
		pm.finished = true
		return pm, tea.Quit
	case tea.WindowSizeMsg:
		pm.bar.Width = max(10, min(msg.Width-40, 60))
		return pm, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		pm.spinner, cmd = pm.spinner.Update(msg)

		return pm, cmd
	}

	return pm, nil
}

func (pm progressModel) View() string {
	if pm.finished {
		return ""
	}

	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n", pm.spinner.View(), titleStyle.Render(pm.title))

	for _, task := range pm.order {
		tp := pm.tasks[task]

		ratio := 0.0
		if tp.total > 0 {
			ratio = min(float64(tp.read)/float64(tp.total), 1)
		}

		fmt.Fprintf(&b, "  %-20s %s %s\n", task, pm.bar.ViewAs(ratio),
			faintStyle.Render(fmt.Sprintf("%s / %s", humanBytes(tp.read), humanBytes(tp.total))))
	}

	return b.String()
}
