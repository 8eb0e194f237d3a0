// Package ui renders live progress for multi-file requests in the terminal.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"polylab/internal/driver"
)

const (
	statusQueued = "queued"
	statusDone   = "done"
	statusFailed = "failed"
)

type progressModel struct {
	title   string
	events  <-chan driver.PhaseEvent
	spinner spinner.Model
	prog    progress.Model
	items   []fileItem
	index   map[string]int
	width   int
	done    bool
}

type fileItem struct {
	path   string
	status string
	weight float64
}

type eventMsg driver.PhaseEvent
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model fed by driver phase events.
// files are the request paths; "" stands for stdin. The model quits when
// events is closed.
func NewProgressModel(title string, files []string, events <-chan driver.PhaseEvent) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	items := make([]fileItem, 0, len(files))
	index := make(map[string]int, len(files))
	for i, file := range files {
		items = append(items, fileItem{path: file, status: statusQueued})
		index[file] = i
	}
	return &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		items:   items,
		index:   index,
		width:   80,
	}
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.applyEvent(driver.PhaseEvent(msg))
		return m, tea.Batch(cmd, m.listenForEvent())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = msg.Width - 4
		}
		return m, nil
	case progress.FrameMsg:
		pm, cmd := m.prog.Update(msg)
		m.prog = pm.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	if len(m.items) == 0 {
		return ""
	}
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := m.title
	if m.done {
		header = "done: " + header
	} else {
		header = m.spinner.View() + " " + header
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	nameWidth := max(m.width-16, 20)
	for _, item := range m.items {
		status := styleStatus(item.status).Render(fmt.Sprintf("%12s", item.status))
		fmt.Fprintf(&b, "  %s %s\n", status, truncate(displayName(item.path), nameWidth))
	}
	b.WriteString("\n")
	if m.done {
		b.WriteString(m.prog.ViewAs(1.0))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteString("\n")
	return b.String()
}

func (m *progressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) applyEvent(ev driver.PhaseEvent) tea.Cmd {
	idx, ok := m.index[ev.Path]
	if !ok {
		return nil
	}
	item := &m.items[idx]
	switch {
	case ev.Name == driver.PhaseDone:
		item.status, item.weight = statusDone, 1
	case ev.Name == driver.PhaseFailed:
		item.status, item.weight = statusFailed, 1
	case ev.Status == driver.PhaseStart:
		item.status = phaseLabel(ev.Name)
		item.weight = max(item.weight, phaseWeight(ev.Name))
	default:
		return nil
	}

	total := 0.0
	for _, it := range m.items {
		total += it.weight
	}
	return m.prog.SetPercent(total / float64(len(m.items)))
}

func phaseLabel(name string) string {
	switch name {
	case "open":
		return "opening"
	case "compile":
		return "compiling"
	case "decompile":
		return "decompiling"
	case "ast":
		return "serializing"
	case "inspect":
		return "dumping"
	}
	return name
}

func phaseWeight(name string) float64 {
	switch name {
	case "open":
		return 0.1
	case "compile":
		return 0.3
	case "decompile", "ast", "inspect":
		return 0.8
	}
	return 0
}

func styleStatus(status string) lipgloss.Style {
	switch status {
	case statusDone:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case statusFailed:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	case statusQueued:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
}

func displayName(path string) string {
	if path == "" {
		return "<stdin>"
	}
	return path
}

func truncate(value string, width int) string {
	if width <= 0 || runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	// ширина хвоста входит в width
	return runewidth.Truncate(value, width, "...")
}
