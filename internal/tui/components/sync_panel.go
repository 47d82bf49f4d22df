package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/shopsync/internal/domain"
	"github.com/mmcdole/shopsync/internal/tui/styles"
)

// detailsHeight is the fixed height of the details block (title, control, counters, spacing)
const detailsHeight = 8

// PanelState is what the details block renders
type PanelState struct {
	Counts      domain.SyncCounts
	Bulk        domain.BulkState
	RemoteLabel string
	LocalLabel  string
	Frame       int
}

// SyncPanel shows the sync-all control, the counters and the sync log
type SyncPanel struct {
	log     viewport.Model
	lines   []string
	visible bool
	width   int
	height  int
}

func NewSyncPanel() SyncPanel {
	return SyncPanel{log: viewport.New(0, 0)}
}

// StartLog clears and reveals the log for a new session
func (p *SyncPanel) StartLog() {
	p.lines = nil
	p.visible = true
	p.log.SetContent("")
}

// AppendLog adds a progress line and keeps the newest line in view
func (p *SyncPanel) AppendLog(line string) {
	p.lines = append(p.lines, line)
	p.log.SetContent(p.renderLines())
	p.log.GotoBottom()
}

func (p SyncPanel) LogVisible() bool {
	return p.visible
}

func (p SyncPanel) Lines() []string {
	return p.lines
}

func (p *SyncPanel) SetSize(width, height int) {
	p.width = width
	p.height = height

	logHeight := height - detailsHeight - 4
	if logHeight < 1 {
		logHeight = 1
	}
	p.log.Width = width - 4
	p.log.Height = logHeight
	if len(p.lines) > 0 {
		p.log.SetContent(p.renderLines())
		p.log.GotoBottom()
	}
}

// Update scrolls the log
func (p SyncPanel) Update(msg tea.Msg) (SyncPanel, tea.Cmd) {
	var cmd tea.Cmd
	p.log, cmd = p.log.Update(msg)
	return p, cmd
}

func (p SyncPanel) renderLines() string {
	width := p.log.Width
	var b strings.Builder
	for i, line := range p.lines {
		if i > 0 {
			b.WriteString("\n")
		}
		if width > 0 {
			line = lipgloss.NewStyle().Width(width).Render(line)
		}
		b.WriteString(styles.LogLineStyle.Render(line))
	}
	return b.String()
}

func (p SyncPanel) View(s PanelState) string {
	inner := p.width - 4
	if inner < 10 {
		inner = 10
	}

	details := lipgloss.JoinVertical(lipgloss.Left,
		styles.PanelTitleStyle.Render("Synchronization Details"),
		"",
		renderControl(s),
		"",
		renderCounter(fmt.Sprintf("Products in %s", s.RemoteLabel), s.Counts.Remote, inner),
		renderCounter(fmt.Sprintf("Items in %s", s.LocalLabel), s.Counts.Local, inner),
		renderCounter("Synced items", s.Counts.Synced, inner),
	)
	sections := []string{styles.PanelStyle.Width(p.width - 2).Render(details)}

	if p.visible {
		log := lipgloss.JoinVertical(lipgloss.Left,
			styles.PanelTitleStyle.Render("Sync Log"),
			p.log.View(),
		)
		sections = append(sections, styles.PanelStyle.Width(p.width-2).Render(log))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func renderControl(s PanelState) string {
	switch s.Bulk {
	case domain.BulkChecking:
		return styles.ButtonDisabledStyle.Render(styles.SpinnerFrame(s.Frame) + " Checking...")
	case domain.BulkRunning:
		return styles.ButtonDisabledStyle.Render(styles.SpinnerFrame(s.Frame) + " Syncing all products...")
	default:
		return styles.ButtonStyle.Render("Sync all products") + styles.DimStyle.Render("  a")
	}
}

func renderCounter(label string, value, width int) string {
	v := styles.CounterValueStyle.Render(fmt.Sprintf("%d", value))
	gap := width - lipgloss.Width(label) - lipgloss.Width(v)
	if gap < 1 {
		gap = 1
	}
	return styles.SubtitleStyle.Render(label) + strings.Repeat(" ", gap) + v
}
