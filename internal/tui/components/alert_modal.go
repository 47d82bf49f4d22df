package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/shopsync/internal/tui/styles"
)

// Alert is one blocking error message
type Alert struct {
	Title   string
	Message string
}

// AlertModal shows queued alerts one at a time until each is dismissed
type AlertModal struct {
	queue []Alert
}

func (m *AlertModal) Push(title, message string) {
	m.queue = append(m.queue, Alert{Title: title, Message: message})
}

// Dismiss drops the alert on screen
func (m *AlertModal) Dismiss() {
	if len(m.queue) > 0 {
		m.queue = m.queue[1:]
	}
}

func (m AlertModal) IsVisible() bool {
	return len(m.queue) > 0
}

// Current returns the alert on screen
func (m AlertModal) Current() (Alert, bool) {
	if len(m.queue) == 0 {
		return Alert{}, false
	}
	return m.queue[0], true
}

// Pending returns the number of queued alerts, including the one on screen
func (m AlertModal) Pending() int {
	return len(m.queue)
}

func (m AlertModal) View(maxWidth int) string {
	alert, ok := m.Current()
	if !ok {
		return ""
	}

	width := maxWidth - 10
	if width > 60 {
		width = 60
	}
	if width < 20 {
		width = 20
	}

	title := alert.Title
	if len(m.queue) > 1 {
		title = fmt.Sprintf("%s (1 of %d)", title, len(m.queue))
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		styles.ModalTitleStyle.Foreground(styles.Red).Render(title),
		lipgloss.NewStyle().Width(width).Foreground(styles.White).Render(alert.Message),
		"",
		styles.DimStyle.Render("enter/esc to dismiss"),
	)
	return styles.AlertModalStyle.Render(content)
}
