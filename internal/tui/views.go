package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/shopsync/internal/domain"
	"github.com/mmcdole/shopsync/internal/tui/styles"
)

// RenderSpinner renders the spinner frame for tick n
func RenderSpinner(frame int) string {
	return styles.SpinnerStyle.Render(styles.SpinnerFrame(frame))
}

func (m Model) renderTitleBar() string {
	title := styles.TitleBarStyle.Render(m.opts.Title)
	gap := m.Width - lipgloss.Width(title)
	if gap < 0 {
		gap = 0
	}
	return title + strings.Repeat(" ", gap)
}

// renderFilterLine shows the filter input while editing, or the active query
func (m Model) renderFilterLine() string {
	switch {
	case m.State == StateFiltering:
		return m.Filter.View()
	case m.Table.Filter() != "":
		shown := len(m.Table.Products())
		return styles.FilterPromptStyle.Render("/ ") + styles.FilterStyle.Render(m.Table.Filter()) +
			styles.DimStyle.Render(fmt.Sprintf("  %d of %d  (esc to clear)", shown, m.Table.Len()))
	}
	return ""
}

// renderPagination renders the Prev / Next controls, disabled while a page loads
// or when the server returned no cursor in that direction
func (m Model) renderPagination(width int) string {
	control := func(label string, cursor domain.Cursor) string {
		if m.Paging || cursor.IsZero() {
			return styles.ButtonDisabledStyle.Render(label)
		}
		return styles.ButtonStyle.Render(label)
	}

	prev := control("‹ Prev [p]", m.Prev)
	next := control("[n] Next ›", m.Next)

	middle := m.Table.PageSummary()
	if m.Paging {
		middle = RenderSpinner(m.SpinnerFrame) + styles.DimStyle.Render(" Loading...")
	}

	gap := width - lipgloss.Width(prev) - lipgloss.Width(next) - lipgloss.Width(middle)
	if gap < 2 {
		return prev + " " + middle + " " + next
	}
	left := gap / 2
	return prev + strings.Repeat(" ", left) + middle + strings.Repeat(" ", gap-left) + next
}

// renderFooter renders a single-line status bar
func (m Model) renderFooter() string {
	var left string
	if m.StatusMsg != "" {
		if m.StatusIsErr {
			left = styles.ErrorStyle.Render(m.StatusMsg)
		} else {
			left = styles.SuccessStyle.Render(m.StatusMsg)
		}
	} else if m.Session.Running() {
		left = RenderSpinner(m.SpinnerFrame) + " " + styles.DimStyle.Render("Sync all in progress")
	}

	right := styles.AccentStyle.Render("?") + styles.DimStyle.Render(" help")

	gap := m.Width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}
	return left + strings.Repeat(" ", gap) + right
}

// renderHelp renders the help screen
func (m Model) renderHelp() string {
	rows := []struct{ keys, desc string }{
		{Keys.Up.Help().Key + " " + Keys.Down.Help().Key, "Move selection"},
		{Keys.Sync.Help().Key, "Sync / re-sync selected product"},
		{Keys.NextPage.Help().Key, "Next page"},
		{Keys.PrevPage.Help().Key, "Previous page"},
		{Keys.SyncAll.Help().Key, "Sync all products"},
		{Keys.Refresh.Help().Key, "Refresh counters"},
		{Keys.Filter.Help().Key, "Filter page by name or SKU"},
		{Keys.History.Help().Key, "Sync history"},
		{Keys.LogUp.Help().Key + " " + Keys.LogDown.Help().Key, "Scroll sync log"},
		{Keys.Escape.Help().Key, "Clear filter"},
		{Keys.Quit.Help().Key, "Quit"},
	}

	var b strings.Builder
	b.WriteString(styles.ModalTitleStyle.Render("Keys"))
	b.WriteString("\n")
	for _, r := range rows {
		b.WriteString(styles.HelpKeyStyle.Render(styles.Pad(r.keys, 14)))
		b.WriteString(styles.HelpDescStyle.Render(r.desc))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(styles.DimStyle.Render("Press any key to return..."))

	return lipgloss.Place(m.Width, m.Height,
		lipgloss.Center, lipgloss.Center,
		styles.ModalStyle.Render(b.String()))
}
