package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// handleKeyMsg handles keyboard input
func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Alerts are blocking
	if m.Alert.IsVisible() {
		if key.Matches(msg, Keys.Dismiss) {
			m.Alert.Dismiss()
		}
		return m, nil
	}

	// Handle state-specific keys
	switch m.State {
	case StateHelp:
		m.State = StateBrowsing
		return m, nil

	case StateHistory:
		var cmd tea.Cmd
		m.History, cmd = m.History.Update(msg)
		if !m.History.IsVisible() {
			m.State = StateBrowsing
		}
		return m, cmd

	case StateFiltering:
		return m.handleFilterKey(msg)
	}

	// Global keys
	switch {
	case key.Matches(msg, Keys.Quit):
		if m.run != nil {
			m.run.Close()
		}
		return m, tea.Quit

	case key.Matches(msg, Keys.Help):
		m.State = StateHelp
		return m, nil

	case key.Matches(msg, Keys.Escape):
		// Clear active filter if any
		if m.Table.Filter() != "" {
			m.Table.SetFilter("")
			m.Filter.SetValue("")
			m.updateLayout()
		}
		return m, nil

	case key.Matches(msg, Keys.Filter):
		m.State = StateFiltering
		m.Filter.SetValue(m.Table.Filter())
		m.Filter.CursorEnd()
		m.updateLayout()
		return m, m.Filter.Focus()

	case key.Matches(msg, Keys.History):
		return m, LoadHistoryCmd(m.Svc, m.opts.HistoryLimit)

	case key.Matches(msg, Keys.Sync):
		return m.syncSelected()

	case key.Matches(msg, Keys.SyncAll):
		return m.syncAll()

	case key.Matches(msg, Keys.Refresh):
		return m, FetchCountsCmd(m.ctx, m.Svc)

	case key.Matches(msg, Keys.NextPage):
		return m.switchPage(true)

	case key.Matches(msg, Keys.PrevPage):
		return m.switchPage(false)

	case key.Matches(msg, Keys.LogUp, Keys.LogDown):
		var cmd tea.Cmd
		m.Panel, cmd = m.Panel.Update(msg)
		return m, cmd

	case key.Matches(msg, Keys.Up, Keys.Down):
		var cmd tea.Cmd
		m.Table, cmd = m.Table.Update(msg)
		return m, cmd
	}

	return m, nil
}

// handleFilterKey edits the filter; rows narrow as the query changes
func (m Model) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.State = StateBrowsing
		m.Filter.Blur()
		m.updateLayout()
		return m, nil

	case tea.KeyEsc:
		m.State = StateBrowsing
		m.Filter.Blur()
		m.Filter.SetValue("")
		m.Table.SetFilter("")
		m.updateLayout()
		return m, nil
	}

	var cmd tea.Cmd
	m.Filter, cmd = m.Filter.Update(msg)
	if m.Filter.Value() != m.Table.Filter() {
		m.Table.SetFilter(m.Filter.Value())
	}
	return m, cmd
}
