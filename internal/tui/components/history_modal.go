package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/shopsync/internal/domain"
	"github.com/mmcdole/shopsync/internal/tui/styles"
)

const timeLayout = "2006-01-02 15:04"

// runItem adapts a RunRecord to list.DefaultItem
type runItem struct {
	run domain.RunRecord
}

func (i runItem) Title() string {
	status := "finished"
	if !i.run.Done {
		status = "open"
	}
	if i.run.Attached {
		status += ", attached"
	}
	return fmt.Sprintf("%s  (%s)", i.run.StartedAt.Local().Format(timeLayout), status)
}

func (i runItem) Description() string {
	desc := fmt.Sprintf("%d synced · %d errors · %d lines", i.run.SyncedCount, i.run.ErrorCount, len(i.run.Lines))
	if d := i.run.Duration(); d > 0 {
		desc += " · " + d.Round(time.Second).String()
	}
	return desc
}

func (i runItem) FilterValue() string {
	return i.run.StartedAt.Format(timeLayout)
}

// HistoryModal browses archived bulk sync runs; enter opens a run's log
type HistoryModal struct {
	visible    bool
	list       list.Model
	detail     viewport.Model
	showDetail bool
	width      int
	height     int
}

func NewHistoryModal() HistoryModal {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.Foreground(styles.ShopGreen).BorderForeground(styles.ShopGreen)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.Foreground(styles.LightGray).BorderForeground(styles.ShopGreen)

	l := list.New(nil, delegate, 0, 0)
	l.Title = "Sync History"
	l.Styles.Title = styles.HighlightStyle
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.SetShowStatusBar(false)
	l.DisableQuitKeybindings()

	return HistoryModal{list: l, detail: viewport.New(0, 0)}
}

func (m *HistoryModal) Show(runs []domain.RunRecord) {
	items := make([]list.Item, len(runs))
	for i, r := range runs {
		items[i] = runItem{run: r}
	}
	m.list.SetItems(items)
	m.list.ResetSelected()
	m.showDetail = false
	m.visible = true
}

func (m *HistoryModal) Hide() {
	m.visible = false
	m.showDetail = false
}

func (m HistoryModal) IsVisible() bool {
	return m.visible
}

// ShowingDetail reports whether a run's log is open
func (m HistoryModal) ShowingDetail() bool {
	return m.showDetail
}

func (m *HistoryModal) SetSize(width, height int) {
	m.width = width * 2 / 3
	if m.width < 40 {
		m.width = width
	}
	m.height = height * 2 / 3
	if m.height < 10 {
		m.height = height
	}
	m.list.SetSize(m.width-6, m.height-4)
	m.detail.Width = m.width - 6
	m.detail.Height = m.height - 6
}

// Update handles navigation; esc or q steps back from the log, then closes
func (m HistoryModal) Update(msg tea.Msg) (HistoryModal, tea.Cmd) {
	if !m.visible {
		return m, nil
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc", "q", "H":
			if m.showDetail {
				m.showDetail = false
			} else {
				m.Hide()
			}
			return m, nil
		case "enter":
			if !m.showDetail {
				if item, ok := m.list.SelectedItem().(runItem); ok {
					m.detail.SetContent(renderRunLog(item.run))
					m.detail.GotoTop()
					m.showDetail = true
				}
				return m, nil
			}
		}
	}

	var cmd tea.Cmd
	if m.showDetail {
		m.detail, cmd = m.detail.Update(msg)
	} else {
		m.list, cmd = m.list.Update(msg)
	}
	return m, cmd
}

func renderRunLog(run domain.RunRecord) string {
	if len(run.Lines) == 0 {
		return styles.DimStyle.Render("No progress received")
	}
	return styles.LogLineStyle.Render(strings.Join(run.Lines, "\n"))
}

func (m HistoryModal) View() string {
	if !m.visible {
		return ""
	}

	var body string
	switch {
	case m.showDetail:
		item, _ := m.list.SelectedItem().(runItem)
		body = lipgloss.JoinVertical(lipgloss.Left,
			styles.ModalTitleStyle.Render(item.Title()),
			m.detail.View(),
		)
	case len(m.list.Items()) == 0:
		body = lipgloss.JoinVertical(lipgloss.Left,
			styles.ModalTitleStyle.Render("Sync History"),
			styles.DimStyle.Render("No bulk syncs recorded yet"),
		)
	default:
		body = m.list.View()
	}

	return styles.ModalStyle.Width(m.width).Render(body)
}
