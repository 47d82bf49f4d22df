package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/shopsync/internal/domain"
	"github.com/mmcdole/shopsync/internal/importer"
	"github.com/mmcdole/shopsync/internal/tui/components"
	"github.com/mmcdole/shopsync/internal/tui/styles"
)

// ApplicationState represents the current state of the application
type ApplicationState int

const (
	StateBrowsing ApplicationState = iota
	StateFiltering
	StateHelp
	StateHistory
)

// Layout proportions
const (
	TablePercent  = 65
	MinPanelWidth = 32

	// title bar + pagination footer + status bar
	ChromeHeight = 3

	tickInterval   = 100 * time.Millisecond
	statusTTL      = 3 * time.Second
	errorTTL       = 5 * time.Second
	noticeInFlight = "Sync already in progress"
)

// Options configures the labels and limits of the browser
type Options struct {
	Title        string // page title, e.g. "Import Shopify Products"
	RemoteLabel  string // e.g. "Shopify"
	LocalLabel   string // e.g. "ERPNext"
	HistoryLimit int
}

// Model is the main Bubble Tea model for the application
type Model struct {
	// Application state
	State ApplicationState
	Ready bool

	ctx  context.Context
	Svc  *importer.Service
	opts Options

	// UI Components
	Table   components.ProductTable
	Panel   components.SyncPanel
	Alert   components.AlertModal
	History components.HistoryModal
	Filter  textinput.Model

	// Data
	Session domain.BulkSession
	Counts  domain.SyncCounts
	Next    domain.Cursor
	Prev    domain.Cursor
	Paging  bool // a page request is in flight; pagination controls are disabled
	run     *importer.Run

	// Dimensions
	Width  int
	Height int

	// UI state
	StatusMsg    string
	StatusIsErr  bool
	statusUntil  time.Time
	SpinnerFrame int

	now func() time.Time
}

// NewModel creates a new application model. The session starts in Checking
// because Initialize queries the bulk job status as its last step.
func NewModel(ctx context.Context, svc *importer.Service, opts Options) Model {
	if opts.Title == "" {
		opts.Title = "Import Products"
	}

	filter := textinput.New()
	filter.Prompt = "/ "
	filter.Placeholder = "name or SKU"
	filter.CharLimit = 64
	filter.PromptStyle = styles.FilterPromptStyle
	filter.TextStyle = styles.FilterStyle
	filter.PlaceholderStyle = styles.DimStyle

	m := Model{
		State:   StateBrowsing,
		ctx:     ctx,
		Svc:     svc,
		opts:    opts,
		Table:   components.NewProductTable(),
		Panel:   components.NewSyncPanel(),
		History: components.NewHistoryModal(),
		Filter:  filter,
		now:     time.Now,
	}
	if err := m.Session.BeginCheck(); err != nil {
		slog.Error("bulk session", "error", err)
	}
	m.Paging = true
	return m
}

// Init initializes the application
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		InitializeCmd(m.ctx, m.Svc),
		TickCmd(tickInterval),
	)
}

// Update handles all messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Ready = true
		m.updateLayout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case TickMsg:
		m.SpinnerFrame++
		m.Table.SetSpinnerFrame(m.SpinnerFrame)
		if m.StatusMsg != "" && !m.statusUntil.IsZero() && m.now().After(m.statusUntil) {
			m.clearStatus()
		}
		return m, TickCmd(tickInterval)

	case InitStepMsg:
		return m.handleInitStep(msg)

	case CountsLoadedMsg:
		if msg.Err != nil {
			m.Alert.Push("Failed to load product counts", msg.Err.Error())
			return m, nil
		}
		m.Counts = msg.Counts
		return m, nil

	case PageLoadedMsg:
		m.Paging = false
		if msg.Err != nil {
			m.Alert.Push("Failed to load products", msg.Err.Error())
			return m, nil
		}
		m.setPage(msg.Page)
		return m, nil

	case ProductSyncedMsg:
		return m.handleProductSynced(msg)

	case BulkSyncStartedMsg:
		return m.handleBulkStarted(msg)

	case ProgressMsg:
		return m.handleProgress(msg)

	case HistoryLoadedMsg:
		m.History.Show(msg.Runs)
		m.History.SetSize(m.Width, m.Height)
		m.State = StateHistory
		return m, nil

	case ErrMsg:
		m.setStatus(msg.Error(), true, errorTTL)
		return m, nil
	}

	return m, nil
}

// handleInitStep applies one startup step and continues with the next
func (m Model) handleInitStep(msg InitStepMsg) (tea.Model, tea.Cmd) {
	u := msg.Update
	cmds := []tea.Cmd{msg.NextCmd}

	switch u.Step {
	case importer.StepCounts:
		if u.Err != nil {
			m.Alert.Push("Failed to load product counts", u.Err.Error())
		} else {
			m.Counts = u.Counts
		}

	case importer.StepProducts:
		m.Paging = false
		if u.Err != nil {
			m.Alert.Push("Failed to load products", u.Err.Error())
		} else {
			m.setPage(u.Page)
		}

	case importer.StepBulkStatus:
		if u.Err != nil {
			m.Alert.Push("Failed to check sync status", u.Err.Error())
		}
		// a job nobody listens to could never leave Running
		m.resolveCheck(u.Running && u.Run != nil)
		if u.Run != nil {
			cmds = append(cmds, m.attachRun(u.Run))
		}
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleProductSynced(msg ProductSyncedMsg) (tea.Model, tea.Cmd) {
	m.Table.SetPending(msg.ProductID, false)

	if msg.Err != nil {
		title := "Error syncing product"
		if msg.Action == domain.ActionResync {
			title = "Error re-syncing product"
		}
		m.Alert.Push(title, fmt.Sprintf("%s: %v", msg.Title, msg.Err))
		return m, nil
	}

	m.Table.MarkSynced(msg.ProductID)
	verb := "Synced"
	if msg.Action == domain.ActionResync {
		verb = "Re-synced"
	}
	m.setStatus(fmt.Sprintf("%s %s", verb, msg.Title), false, statusTTL)
	return m, FetchCountsCmd(m.ctx, m.Svc)
}

// handleBulkStarted resolves the check begun by sync all. A job found running
// is joined rather than started.
func (m Model) handleBulkStarted(msg BulkSyncStartedMsg) (tea.Model, tea.Cmd) {
	switch {
	case errors.Is(msg.Err, domain.ErrBulkSyncInProgress):
		m.setStatus(noticeInFlight, false, statusTTL)
		return m, AttachCmd(m.ctx, m.Svc)

	case msg.Err != nil:
		m.resolveCheck(false)
		title := "Failed to start sync"
		if msg.Attached {
			title = "Failed to attach to running sync"
		}
		m.Alert.Push(title, msg.Err.Error())
		return m, nil
	}

	m.resolveCheck(true)
	cmd := m.attachRun(msg.Run)
	return m, cmd
}

// attachRun makes run the session's progress stream and shows the log
func (m *Model) attachRun(run *importer.Run) tea.Cmd {
	m.run = run
	m.Panel.StartLog()
	m.updateLayout()
	return ListenCmd(run)
}

func (m *Model) resolveCheck(running bool) {
	if err := m.Session.ResolveCheck(running); err != nil {
		slog.Error("bulk session", "error", err)
	}
}

func (m Model) handleProgress(msg ProgressMsg) (tea.Model, tea.Cmd) {
	if msg.Closed {
		// no done event: the session stays Running
		m.run = nil
		m.setStatus("Progress stream closed before the sync finished", true, errorTTL)
		return m, nil
	}

	ev := msg.Event
	m.Panel.AppendLog(ev.Message)
	if ev.Synced {
		m.Counts.BumpSynced()
	}

	if ev.Done {
		m.run = nil
		if err := m.Session.Finish(); err != nil {
			slog.Error("bulk session", "error", err)
		}
		return m, FetchCountsCmd(m.ctx, m.Svc)
	}
	return m, msg.NextCmd
}

// syncSelected runs the row action of the selected product
func (m Model) syncSelected() (tea.Model, tea.Cmd) {
	p := m.Table.Selected()
	if p == nil || m.Table.IsPending(p.ID) {
		return m, nil
	}
	m.Table.SetPending(p.ID, true)
	return m, SyncProductCmd(m.ctx, m.Svc, *p)
}

// syncAll starts the bulk sync unless one is known or found to be running
func (m Model) syncAll() (tea.Model, tea.Cmd) {
	switch m.Session.State() {
	case domain.BulkRunning:
		m.setStatus(noticeInFlight, false, statusTTL)
		return m, nil
	case domain.BulkChecking:
		return m, nil
	}

	if err := m.Session.BeginCheck(); err != nil {
		slog.Error("bulk session", "error", err)
		return m, nil
	}
	return m, StartBulkSyncCmd(m.ctx, m.Svc)
}

// switchPage fetches the next (forward) or previous page
func (m Model) switchPage(forward bool) (tea.Model, tea.Cmd) {
	cursor := m.Prev
	if forward {
		cursor = m.Next
	}
	if m.Paging || cursor.IsZero() {
		return m, nil
	}
	m.Paging = true
	return m, FetchPageCmd(m.ctx, m.Svc, cursor)
}

func (m *Model) setPage(page *domain.ProductPage) {
	if page == nil {
		return
	}
	m.Next = page.Next
	m.Prev = page.Prev
	m.Table.SetProducts(page.Products)
}

func (m *Model) setStatus(text string, isErr bool, ttl time.Duration) {
	m.StatusMsg = text
	m.StatusIsErr = isErr
	m.statusUntil = m.now().Add(ttl)
}

func (m *Model) clearStatus() {
	m.StatusMsg = ""
	m.StatusIsErr = false
	m.statusUntil = time.Time{}
}

// updateLayout sizes the components for the current window
func (m *Model) updateLayout() {
	if !m.Ready {
		return
	}
	contentHeight := m.Height - ChromeHeight
	if contentHeight < 3 {
		contentHeight = 3
	}

	tableWidth, panelWidth := m.paneWidths()
	tableHeight := contentHeight - 1
	if m.State == StateFiltering || m.Table.Filter() != "" {
		tableHeight--
	}
	m.Table.SetSize(tableWidth, tableHeight)
	m.Panel.SetSize(panelWidth, contentHeight)
	m.History.SetSize(m.Width, m.Height)
	m.Filter.Width = tableWidth - 4
}

func (m Model) paneWidths() (int, int) {
	panelWidth := m.Width * (100 - TablePercent) / 100
	if panelWidth < MinPanelWidth {
		panelWidth = MinPanelWidth
	}
	tableWidth := m.Width - panelWidth
	if tableWidth < 20 {
		tableWidth = 20
	}
	return tableWidth, panelWidth
}

// View renders the application
func (m Model) View() string {
	if !m.Ready {
		return "Loading..."
	}

	if m.State == StateHelp {
		return m.renderHelp()
	}

	tableWidth, _ := m.paneWidths()
	left := lipgloss.JoinVertical(lipgloss.Left,
		m.renderFilterLine(),
		m.Table.View(),
		m.renderPagination(tableWidth),
	)
	left = lipgloss.NewStyle().Width(tableWidth).Height(m.Height - 2).Render(left)

	right := m.Panel.View(components.PanelState{
		Counts:      m.Counts,
		Bulk:        m.Session.State(),
		RemoteLabel: m.opts.RemoteLabel,
		LocalLabel:  m.opts.LocalLabel,
		Frame:       m.SpinnerFrame,
	})

	view := lipgloss.JoinVertical(lipgloss.Left,
		m.renderTitleBar(),
		lipgloss.JoinHorizontal(lipgloss.Top, left, right),
		m.renderFooter(),
	)

	if m.State == StateHistory && m.History.IsVisible() {
		view = lipgloss.Place(m.Width, m.Height,
			lipgloss.Center, lipgloss.Center,
			m.History.View())
	}

	// Alerts block everything else
	if m.Alert.IsVisible() {
		view = lipgloss.Place(m.Width, m.Height,
			lipgloss.Center, lipgloss.Center,
			m.Alert.View(m.Width))
	}

	return view
}
