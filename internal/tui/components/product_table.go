package components

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/shopsync/internal/domain"
	"github.com/mmcdole/shopsync/internal/tui/styles"
)

const (
	idColumnWidth     = 14
	statusColumnWidth = 14
	actionColumnWidth = 14
	cellPadding       = 2
	columnCount       = 5
)

// ProductTable lists the current page with one sync control per row
type ProductTable struct {
	table   table.Model
	all     []domain.Product
	visible []domain.Product
	pending map[string]bool // product ID -> sync or re-sync in flight
	query   string
	frame   int
}

// NewProductTable creates an empty product table
func NewProductTable() ProductTable {
	t := table.New(
		table.WithColumns(columnsFor(80)),
		table.WithFocused(true),
	)

	s := table.DefaultStyles()
	s.Header = styles.TableHeaderStyle
	s.Cell = styles.TableCellStyle
	s.Selected = styles.TableSelectedStyle
	t.SetStyles(s)

	return ProductTable{table: t, pending: make(map[string]bool)}
}

func columnsFor(width int) []table.Column {
	flex := width - idColumnWidth - statusColumnWidth - actionColumnWidth - columnCount*cellPadding
	if flex < 20 {
		flex = 20
	}
	nameWidth := flex * 6 / 10
	return []table.Column{
		{Title: "ID", Width: idColumnWidth},
		{Title: "Name", Width: nameWidth},
		{Title: "SKUs", Width: flex - nameWidth},
		{Title: "Status", Width: statusColumnWidth},
		{Title: "Action", Width: actionColumnWidth},
	}
}

// SetProducts replaces the rows with a freshly loaded page
func (t *ProductTable) SetProducts(products []domain.Product) {
	t.all = products
	t.apply()
	t.table.GotoTop()
}

// SetFilter narrows the visible rows; an empty query shows the whole page
func (t *ProductTable) SetFilter(query string) {
	t.query = query
	t.apply()
	t.table.GotoTop()
}

func (t ProductTable) Filter() string {
	return t.query
}

// SetPending marks a row control as in flight (disabled)
func (t *ProductTable) SetPending(productID string, pending bool) {
	if pending {
		t.pending[productID] = true
	} else {
		delete(t.pending, productID)
	}
	t.refresh()
}

func (t ProductTable) IsPending(productID string) bool {
	return t.pending[productID]
}

// MarkSynced flips a row to Synced, which turns its control into Re-sync
func (t *ProductTable) MarkSynced(productID string) {
	for i := range t.all {
		if t.all[i].ID == productID {
			t.all[i].Synced = true
		}
	}
	t.apply()
}

// SetSpinnerFrame advances the animation of in-flight controls
func (t *ProductTable) SetSpinnerFrame(frame int) {
	t.frame = frame
	if len(t.pending) > 0 {
		t.refresh()
	}
}

// Selected returns the product under the cursor
func (t ProductTable) Selected() *domain.Product {
	i := t.table.Cursor()
	if i < 0 || i >= len(t.visible) {
		return nil
	}
	p := t.visible[i]
	return &p
}

// Products returns the visible rows
func (t ProductTable) Products() []domain.Product {
	return t.visible
}

// Len returns the number of products on the page, ignoring the filter
func (t ProductTable) Len() int {
	return len(t.all)
}

// PageSummary counts synced and not-synced products on the page
func (t ProductTable) PageSummary() string {
	if len(t.all) == 0 {
		return ""
	}
	synced := 0
	for _, p := range t.all {
		if p.Synced {
			synced++
		}
	}
	return styles.SyncedStyle.Render(fmt.Sprintf("● %d synced", synced)) + "  " +
		styles.NotSyncedStyle.Render(fmt.Sprintf("○ %d not synced", len(t.all)-synced))
}

// ActionText returns the text of a row control
func (t ProductTable) ActionText(p domain.Product) string {
	if t.pending[p.ID] {
		return styles.SpinnerFrame(t.frame) + " Syncing..."
	}
	return p.Action().Label()
}

func (t *ProductTable) SetSize(width, height int) {
	t.table.SetColumns(columnsFor(width))
	t.table.SetWidth(width)
	t.table.SetHeight(height)
}

func (t ProductTable) Update(msg tea.Msg) (ProductTable, tea.Cmd) {
	var cmd tea.Cmd
	t.table, cmd = t.table.Update(msg)
	return t, cmd
}

func (t ProductTable) View() string {
	if len(t.all) == 0 {
		return styles.DimStyle.Render("No products")
	}
	if len(t.visible) == 0 {
		return t.table.View() + "\n" + styles.DimStyle.Render("No products match "+t.query)
	}
	return t.table.View()
}

func (t *ProductTable) apply() {
	t.visible = FilterProducts(t.all, t.query)
	t.refresh()
}

func (t *ProductTable) refresh() {
	rows := make([]table.Row, len(t.visible))
	for i, p := range t.visible {
		rows[i] = table.Row{p.ID, p.Title, p.SKUList(), statusText(p), t.ActionText(p)}
	}
	t.table.SetRows(rows)
}

func statusText(p domain.Product) string {
	if p.Synced {
		return "● " + p.Status()
	}
	return "○ " + p.Status()
}
