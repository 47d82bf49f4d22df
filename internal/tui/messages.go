package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/shopsync/internal/domain"
	"github.com/mmcdole/shopsync/internal/importer"
)

// Message types for the TUI

// ErrMsg represents an error
type ErrMsg struct {
	Err     error
	Context string
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// InitStepMsg carries one startup step; NextCmd reads the following one
type InitStepMsg struct {
	Update  importer.InitUpdate
	NextCmd tea.Cmd
}

// CountsLoadedMsg signals that the counters were fetched
type CountsLoadedMsg struct {
	Counts domain.SyncCounts
	Err    error
}

// PageLoadedMsg signals that a product page was fetched
type PageLoadedMsg struct {
	Page *domain.ProductPage
	Err  error
}

// ProductSyncedMsg signals that a sync or re-sync call returned
type ProductSyncedMsg struct {
	ProductID string
	Title     string
	Action    domain.RowAction
	Err       error
}

// BulkSyncStartedMsg signals the outcome of a sync-all request, or of joining
// a job that was already running (Attached)
type BulkSyncStartedMsg struct {
	Run      *importer.Run
	Attached bool
	Err      error
}

// ProgressMsg carries one progress event of the running bulk sync.
// Closed is set when the stream ended without a done event.
type ProgressMsg struct {
	Event   domain.ProgressEvent
	Closed  bool
	NextCmd tea.Cmd
}

// HistoryLoadedMsg carries archived runs for the history modal
type HistoryLoadedMsg struct {
	Runs []domain.RunRecord
}

// TickMsg is a general tick message for animations
type TickMsg struct{}
