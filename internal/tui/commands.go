package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/shopsync/internal/domain"
	"github.com/mmcdole/shopsync/internal/importer"
)

// Command factories for async operations

// InitializeCmd runs the startup steps in order and streams each result
func InitializeCmd(ctx context.Context, svc *importer.Service) tea.Cmd {
	updates := make(chan importer.InitUpdate)
	go svc.Initialize(ctx, updates)
	return listenToInitCmd(updates)
}

// readInitUpdate reads one step and attaches a continuation for the next
func readInitUpdate(updates <-chan importer.InitUpdate) tea.Msg {
	update, ok := <-updates
	if !ok {
		return nil
	}
	return InitStepMsg{Update: update, NextCmd: listenToInitCmd(updates)}
}

func listenToInitCmd(updates <-chan importer.InitUpdate) tea.Cmd {
	return func() tea.Msg {
		return readInitUpdate(updates)
	}
}

// FetchCountsCmd reloads the three counters
func FetchCountsCmd(ctx context.Context, svc *importer.Service) tea.Cmd {
	return func() tea.Msg {
		counts, err := svc.FetchCounts(ctx)
		return CountsLoadedMsg{Counts: counts, Err: err}
	}
}

// FetchPageCmd loads the page addressed by cursor
func FetchPageCmd(ctx context.Context, svc *importer.Service, cursor domain.Cursor) tea.Cmd {
	return func() tea.Msg {
		page, err := svc.FetchPage(ctx, cursor)
		return PageLoadedMsg{Page: page, Err: err}
	}
}

// SyncProductCmd runs the row action of a product
func SyncProductCmd(ctx context.Context, svc *importer.Service, product domain.Product) tea.Cmd {
	action := product.Action()
	return func() tea.Msg {
		var err error
		if action == domain.ActionResync {
			err = svc.ResyncProduct(ctx, product.ID)
		} else {
			err = svc.SyncProduct(ctx, product.ID)
		}
		return ProductSyncedMsg{ProductID: product.ID, Title: product.Title, Action: action, Err: err}
	}
}

// StartBulkSyncCmd checks the job status and starts the sync-all job when idle.
// ctx bounds the progress stream, so it must outlive the command.
func StartBulkSyncCmd(ctx context.Context, svc *importer.Service) tea.Cmd {
	return func() tea.Msg {
		run, err := svc.StartBulkSync(ctx)
		return BulkSyncStartedMsg{Run: run, Err: err}
	}
}

// AttachCmd joins the progress stream of a bulk sync that is already running
func AttachCmd(ctx context.Context, svc *importer.Service) tea.Cmd {
	return func() tea.Msg {
		run, err := svc.Attach(ctx)
		return BulkSyncStartedMsg{Run: run, Attached: true, Err: err}
	}
}

// readProgress blocks for one event and attaches a continuation unless the run ended
func readProgress(run *importer.Run) tea.Msg {
	ev, ok := run.Next()
	if !ok {
		return ProgressMsg{Closed: true}
	}
	msg := ProgressMsg{Event: ev}
	if !ev.Done {
		msg.NextCmd = ListenCmd(run)
	}
	return msg
}

// ListenCmd returns a command that reads the next progress event of run
func ListenCmd(run *importer.Run) tea.Cmd {
	return func() tea.Msg {
		return readProgress(run)
	}
}

// LoadHistoryCmd loads archived runs, newest first
func LoadHistoryCmd(svc *importer.Service, limit int) tea.Cmd {
	return func() tea.Msg {
		runs, err := svc.History(limit)
		if err != nil {
			return ErrMsg{Err: err, Context: "Failed to load sync history"}
		}
		return HistoryLoadedMsg{Runs: runs}
	}
}

// TickCmd returns a command that sends a tick after a delay
func TickCmd(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(t time.Time) tea.Msg {
		return TickMsg{}
	})
}
