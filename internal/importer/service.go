package importer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/shopsync/internal/domain"
)

// Integration names the server-side pieces of one importer page
type Integration struct {
	Name    string // archive label, e.g. "shopify"
	JobName string // background job name of the bulk sync
	Event   string // realtime event carrying bulk sync progress
}

// Service orchestrates the catalog client, the realtime channel and the run archive.
type Service struct {
	client      domain.CatalogClient
	events      domain.EventSource
	runs        domain.RunStore // nil disables the archive
	integration Integration
	logger      *slog.Logger
	now         func() time.Time
}

// NewService creates a new importer service.
func NewService(
	client domain.CatalogClient,
	events domain.EventSource,
	runs domain.RunStore,
	integration Integration,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		client:      client,
		events:      events,
		runs:        runs,
		integration: integration,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *Service) FetchCounts(ctx context.Context) (domain.SyncCounts, error) {
	counts, err := s.client.GetProductCount(ctx)
	if err != nil {
		s.logger.Error("failed to fetch counts", "error", err)
		return domain.SyncCounts{}, err
	}
	s.logger.Debug("fetched counts", "remote", counts.Remote, "local", counts.Local, "synced", counts.Synced)
	return counts, nil
}

// FetchPage loads the page addressed by cursor; the zero cursor is the first page
func (s *Service) FetchPage(ctx context.Context, cursor domain.Cursor) (*domain.ProductPage, error) {
	page, err := s.client.ListProducts(ctx, cursor)
	if err != nil {
		s.logger.Error("failed to fetch products", "error", err, "first", cursor.IsZero())
		return nil, err
	}
	s.logger.Debug("fetched products", "count", len(page.Products), "hasNext", page.HasNext(), "hasPrev", page.HasPrev())
	return page, nil
}

// SyncProduct imports one product. A false result from the server is ErrSyncFailed.
func (s *Service) SyncProduct(ctx context.Context, productID string) error {
	return s.runProductCommand(ctx, domain.ActionSync, productID)
}

// ResyncProduct re-imports one product. A false result from the server is ErrSyncFailed.
func (s *Service) ResyncProduct(ctx context.Context, productID string) error {
	return s.runProductCommand(ctx, domain.ActionResync, productID)
}

func (s *Service) runProductCommand(ctx context.Context, action domain.RowAction, productID string) error {
	call := s.client.SyncProduct
	if action == domain.ActionResync {
		call = s.client.ResyncProduct
	}

	ok, err := call(ctx, productID)
	if err != nil {
		s.logger.Error("product command failed", "action", action.Label(), "product", productID, "error", err)
		return err
	}
	if !ok {
		s.logger.Warn("product command rejected", "action", action.Label(), "product", productID)
		return fmt.Errorf("%w: %s", domain.ErrSyncFailed, productID)
	}
	s.logger.Info("product synced", "action", action.Label(), "product", productID)
	return nil
}

// BulkSyncRunning reports whether the bulk sync job is queued or started
func (s *Service) BulkSyncRunning(ctx context.Context) (bool, error) {
	jobs, err := s.client.ListActiveJobs(ctx)
	if err != nil {
		s.logger.Error("failed to query jobs", "error", err)
		return false, err
	}
	for _, job := range jobs {
		if job.JobName == s.integration.JobName && job.Active() {
			return true, nil
		}
	}
	return false, nil
}

// StartBulkSync checks the job status and, when no job is running, subscribes to
// the progress channel and then enqueues the job. The subscription is opened first
// so no event published right after the start call is missed. ctx bounds the
// lifetime of the returned run.
func (s *Service) StartBulkSync(ctx context.Context) (*Run, error) {
	running, err := s.BulkSyncRunning(ctx)
	if err != nil {
		return nil, err
	}
	if running {
		s.logger.Info("bulk sync already running")
		return nil, domain.ErrBulkSyncInProgress
	}

	sub, err := s.events.Subscribe(ctx, s.integration.Event)
	if err != nil {
		s.logger.Error("failed to subscribe", "event", s.integration.Event, "error", err)
		return nil, err
	}

	if err := s.client.StartBulkSync(ctx); err != nil {
		sub.Close()
		s.logger.Error("failed to start bulk sync", "error", err)
		return nil, err
	}

	s.logger.Info("bulk sync started", "job", s.integration.JobName)
	return s.newRun(sub, false), nil
}

// Attach joins a bulk sync that is already running
func (s *Service) Attach(ctx context.Context) (*Run, error) {
	sub, err := s.events.Subscribe(ctx, s.integration.Event)
	if err != nil {
		s.logger.Error("failed to attach", "event", s.integration.Event, "error", err)
		return nil, err
	}
	s.logger.Info("attached to running bulk sync", "job", s.integration.JobName)
	return s.newRun(sub, true), nil
}

func (s *Service) newRun(sub domain.Subscription, attached bool) *Run {
	run := &Run{
		ID:      uuid.New(),
		sub:     sub,
		service: s,
	}
	if s.runs != nil {
		record := domain.RunRecord{
			ID:          run.ID,
			Integration: s.integration.Name,
			StartedAt:   s.now(),
			Attached:    attached,
		}
		if err := s.runs.CreateRun(record); err != nil {
			s.logger.Error("failed to archive run", "run", run.ID, "error", err)
		}
	}
	return run
}

// History returns archived runs, newest first
func (s *Service) History(limit int) ([]domain.RunRecord, error) {
	if s.runs == nil {
		return nil, nil
	}
	return s.runs.ListRuns(limit)
}

// InitStep identifies one step of Initialize
type InitStep int

const (
	StepCounts InitStep = iota
	StepProducts
	StepBulkStatus
)

func (s InitStep) String() string {
	switch s {
	case StepCounts:
		return "counts"
	case StepProducts:
		return "products"
	case StepBulkStatus:
		return "bulk status"
	default:
		return fmt.Sprintf("InitStep(%d)", int(s))
	}
}

// InitUpdate reports the outcome of one Initialize step
type InitUpdate struct {
	Step    InitStep
	Counts  domain.SyncCounts
	Page    *domain.ProductPage
	Running bool
	Run     *Run // set when Running and the listener attached
	Err     error
}

// Initialize runs the startup steps in order: counters, first page, then the bulk
// job status (attaching when a job is running). A failing step is reported and the
// remaining steps still run. updates is closed when all steps are done.
func (s *Service) Initialize(ctx context.Context, updates chan<- InitUpdate) {
	defer close(updates)

	counts, err := s.FetchCounts(ctx)
	updates <- InitUpdate{Step: StepCounts, Counts: counts, Err: err}

	page, err := s.FetchPage(ctx, "")
	updates <- InitUpdate{Step: StepProducts, Page: page, Err: err}

	update := InitUpdate{Step: StepBulkStatus}
	update.Running, update.Err = s.BulkSyncRunning(ctx)
	if update.Err == nil && update.Running {
		update.Run, update.Err = s.Attach(ctx)
	}
	updates <- update
}
