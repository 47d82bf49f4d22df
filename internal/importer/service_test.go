package importer

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/mmcdole/shopsync/internal/domain"
	"github.com/mmcdole/shopsync/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// callLog records remote calls across fakes in order
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, name)
}

func (l *callLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

type fakeClient struct {
	log      *callLog
	counts   domain.SyncCounts
	pages    map[domain.Cursor]*domain.ProductPage
	syncOK   bool
	jobs     []domain.Job
	countErr error
	pageErr  error
	jobsErr  error
	startErr error
}

func (f *fakeClient) GetProductCount(ctx context.Context) (domain.SyncCounts, error) {
	f.log.add("counts")
	return f.counts, f.countErr
}

func (f *fakeClient) ListProducts(ctx context.Context, cursor domain.Cursor) (*domain.ProductPage, error) {
	f.log.add("products:" + string(cursor))
	if f.pageErr != nil {
		return nil, f.pageErr
	}
	return f.pages[cursor], nil
}

func (f *fakeClient) SyncProduct(ctx context.Context, id string) (bool, error) {
	f.log.add("sync:" + id)
	return f.syncOK, nil
}

func (f *fakeClient) ResyncProduct(ctx context.Context, id string) (bool, error) {
	f.log.add("resync:" + id)
	return f.syncOK, nil
}

func (f *fakeClient) StartBulkSync(ctx context.Context) error {
	f.log.add("start")
	return f.startErr
}

func (f *fakeClient) ListActiveJobs(ctx context.Context) ([]domain.Job, error) {
	f.log.add("jobs")
	return f.jobs, f.jobsErr
}

type fakeSub struct {
	ch     chan domain.ProgressEvent
	once   sync.Once
	closed bool
}

func (s *fakeSub) Events() <-chan domain.ProgressEvent { return s.ch }

func (s *fakeSub) Close() error {
	s.once.Do(func() { s.closed = true })
	return nil
}

type fakeEvents struct {
	log  *callLog
	sub  *fakeSub
	err  error
	seen []string
}

func (f *fakeEvents) Subscribe(ctx context.Context, event string) (domain.Subscription, error) {
	f.log.add("subscribe")
	f.seen = append(f.seen, event)
	if f.err != nil {
		return nil, f.err
	}
	return f.sub, nil
}

var testIntegration = Integration{
	Name:    "shopify",
	JobName: "shopify.job.sync.all.products",
	Event:   "shopify.key.sync.all.products",
}

func newFixture(t *testing.T) (*Service, *fakeClient, *fakeEvents, *store.RunStore) {
	log := &callLog{}
	client := &fakeClient{
		log:    log,
		counts: domain.SyncCounts{Remote: 3, Local: 2, Synced: 1},
		pages: map[domain.Cursor]*domain.ProductPage{
			"":   {Products: []domain.Product{{ID: "1", Title: "Tee"}}, Next: "c2"},
			"c2": {Products: []domain.Product{{ID: "2", Title: "Mug", Synced: true}}, Prev: "c1"},
			"c1": {Products: []domain.Product{{ID: "1", Title: "Tee"}}, Next: "c2"},
		},
		syncOK: true,
	}
	events := &fakeEvents{log: log, sub: &fakeSub{ch: make(chan domain.ProgressEvent, 8)}}
	runs, err := store.NewRunStore("", "", 0)
	require.NoError(t, err)
	return NewService(client, events, runs, testIntegration, nil), client, events, runs
}

func drain(updates <-chan InitUpdate) []InitUpdate {
	var out []InitUpdate
	for u := range updates {
		out = append(out, u)
	}
	return out
}

func TestInitialize_OrderWhenIdle(t *testing.T) {
	svc, client, _, _ := newFixture(t)

	updates := make(chan InitUpdate)
	go svc.Initialize(context.Background(), updates)
	got := drain(updates)

	require.Len(t, got, 3)
	assert.Equal(t, []InitStep{StepCounts, StepProducts, StepBulkStatus}, []InitStep{got[0].Step, got[1].Step, got[2].Step})
	assert.Equal(t, 3, got[0].Counts.Remote)
	assert.Len(t, got[1].Page.Products, 1)
	assert.False(t, got[2].Running)
	assert.Nil(t, got[2].Run)
	assert.Equal(t, []string{"counts", "products:", "jobs"}, client.log.list())
}

func TestInitialize_AttachesToRunningJob(t *testing.T) {
	svc, client, events, _ := newFixture(t)
	client.jobs = []domain.Job{{Name: "j", JobName: testIntegration.JobName, Status: "started"}}

	updates := make(chan InitUpdate, 3)
	svc.Initialize(context.Background(), updates)
	got := drain(updates)

	require.Len(t, got, 3)
	assert.True(t, got[2].Running)
	require.NotNil(t, got[2].Run)
	assert.Equal(t, []string{"counts", "products:", "jobs", "subscribe"}, client.log.list())
	assert.Equal(t, []string{testIntegration.Event}, events.seen)
}

func TestInitialize_FailureDoesNotAbortLaterSteps(t *testing.T) {
	svc, client, _, _ := newFixture(t)
	client.countErr = domain.ErrServerOffline
	client.pageErr = errors.New("boom")

	updates := make(chan InitUpdate, 3)
	svc.Initialize(context.Background(), updates)
	got := drain(updates)

	require.Len(t, got, 3)
	assert.ErrorIs(t, got[0].Err, domain.ErrServerOffline)
	assert.Error(t, got[1].Err)
	assert.NoError(t, got[2].Err)
	assert.Equal(t, []string{"counts", "products:", "jobs"}, client.log.list())
}

func TestBulkSyncRunning_MatchesJobName(t *testing.T) {
	svc, client, _, _ := newFixture(t)

	client.jobs = []domain.Job{{JobName: "other.job", Status: "started"}}
	running, err := svc.BulkSyncRunning(context.Background())
	require.NoError(t, err)
	assert.False(t, running)

	client.jobs = []domain.Job{{JobName: testIntegration.JobName, Status: "queued"}}
	running, err = svc.BulkSyncRunning(context.Background())
	require.NoError(t, err)
	assert.True(t, running)
}

func TestStartBulkSync_AlreadyRunningIssuesNoStart(t *testing.T) {
	svc, client, _, runs := newFixture(t)
	client.jobs = []domain.Job{{JobName: testIntegration.JobName, Status: "started"}}

	run, err := svc.StartBulkSync(context.Background())
	assert.ErrorIs(t, err, domain.ErrBulkSyncInProgress)
	assert.Nil(t, run)
	assert.Equal(t, []string{"jobs"}, client.log.list())

	history, err := runs.ListRuns(0)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestStartBulkSync_SubscribesBeforeStart(t *testing.T) {
	svc, client, _, runs := newFixture(t)

	run, err := svc.StartBulkSync(context.Background())
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, []string{"jobs", "subscribe", "start"}, client.log.list())

	record, err := runs.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, "shopify", record.Integration)
	assert.False(t, record.Attached)
}

func TestStartBulkSync_StartFailureClosesSubscription(t *testing.T) {
	svc, client, events, _ := newFixture(t)
	client.startErr = domain.ErrServerOffline

	_, err := svc.StartBulkSync(context.Background())
	assert.ErrorIs(t, err, domain.ErrServerOffline)
	assert.True(t, events.sub.closed)
}

func TestStartBulkSync_SubscribeFailureIssuesNoStart(t *testing.T) {
	svc, client, events, _ := newFixture(t)
	events.err = domain.ErrAuthFailed

	_, err := svc.StartBulkSync(context.Background())
	assert.ErrorIs(t, err, domain.ErrAuthFailed)
	assert.Equal(t, []string{"jobs", "subscribe"}, client.log.list())
}

func TestSyncProduct(t *testing.T) {
	svc, client, _, _ := newFixture(t)

	require.NoError(t, svc.SyncProduct(context.Background(), "1"))
	require.NoError(t, svc.ResyncProduct(context.Background(), "2"))

	client.syncOK = false
	assert.ErrorIs(t, svc.SyncProduct(context.Background(), "1"), domain.ErrSyncFailed)
	assert.ErrorIs(t, svc.ResyncProduct(context.Background(), "2"), domain.ErrSyncFailed)

	assert.Equal(t, []string{"sync:1", "resync:2", "sync:1", "resync:2"}, client.log.list())
}

func TestFetchPage_RoundTrip(t *testing.T) {
	svc, _, _, _ := newFixture(t)
	ctx := context.Background()

	first, err := svc.FetchPage(ctx, "")
	require.NoError(t, err)
	next, err := svc.FetchPage(ctx, first.Next)
	require.NoError(t, err)
	back, err := svc.FetchPage(ctx, next.Prev)
	require.NoError(t, err)

	assert.Equal(t, first.Products, back.Products)
}

func TestRun_ArchivesEventsUntilDone(t *testing.T) {
	svc, _, events, runs := newFixture(t)
	run, err := svc.StartBulkSync(context.Background())
	require.NoError(t, err)

	ch := events.sub.ch
	ch <- domain.ProgressEvent{Message: "Syncing product 1"}
	ch <- domain.ProgressEvent{Message: "✅ Synced Product 1", Synced: true}
	ch <- domain.ProgressEvent{Message: "✅ Synced Product 1", Synced: true}
	ch <- domain.ProgressEvent{Message: "❌ Failed to sync 2", Error: true}
	ch <- domain.ProgressEvent{Message: "Successfully synced all products", Done: true}

	var got []domain.ProgressEvent
	for {
		ev, ok := run.Next()
		if !ok {
			break
		}
		got = append(got, ev)
	}

	require.Len(t, got, 5)
	assert.True(t, got[4].Done)
	assert.True(t, events.sub.closed)

	record, err := runs.GetRun(run.ID)
	require.NoError(t, err)
	assert.True(t, record.Done)
	assert.Len(t, record.Lines, 5)
	// duplicates are counted as received
	assert.Equal(t, 2, record.SyncedCount)
	assert.Equal(t, 1, record.ErrorCount)

	history, err := svc.History(10)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestRun_DroppedStreamLeavesRunOpen(t *testing.T) {
	svc, _, events, runs := newFixture(t)
	run, err := svc.Attach(context.Background())
	require.NoError(t, err)

	close(events.sub.ch)
	_, ok := run.Next()
	assert.False(t, ok)

	record, err := runs.GetRun(run.ID)
	require.NoError(t, err)
	assert.False(t, record.Done)
	assert.True(t, record.Attached)
}

func TestHistory_WithoutArchive(t *testing.T) {
	svc := NewService(&fakeClient{log: &callLog{}}, &fakeEvents{log: &callLog{}}, nil, testIntegration, nil)
	history, err := svc.History(5)
	require.NoError(t, err)
	assert.Empty(t, history)
}
