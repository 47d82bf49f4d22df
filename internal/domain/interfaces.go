package domain

import "context"

// CatalogClient is the set of remote calls the product sync browser depends on.
// Each method maps onto one whitelisted server method.
type CatalogClient interface {
	// GetProductCount returns the remote, local and synced counters
	GetProductCount(ctx context.Context) (SyncCounts, error)

	// ListProducts returns the page addressed by cursor (zero cursor = first page)
	ListProducts(ctx context.Context, cursor Cursor) (*ProductPage, error)

	// SyncProduct imports a product; false means the server rolled back
	SyncProduct(ctx context.Context, productID string) (bool, error)

	// ResyncProduct re-imports every variant of an already synced product
	ResyncProduct(ctx context.Context, productID string) (bool, error)

	// StartBulkSync enqueues the "sync all products" job and returns immediately
	StartBulkSync(ctx context.Context) error

	// ListActiveJobs returns queued and started background jobs
	ListActiveJobs(ctx context.Context) ([]Job, error)
}

// EventSource opens push-event streams
type EventSource interface {
	// Subscribe opens a stream delivering events published under the given name.
	// The stream lives until Close is called, ctx is cancelled or the connection drops.
	Subscribe(ctx context.Context, event string) (Subscription, error)
}

// Subscription is a cancellable stream of progress events.
// Events is closed once the stream ends for any reason.
type Subscription interface {
	Events() <-chan ProgressEvent
	Close() error
}
