package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// RowAction is the control rendered in a product row
type RowAction int

const (
	ActionSync RowAction = iota
	ActionResync
)

// Label returns the button text for the action
func (a RowAction) Label() string {
	if a == ActionResync {
		return "Re-sync"
	}
	return "Sync"
}

// Variant is a single sellable variant of a remote product
type Variant struct {
	ID  string `json:"id"`
	SKU string `json:"sku"`
}

// Product is a remote-catalog product annotated with its local sync status.
// It only lives as a row of the currently displayed page.
type Product struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Variants []Variant `json:"variants"`
	Synced   bool      `json:"synced"`
}

// SKUs returns the variant SKUs in listing order
func (p Product) SKUs() []string {
	skus := make([]string, 0, len(p.Variants))
	for _, v := range p.Variants {
		skus = append(skus, v.SKU)
	}
	return skus
}

// SKUList returns the SKUs joined for display
func (p Product) SKUList() string {
	return strings.Join(p.SKUs(), ", ")
}

// Action returns the row control for the product's sync status.
// Unsynced products get Sync, synced products get Re-sync.
func (p Product) Action() RowAction {
	if p.Synced {
		return ActionResync
	}
	return ActionSync
}

// Status returns the indicator text for the product's sync status
func (p Product) Status() string {
	if p.Synced {
		return "Synced"
	}
	return "Not Synced"
}

// Cursor is an opaque page token handed out by the listing call.
// The zero value requests the first page.
type Cursor string

// IsZero reports whether the cursor is empty
func (c Cursor) IsZero() bool {
	return c == ""
}

// ProductPage is one page of the remote catalog
type ProductPage struct {
	Products []Product
	Next     Cursor
	Prev     Cursor
}

// HasNext reports whether a following page exists
func (p ProductPage) HasNext() bool {
	return !p.Next.IsZero()
}

// HasPrev reports whether a preceding page exists
func (p ProductPage) HasPrev() bool {
	return !p.Prev.IsZero()
}

// SyncCounts holds the three counters shown next to the table.
// Synced <= min(Remote, Local) is the server's business, not checked here.
type SyncCounts struct {
	Remote int
	Local  int
	Synced int
}

// BumpSynced records one more synced product, which also adds one local item
func (c *SyncCounts) BumpSynced() {
	c.Synced++
	c.Local++
}

// Job is a background job row from the server's job queue
type Job struct {
	Name    string
	JobName string
	Status  string
}

// Active reports whether the job is queued or started
func (j Job) Active() bool {
	return j.Status == "queued" || j.Status == "started"
}

// ProgressEvent is one message published on the bulk sync push channel
type ProgressEvent struct {
	Message string
	Synced  bool
	Done    bool
	Error   bool
}

// RunRecord is an archived bulk sync session as seen by this client
type RunRecord struct {
	ID          uuid.UUID `json:"id"`
	Integration string    `json:"integration"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at,omitempty"`
	Lines       []string  `json:"lines"`
	SyncedCount int       `json:"synced_count"`
	ErrorCount  int       `json:"error_count"`
	Done        bool      `json:"done"`
	Attached    bool      `json:"attached"` // joined a job that was already running
}

// Duration returns how long the run took, or zero while it is still open
func (r RunRecord) Duration() time.Duration {
	if !r.Done || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
