package domain

import "github.com/google/uuid"

// RunStore archives bulk sync sessions locally.
type RunStore interface {
	CreateRun(run RunRecord) error
	AppendLine(id uuid.UUID, line string, synced, failed bool) error
	FinishRun(id uuid.UUID) error

	GetRun(id uuid.UUID) (*RunRecord, error)
	// ListRuns returns up to limit runs, newest first (limit <= 0 means all)
	ListRuns(limit int) ([]RunRecord, error)

	Close() error
}
