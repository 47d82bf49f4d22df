package domain

import "errors"

// Sentinel errors for domain operations
var (
	// ErrServerOffline indicates the Frappe site is unreachable
	ErrServerOffline = errors.New("server is unreachable")

	// ErrAuthFailed indicates the API key/secret pair was rejected
	ErrAuthFailed = errors.New("api credentials are invalid")

	// ErrMalformedResponse indicates a remote payload is missing required fields
	ErrMalformedResponse = errors.New("malformed server response")

	// ErrSyncFailed indicates the server reported a falsy result for a sync command
	ErrSyncFailed = errors.New("error syncing product")

	// ErrBulkSyncInProgress indicates a bulk sync job is already queued or running
	ErrBulkSyncInProgress = errors.New("sync already in progress")

	// ErrInvalidTransition indicates a bulk session state change that the state machine forbids
	ErrInvalidTransition = errors.New("invalid bulk session transition")

	// ErrRunNotFound indicates the requested archived run does not exist
	ErrRunNotFound = errors.New("sync run not found")
)
