package domain

import "fmt"

// BulkState is the state of a bulk sync session
type BulkState int

const (
	BulkIdle BulkState = iota
	BulkChecking
	BulkRunning
)

func (s BulkState) String() string {
	switch s {
	case BulkIdle:
		return "idle"
	case BulkChecking:
		return "checking"
	case BulkRunning:
		return "running"
	default:
		return fmt.Sprintf("BulkState(%d)", int(s))
	}
}

// BulkSession owns the bulk sync state machine:
//
//	Idle -> Checking -> Running -> Idle
//	Idle -> Running                 (start request accepted)
//	Checking -> Idle                (no job found)
//
// Running is left only through Finish, i.e. a done event. There is no timeout.
type BulkSession struct {
	state BulkState
}

// State returns the current state
func (s *BulkSession) State() BulkState {
	return s.state
}

// Running reports whether a bulk job is believed to be running
func (s *BulkSession) Running() bool {
	return s.state == BulkRunning
}

// BeginCheck moves Idle -> Checking while the job status is queried
func (s *BulkSession) BeginCheck() error {
	if s.state != BulkIdle {
		return s.invalid(BulkChecking)
	}
	s.state = BulkChecking
	return nil
}

// ResolveCheck leaves Checking for Running or Idle depending on the job status
func (s *BulkSession) ResolveCheck(running bool) error {
	to := BulkIdle
	if running {
		to = BulkRunning
	}
	if s.state != BulkChecking {
		return s.invalid(to)
	}
	s.state = to
	return nil
}

// Start moves Idle -> Running after the start request was accepted
func (s *BulkSession) Start() error {
	if s.state != BulkIdle {
		return s.invalid(BulkRunning)
	}
	s.state = BulkRunning
	return nil
}

// Finish moves Running -> Idle on receipt of a done event
func (s *BulkSession) Finish() error {
	if s.state != BulkRunning {
		return s.invalid(BulkIdle)
	}
	s.state = BulkIdle
	return nil
}

func (s *BulkSession) invalid(to BulkState) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.state, to)
}
