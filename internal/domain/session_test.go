package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkSession_CheckFindsRunningJob(t *testing.T) {
	var s BulkSession
	require.Equal(t, BulkIdle, s.State())

	require.NoError(t, s.BeginCheck())
	assert.Equal(t, BulkChecking, s.State())

	require.NoError(t, s.ResolveCheck(true))
	assert.True(t, s.Running())

	require.NoError(t, s.Finish())
	assert.Equal(t, BulkIdle, s.State())
}

func TestBulkSession_CheckFindsNothing(t *testing.T) {
	var s BulkSession
	require.NoError(t, s.BeginCheck())
	require.NoError(t, s.ResolveCheck(false))
	assert.Equal(t, BulkIdle, s.State())
}

func TestBulkSession_StartAndFinish(t *testing.T) {
	var s BulkSession
	require.NoError(t, s.Start())
	assert.True(t, s.Running())
	require.NoError(t, s.Finish())
	assert.False(t, s.Running())
}

func TestBulkSession_RejectsIllegalTransitions(t *testing.T) {
	tests := []struct {
		name string
		run  func(s *BulkSession) error
	}{
		{"finish while idle", func(s *BulkSession) error { return s.Finish() }},
		{"resolve without check", func(s *BulkSession) error { return s.ResolveCheck(true) }},
		{"start while running", func(s *BulkSession) error {
			_ = s.Start()
			return s.Start()
		}},
		{"check while running", func(s *BulkSession) error {
			_ = s.Start()
			return s.BeginCheck()
		}},
		{"start while checking", func(s *BulkSession) error {
			_ = s.BeginCheck()
			return s.Start()
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s BulkSession
			err := tt.run(&s)
			assert.ErrorIs(t, err, ErrInvalidTransition)
		})
	}
}

func TestBulkState_String(t *testing.T) {
	assert.Equal(t, "idle", BulkIdle.String())
	assert.Equal(t, "checking", BulkChecking.String())
	assert.Equal(t, "running", BulkRunning.String())
	assert.Equal(t, "BulkState(9)", BulkState(9).String())
}
