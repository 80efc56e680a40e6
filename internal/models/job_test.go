package models

import (
	"errors"
	"testing"

	"github.com/avolkovs/applybot/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition_LegalPath(t *testing.T) {
	path := []Status{StatusNew, StatusQueued, StatusApplying, StatusApplied}
	for i := 0; i < len(path)-1; i++ {
		assert.True(t, CanTransition(path[i], path[i+1]), "%s -> %s", path[i], path[i+1])
	}

	assert.True(t, CanTransition(StatusApplying, StatusFailed))
	assert.True(t, CanTransition(StatusApplying, StatusSkipped))
}

func TestCanTransition_NoSkippingApplying(t *testing.T) {
	// a record must pass through "applying" before reaching a terminal state
	assert.False(t, CanTransition(StatusQueued, StatusApplied))
	assert.False(t, CanTransition(StatusNew, StatusApplied))
	assert.False(t, CanTransition(StatusNew, StatusApplying))
}

func TestCanTransition_TerminalStatesAreTerminal(t *testing.T) {
	for _, terminal := range []Status{StatusApplied, StatusFailed, StatusSkipped} {
		assert.False(t, CanTransition(terminal, StatusQueued), "%s must not re-queue", terminal)
		assert.False(t, CanTransition(terminal, StatusApplying), "%s must not re-apply", terminal)
	}
}

func TestJobRecord_Transition(t *testing.T) {
	j := &JobRecord{URL: "https://example.com/jobs/1", Status: StatusNew}

	require.NoError(t, j.Transition(StatusQueued))
	require.NoError(t, j.Transition(StatusApplying))
	require.NoError(t, j.Transition(StatusApplied))
	assert.False(t, j.UpdatedAt.IsZero())

	err := j.Transition(StatusApplying)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrIllegalTransition))
	assert.Equal(t, StatusApplied, j.Status, "status must be unchanged after a rejected transition")
}
