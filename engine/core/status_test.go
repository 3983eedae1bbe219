package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusType_IsTerminal(t *testing.T) {
	t.Run("Should treat success, failed, timed out and canceled as terminal", func(t *testing.T) {
		for _, s := range []StatusType{StatusSuccess, StatusFailed, StatusTimedOut, StatusCanceled} {
			assert.True(t, s.IsTerminal(), "expected %s to be terminal", s)
		}
	})

	t.Run("Should treat pending and running as non-terminal", func(t *testing.T) {
		assert.False(t, StatusPending.IsTerminal())
		assert.False(t, StatusRunning.IsTerminal())
	})
}

func TestStatusType_CanTransitionTo(t *testing.T) {
	t.Run("Should allow pending to start running", func(t *testing.T) {
		assert.True(t, StatusPending.CanTransitionTo(StatusRunning))
	})

	t.Run("Should allow running to reach any terminal state", func(t *testing.T) {
		for _, s := range []StatusType{StatusSuccess, StatusFailed, StatusTimedOut, StatusCanceled} {
			assert.True(t, StatusRunning.CanTransitionTo(s))
		}
	})

	t.Run("Should keep terminal states absorbing", func(t *testing.T) {
		assert.False(t, StatusSuccess.CanTransitionTo(StatusRunning))
		assert.False(t, StatusFailed.CanTransitionTo(StatusPending))
		assert.False(t, StatusCanceled.CanTransitionTo(StatusSuccess))
	})

	t.Run("Should not allow running to go back to pending", func(t *testing.T) {
		assert.False(t, StatusRunning.CanTransitionTo(StatusPending))
	})
}

func TestID(t *testing.T) {
	t.Run("Should generate parseable IDs", func(t *testing.T) {
		id := NewID()
		require.False(t, id.IsZero())

		parsed, err := ParseID(id.String())
		require.NoError(t, err)
		assert.Equal(t, id, parsed)
	})

	t.Run("Should reject malformed IDs", func(t *testing.T) {
		_, err := ParseID("not-a-valid-ksuid")
		assert.Error(t, err)
	})
}
