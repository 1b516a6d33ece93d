package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecide(t *testing.T) {
	t.Run("promotes the highest-priority ready task at startup", func(t *testing.T) {
		tasks := []Task{
			{State: Ready, Priority: 0},
			{State: Ready, Priority: 1},
		}
		next, changed := Decide(tasks, 0, 0)
		assert.True(t, changed)
		assert.Equal(t, 1, next)
	})

	t.Run("does not preempt for a lower-priority candidate", func(t *testing.T) {
		tasks := []Task{
			{State: Ready, Priority: 0},
			{State: Running, Priority: 2},
		}
		next, changed := Decide(tasks, 0, 1)
		assert.False(t, changed)
		assert.Equal(t, 1, next)
	})

	t.Run("preempts RUNNING only for a strictly higher priority candidate (P3)", func(t *testing.T) {
		tasks := []Task{
			{State: Ready, Priority: 3},
			{State: Running, Priority: 1},
		}
		next, changed := Decide(tasks, 0, 1)
		require.True(t, changed)
		assert.Equal(t, 0, next)
	})

	t.Run("skips a READY task whose required resources are occupied (P2)", func(t *testing.T) {
		tasks := []Task{
			{State: Running, Priority: 1},
			{State: Ready, Priority: 3, RequiredResources: 0x01},
		}
		next, changed := Decide(tasks, 0x01, 0)
		assert.False(t, changed)
		assert.Equal(t, 0, next)
	})

	t.Run("adopts a waiting-turned-ready task's successor unconditionally", func(t *testing.T) {
		tasks := []Task{
			{State: Ready, Priority: 0},
			{State: Waiting, Priority: 1},
		}
		next, changed := Decide(tasks, 0, 1)
		assert.True(t, changed)
		assert.Equal(t, 0, next)
	})

	t.Run("leaves current running when nothing is ready", func(t *testing.T) {
		tasks := []Task{
			{State: Running, Priority: 0},
			{State: Waiting, Priority: 1},
		}
		next, changed := Decide(tasks, 0, 0)
		assert.False(t, changed)
		assert.Equal(t, 0, next)
	})

	t.Run("idle fallback: wakes a higher-priority task over idle (scenario 5)", func(t *testing.T) {
		tasks := []Task{
			{State: Running, Priority: 0}, // idle
			{State: Ready, Priority: 2},
		}
		next, changed := Decide(tasks, 0, 0)
		require.True(t, changed)
		assert.Equal(t, 1, next)
	})
}
