package checkpoint

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager(t *testing.T) {
	manager, err := NewManager(t.TempDir())
	require.NoError(t, err)

	t.Run("save and load round trip", func(t *testing.T) {
		cp := &FragmentCheckpoint{
			FragmentID:  "frag-1",
			TripleCount: 3,
			FactIDs:     []string{"f1", "f2", "f3"},
			CompletedAt: time.Now(),
		}
		require.NoError(t, manager.Save(cp))

		loaded, err := manager.Load("frag-1")
		require.NoError(t, err)
		assert.Equal(t, cp.FragmentID, loaded.FragmentID)
		assert.Equal(t, cp.FactIDs, loaded.FactIDs)
		assert.Equal(t, 3, loaded.TripleCount)
	})

	t.Run("missing checkpoint", func(t *testing.T) {
		_, err := manager.Load("never-saved")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("completed requires completion time", func(t *testing.T) {
		require.NoError(t, manager.Save(&FragmentCheckpoint{
			FragmentID:   "frag-failed",
			AttemptCount: 1,
			LastError:    "extraction failed",
		}))

		assert.True(t, manager.Completed("frag-1"))
		assert.False(t, manager.Completed("frag-failed"))
		assert.False(t, manager.Completed("never-saved"))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, manager.Save(&FragmentCheckpoint{FragmentID: "frag-del", CompletedAt: time.Now()}))
		require.NoError(t, manager.Delete("frag-del"))
		assert.False(t, manager.Completed("frag-del"))

		// Deleting a missing checkpoint is a no-op.
		assert.NoError(t, manager.Delete("frag-del"))
	})

	t.Run("rejects path traversal IDs", func(t *testing.T) {
		for _, id := range []string{"", "../escape", "a/b", `a\b`} {
			assert.ErrorIs(t, manager.Save(&FragmentCheckpoint{FragmentID: id}), ErrInvalidID)
			_, err := manager.Load(id)
			assert.ErrorIs(t, err, ErrInvalidID)
		}
	})

	t.Run("save overwrites atomically", func(t *testing.T) {
		require.NoError(t, manager.Save(&FragmentCheckpoint{FragmentID: "frag-2", AttemptCount: 1}))
		require.NoError(t, manager.Save(&FragmentCheckpoint{FragmentID: "frag-2", AttemptCount: 2}))

		loaded, err := manager.Load("frag-2")
		require.NoError(t, err)
		assert.Equal(t, 2, loaded.AttemptCount)
	})
}
