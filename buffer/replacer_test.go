package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLRUKReplacer(t *testing.T) {
	t.Run("only evictable frames are returned", func(t *testing.T) {
		r := NewLRUKReplacer(5, 2)

		r.Pin(1)
		r.Pin(2)
		r.Pin(3)

		_, ok := r.Evict()
		assert.False(t, ok)
	})

	t.Run("unpin makes a frame evictable", func(t *testing.T) {
		r := NewLRUKReplacer(5, 2)

		r.Pin(1)
		r.Unpin(1)

		assert.Equal(t, 1, r.Size())
		id, ok := r.Evict()
		assert.True(t, ok)
		assert.Equal(t, 1, id)
	})

	t.Run("unpin of an unseen frame is a no-op", func(t *testing.T) {
		r := NewLRUKReplacer(5, 2)
		r.Unpin(99)
		assert.Equal(t, 0, r.Size())
	})

	t.Run("prefers to evict the frame with fewer than k accesses", func(t *testing.T) {
		r := NewLRUKReplacer(5, 2)

		r.RecordAccess(1)
		r.RecordAccess(2)
		r.RecordAccess(3)

		r.RecordAccess(3)
		r.RecordAccess(1)

		r.Unpin(1)
		r.Unpin(2)
		r.Unpin(3)

		// frame 2 has one access, frames 1 and 3 have two (k=2)
		id, ok := r.Evict()
		assert.True(t, ok)
		assert.Equal(t, 2, id)
	})

	t.Run("prefers the oldest frame when all have fewer than k accesses", func(t *testing.T) {
		r := NewLRUKReplacer(5, 2)

		r.RecordAccess(2)
		r.RecordAccess(3)
		r.RecordAccess(1)

		r.Unpin(1)
		r.Unpin(2)
		r.Unpin(3)
		assert.Equal(t, 3, r.Size())

		id, ok := r.Evict()
		assert.True(t, ok)
		assert.Equal(t, 2, id)
	})

	t.Run("prefers the oldest frame when all have k accesses", func(t *testing.T) {
		r := NewLRUKReplacer(5, 2)

		r.RecordAccess(3)
		r.RecordAccess(3)

		r.RecordAccess(2)
		r.RecordAccess(2)

		r.RecordAccess(1)
		r.RecordAccess(1)

		r.Unpin(1)
		r.Unpin(2)
		r.Unpin(3)
		assert.Equal(t, 3, r.Size())

		id, ok := r.Evict()
		assert.True(t, ok)
		assert.Equal(t, 3, id)
	})

	t.Run("accessing a frame refreshes its recency", func(t *testing.T) {
		r := NewLRUKReplacer(5, 1)

		r.RecordAccess(1)
		r.RecordAccess(2)
		r.RecordAccess(3)
		r.Unpin(1)
		r.Unpin(2)
		r.Unpin(3)

		// with k=1, most-recent-access ordering applies throughout;
		// touching 1 again should make it the last to be evicted
		r.RecordAccess(1)

		id, ok := r.Evict()
		assert.True(t, ok)
		assert.Equal(t, 2, id)
	})

	t.Run("pin removes a frame from the evictable set", func(t *testing.T) {
		r := NewLRUKReplacer(5, 2)

		r.RecordAccess(1)
		r.Unpin(1)
		assert.Equal(t, 1, r.Size())

		r.Pin(1)
		assert.Equal(t, 0, r.Size())
	})
}
