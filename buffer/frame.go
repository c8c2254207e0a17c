package buffer

import (
	"sync"
	"sync/atomic"

	"github.com/petrel-db/petrel/storage/disk"
)

// frame is a single slot in the buffer pool's fixed page array. It is
// either on the free list, resident and unpinned, or resident and
// pinned — exactly one at any instant (spec §3).
type frame struct {
	id int

	// latch protects the byte contents of Data, acquired only outside the
	// pool mutex via the guard-returning fetch variants (spec §5).
	latch sync.RWMutex

	Data   []byte
	PageId disk.PageId
	pins   atomic.Int32
	dirty  bool
}

func newFrame(id int) *frame {
	return &frame{
		id:     id,
		Data:   make([]byte, disk.PAGE_SIZE),
		PageId: disk.InvalidPageId,
	}
}

func (f *frame) pin() int32 {
	return f.pins.Add(1)
}

// unpin decrements the pin count and returns the new value. Callers must
// check for underflow themselves — the frame has no notion of "already
// zero" beyond the counter going negative.
func (f *frame) unpin() int32 {
	return f.pins.Add(-1)
}

func (f *frame) pinCount() int32 {
	return f.pins.Load()
}

// reset clears a frame's contents and metadata so it can be reused for a
// different page. Callers must hold the pool mutex.
func (f *frame) reset() {
	f.dirty = false
	f.pins.Store(0)
	f.PageId = disk.InvalidPageId
	for i := range f.Data {
		f.Data[i] = 0
	}
}
