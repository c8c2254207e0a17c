// Package buffer implements the fixed-size buffer pool that mediates all
// access between in-memory frames and on-disk pages: the frame table,
// free list, replacement policy, and the page-guard discipline built on
// top of it.
package buffer

import (
	"sync"

	"github.com/petrel-db/petrel/storage/disk"
	"github.com/petrel-db/petrel/util"
	"github.com/petrel-db/petrel/util/logging"
)

// BufferPool is a fixed array of frames backed by a disk scheduler. Every
// public method acquires bp.mu for its entire critical section (spec §5);
// per-page byte access is protected separately by each frame's latch,
// acquired only through the guard-returning Fetch/New variants.
type BufferPool struct {
	mu sync.Mutex

	frames    []*frame
	pageTable map[disk.PageId]int
	freeList  []int
	replacer  Replacer
	scheduler *disk.DiskScheduler
}

// NewBufferPool allocates size frame slots, all initially on the free
// list, backed by scheduler for page-sized I/O.
func NewBufferPool(size int, scheduler *disk.DiskScheduler) *BufferPool {
	frames := make([]*frame, size)
	free := make([]int, size)
	for i := range size {
		frames[i] = newFrame(i)
		free[i] = i
	}

	return &BufferPool{
		frames:    frames,
		pageTable: make(map[disk.PageId]int, size),
		freeList:  free,
		replacer:  NewLRUKReplacer(size, 2),
		scheduler: scheduler,
	}
}

// Size returns the pool's fixed frame count.
func (bp *BufferPool) Size() int {
	return len(bp.frames)
}

// allocateFrame returns a frame ready for a new page's data: either
// popped from the free list, or reclaimed from the replacer's evictable
// set (flushing it first if dirty). Callers must hold bp.mu.
func (bp *BufferPool) allocateFrame() (*frame, error) {
	if n := len(bp.freeList); n > 0 {
		id := bp.freeList[n-1]
		bp.freeList = bp.freeList[:n-1]
		return bp.frames[id], nil
	}

	victimID, ok := bp.replacer.Evict()
	if !ok {
		logging.Warn("buffer pool exhausted", "frames", len(bp.frames))
		return nil, util.New(util.KindFrameExhausted, "no evictable frame available")
	}

	victim := bp.frames[victimID]
	util.Assert(victim.pinCount() == 0, "evicted frame must be unpinned")

	if victim.dirty {
		if err := bp.flushFrameLocked(victim); err != nil {
			// Evict already dropped victimID's node from the replacer
			// entirely, so a bare Unpin would be a no-op against an id it no
			// longer recognizes. Pin recreates the node (as non-evictable),
			// then Unpin flips it back to evictable, so a transient I/O
			// fault here doesn't permanently shrink the pool's usable frame
			// count.
			bp.replacer.Pin(victimID)
			bp.replacer.Unpin(victimID)
			return nil, err
		}
	}

	delete(bp.pageTable, victim.PageId)
	victim.reset()
	return victim, nil
}

// NewPage allocates a fresh page via allocator, installs it as a pinned,
// resident frame, and returns its id. The caller must eventually call
// UnpinPage (or release a guard obtained via NewPageBasic/Read/Write).
func (bp *BufferPool) NewPage(allocator *disk.PageAllocator) (disk.PageId, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	f, err := bp.allocateFrame()
	if err != nil {
		return disk.InvalidPageId, err
	}

	id := allocator.AllocatePage()

	bp.pageTable[id] = f.id
	f.PageId = id
	f.dirty = false
	f.pin()
	bp.replacer.Pin(f.id)

	return id, nil
}

// FetchPage pins id, loading it from disk if it is not already resident,
// and returns it. Fetching disk.InvalidPageId is a contract violation.
func (bp *BufferPool) FetchPage(id disk.PageId) (disk.PageId, error) {
	if !id.IsValid() {
		return disk.InvalidPageId, util.New(util.KindInvalidPageId, "FetchPage called with invalid PageId")
	}

	bp.mu.Lock()
	defer bp.mu.Unlock()

	if frameID, ok := bp.pageTable[id]; ok {
		f := bp.frames[frameID]
		f.pin()
		bp.replacer.Pin(f.id)
		return id, nil
	}

	f, err := bp.allocateFrame()
	if err != nil {
		return disk.InvalidPageId, err
	}

	resp := <-bp.scheduler.Schedule(disk.NewReadRequest(id))
	if !resp.Success {
		bp.freeList = append(bp.freeList, f.id)
		return disk.InvalidPageId, util.Wrap(util.KindIoFault, "fetching page from disk", resp.Err)
	}

	bp.pageTable[id] = f.id
	f.PageId = id
	f.dirty = false
	copy(f.Data, resp.Data)
	f.pin()
	bp.replacer.Pin(f.id)

	return id, nil
}

// UnpinPage decrements id's pin count, optionally marking it dirty (the
// dirty flag is sticky and never cleared here). Returns false if id is
// not resident or is already unpinned.
func (bp *BufferPool) UnpinPage(id disk.PageId, isDirty bool) bool {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	frameID, ok := bp.pageTable[id]
	if !ok {
		return false
	}

	f := bp.frames[frameID]
	if isDirty {
		f.dirty = true
	}

	if f.pinCount() <= 0 {
		util.Assert(false, "pin underflow")
		return false
	}

	if f.unpin() == 0 {
		bp.replacer.Unpin(f.id)
	}
	return true
}

// unpinFrame is the guard-release path: it already holds a *frame, not a
// PageId, so it skips the page-table lookup UnpinPage needs.
func (bp *BufferPool) unpinFrame(f *frame) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if f.unpin() == 0 {
		bp.replacer.Unpin(f.id)
	}
}

// FlushPage writes id's current bytes to disk and clears its dirty flag,
// if id is resident. Flushing a pinned page is permitted; it is a
// snapshot of the current bytes, not synchronized with concurrent
// writers beyond the page's own latch.
func (bp *BufferPool) FlushPage(id disk.PageId) bool {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	frameID, ok := bp.pageTable[id]
	if !ok {
		return false
	}

	_ = bp.flushFrameLocked(bp.frames[frameID])
	return true
}

func (bp *BufferPool) flushFrameLocked(f *frame) error {
	if !f.PageId.IsValid() {
		return nil
	}

	buf := make([]byte, disk.PAGE_SIZE)
	copy(buf, f.Data)

	resp := <-bp.scheduler.Schedule(disk.NewWriteRequest(f.PageId, buf))
	if !resp.Success {
		return util.Wrap(util.KindIoFault, "flushing page", resp.Err)
	}

	f.dirty = false
	return nil
}

// FlushAllPages flushes every resident page. Per spec §9's open question,
// this does not hold bp.mu for the whole scan — each FlushPage call takes
// it individually, so only per-page atomicity is guaranteed against
// concurrent writers.
func (bp *BufferPool) FlushAllPages() {
	bp.mu.Lock()
	ids := make([]disk.PageId, 0, len(bp.pageTable))
	for id := range bp.pageTable {
		ids = append(ids, id)
	}
	bp.mu.Unlock()

	for _, id := range ids {
		bp.FlushPage(id)
	}
}

// DeletePage removes id from the pool, returning its frame to the free
// list. Succeeds trivially if id is not resident. Fails if id is resident
// but pinned.
func (bp *BufferPool) DeletePage(id disk.PageId) bool {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	frameID, ok := bp.pageTable[id]
	if !ok {
		return true
	}

	f := bp.frames[frameID]
	if f.pinCount() > 0 {
		logging.Debug("delete page rejected: page is pinned", "page_id", id)
		return false
	}

	// The frame may currently sit in the replacer's evictable set (it got
	// there via a prior UnpinPage reaching zero); pull it out before
	// handing the frame to the free list, or a later Evict could select
	// an already-free frame.
	bp.replacer.Pin(f.id)

	delete(bp.pageTable, id)
	f.reset()
	bp.freeList = append(bp.freeList, f.id)
	return true
}
