package buffer

import "github.com/petrel-db/petrel/storage/disk"

// frameFor returns the resident frame for id, or nil. Frame pointers are
// stable for the pool's lifetime (the frames slice never reallocates), so
// this only needs the mutex for the map lookup itself.
func (bp *BufferPool) frameFor(id disk.PageId) *frame {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	frameID, ok := bp.pageTable[id]
	if !ok {
		return nil
	}
	return bp.frames[frameID]
}

// NewPageBasic allocates a fresh page and returns it pinned, with no
// latch held.
func (bp *BufferPool) NewPageBasic(allocator *disk.PageAllocator) (*BasicPageGuard, error) {
	id, err := bp.NewPage(allocator)
	if err != nil {
		return nil, err
	}
	return newBasicPageGuard(bp, bp.frameFor(id)), nil
}

// NewPageWrite allocates a fresh page, pins it, and acquires its write
// latch. The latch is acquired outside the pool mutex, per spec §5.
func (bp *BufferPool) NewPageWrite(allocator *disk.PageAllocator) (*WritePageGuard, error) {
	id, err := bp.NewPage(allocator)
	if err != nil {
		return nil, err
	}
	f := bp.frameFor(id)
	f.latch.Lock()
	return newWritePageGuard(bp, f), nil
}

// FetchPageBasic pins id and returns it with no latch held.
func (bp *BufferPool) FetchPageBasic(id disk.PageId) (*BasicPageGuard, error) {
	if _, err := bp.FetchPage(id); err != nil {
		return nil, err
	}
	return newBasicPageGuard(bp, bp.frameFor(id)), nil
}

// FetchPageRead pins id and acquires its shared latch.
func (bp *BufferPool) FetchPageRead(id disk.PageId) (*ReadPageGuard, error) {
	if _, err := bp.FetchPage(id); err != nil {
		return nil, err
	}
	f := bp.frameFor(id)
	f.latch.RLock()
	return newReadPageGuard(bp, f), nil
}

// FetchPageWrite pins id and acquires its exclusive latch.
func (bp *BufferPool) FetchPageWrite(id disk.PageId) (*WritePageGuard, error) {
	if _, err := bp.FetchPage(id); err != nil {
		return nil, err
	}
	f := bp.frameFor(id)
	f.latch.Lock()
	return newWritePageGuard(bp, f), nil
}
