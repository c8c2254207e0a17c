package buffer

import (
	"github.com/petrel-db/petrel/storage/disk"
	"github.com/petrel-db/petrel/util"
)

// guardMode records which latch, if any, a guard is holding, so Release
// can undo exactly what Acquire did.
type guardMode int

const (
	modeBasic guardMode = iota
	modeRead
	modeWrite
)

// baseGuard is the shared, move-only core of the three guard variants. A
// guard owns a pin on frame in pool and, for read/write guards, the
// matching latch. Release drops the latch (if any) before the pin, and is
// idempotent-safe to call multiple times only in the sense that a double
// release is a logic error the guard detects and reports rather than
// double-unpinning the frame.
type baseGuard struct {
	pool     *BufferPool
	frame    *frame
	mode     guardMode
	released bool
}

// PageId reports which page this guard is holding.
func (g *baseGuard) PageId() disk.PageId {
	if g.frame == nil {
		return disk.InvalidPageId
	}
	return g.frame.PageId
}

// Release drops the guard's latch (if any) and pin. It is a logic error
// to call Release twice on the same guard.
func (g *baseGuard) Release() error {
	if g.released {
		return util.New(util.KindPinUnderflow, "page guard released twice")
	}
	g.released = true

	switch g.mode {
	case modeRead:
		g.frame.latch.RUnlock()
	case modeWrite:
		g.frame.latch.Unlock()
	}

	g.pool.unpinFrame(g.frame)
	return nil
}

// move transfers ownership of the underlying pin/latch to a new guard
// value and marks the source inert, matching move-only handle semantics
// in a language without destructors: the caller must stop using the
// source after calling this.
func (g *baseGuard) move() baseGuard {
	moved := *g
	g.released = true // source becomes inert; nothing left for it to release
	g.frame = nil
	return moved
}

// BasicPageGuard holds a pin with no latch. Use it when the caller only
// needs to keep a page resident (e.g. while relinking sibling pointers
// under its own external locking discipline), not to serialize byte
// access.
type BasicPageGuard struct {
	baseGuard
}

func newBasicPageGuard(pool *BufferPool, f *frame) *BasicPageGuard {
	return &BasicPageGuard{baseGuard{pool: pool, frame: f, mode: modeBasic}}
}

// Data returns the frame's current bytes. Safe to read without a latch
// only if the caller has arranged its own exclusion.
func (g *BasicPageGuard) Data() []byte {
	return g.frame.Data
}

// Move transfers this guard's pin to a new BasicPageGuard value; g must
// not be used afterwards.
func (g *BasicPageGuard) Move() BasicPageGuard {
	return BasicPageGuard{g.move()}
}

// ReadPageGuard holds a pin and a shared latch.
type ReadPageGuard struct {
	baseGuard
}

func newReadPageGuard(pool *BufferPool, f *frame) *ReadPageGuard {
	return &ReadPageGuard{baseGuard{pool: pool, frame: f, mode: modeRead}}
}

// Data returns the frame's bytes, safe to read while this guard is held.
func (g *ReadPageGuard) Data() []byte {
	return g.frame.Data
}

// Move transfers this guard's pin and latch to a new ReadPageGuard value;
// g must not be used afterwards.
func (g *ReadPageGuard) Move() ReadPageGuard {
	return ReadPageGuard{g.move()}
}

// WritePageGuard holds a pin and an exclusive latch.
type WritePageGuard struct {
	baseGuard
}

func newWritePageGuard(pool *BufferPool, f *frame) *WritePageGuard {
	return &WritePageGuard{baseGuard{pool: pool, frame: f, mode: modeWrite}}
}

// Data returns the frame's bytes read-only.
func (g *WritePageGuard) Data() []byte {
	return g.frame.Data
}

// DataMut returns the frame's bytes for in-place mutation and marks the
// frame dirty. The dirty flag is sticky (spec §4.4): it is never cleared
// by later reads or by unpin.
func (g *WritePageGuard) DataMut() []byte {
	g.frame.dirty = true
	return g.frame.Data
}

// MarkDirty explicitly flags the page dirty without touching its bytes,
// for callers that mutate through a separately obtained slice.
func (g *WritePageGuard) MarkDirty() {
	g.frame.dirty = true
}

// Move transfers this guard's pin and latch to a new WritePageGuard
// value; g must not be used afterwards.
func (g *WritePageGuard) Move() WritePageGuard {
	return WritePageGuard{g.move()}
}
