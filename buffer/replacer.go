package buffer

import "sync"

// INVALID_FRAME_ID marks the absence of a frame in replacer results.
const INVALID_FRAME_ID = -1

// Replacer is the capability set the buffer pool needs from a
// replacement policy: Pin/Unpin/Evict/Size (spec §4.3, Design Notes
// "virtual dispatch for replacer"). The buffer pool is not generic over
// this — a policy is selected once at construction and used through the
// interface, which is cheap relative to the disk I/O it guards.
type Replacer interface {
	// Pin removes frameID from the evictable set. Idempotent.
	Pin(frameID int)
	// Unpin adds frameID to the evictable set. Idempotent; a no-op if
	// frameID has never been seen by this replacer.
	Unpin(frameID int)
	// Evict selects and removes one evictable frame, or reports none
	// available.
	Evict() (frameID int, ok bool)
	// Size reports the number of currently evictable frames.
	Size() int
}

type lrukNode struct {
	frameID   int
	history   []int64 // capped at k most recent access timestamps, oldest first
	evictable bool
}

func (n *lrukNode) hasKAccesses(k int) bool {
	return len(n.history) >= k
}

// kthAccess is the oldest timestamp retained in the window: once the node
// has k accesses this is exactly the k-th-most-recent access.
func (n *lrukNode) kthAccess() int64 {
	if len(n.history) == 0 {
		return -1
	}
	return n.history[0]
}

func (n *lrukNode) mostRecentAccess() int64 {
	if len(n.history) == 0 {
		return -1
	}
	return n.history[len(n.history)-1]
}

func (n *lrukNode) recordAccess(k int, timestamp int64) {
	if len(n.history) < k {
		n.history = append(n.history, timestamp)
		return
	}
	n.history = append(n.history[1:], timestamp)
}

// LRUKReplacer selects, among evictable frames, the one with the largest
// backward k-distance: a frame with fewer than k recorded accesses is
// always preferred for eviction over one with k or more (classified as
// having "infinite" backward distance), and is broken by earliest
// most-recent access; frames with k or more accesses are broken by
// earliest k-th-most-recent access. This satisfies spec §4.3's
// substitution clause (only returns evictable frames, deterministic given
// a fixed access sequence).
type LRUKReplacer struct {
	k int

	mu        sync.Mutex
	nodes     map[int]*lrukNode
	clock     int64
	evictable int
}

// NewLRUKReplacer builds a replacer using a k-distance window of k
// accesses. capacity only sizes the initial node map; it is not enforced
// as a limit on how many frame ids are tracked.
func NewLRUKReplacer(capacity, k int) *LRUKReplacer {
	return &LRUKReplacer{
		k:     k,
		nodes: make(map[int]*lrukNode, capacity),
	}
}

// RecordAccess logs an access to frameID for k-distance purposes without
// changing its evictability. Pin below records an access too; the buffer
// pool holds the replacer as a Replacer and never calls RecordAccess, so
// every new page, fetch, or re-fetch reaches the history through Pin.
func (r *LRUKReplacer) RecordAccess(frameID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recordAccessLocked(frameID)
}

func (r *LRUKReplacer) recordAccessLocked(frameID int) {
	r.clock++
	node, ok := r.nodes[frameID]
	if !ok {
		node = &lrukNode{frameID: frameID}
		r.nodes[frameID] = node
	}
	node.recordAccess(r.k, r.clock)
}

// Pin removes frameID from the evictable set, recording this touch for
// k-distance purposes.
func (r *LRUKReplacer) Pin(frameID int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.recordAccessLocked(frameID)
	node := r.nodes[frameID]
	if node.evictable {
		node.evictable = false
		r.evictable--
	}
}

// Unpin adds frameID to the evictable set. No effect if this replacer has
// no history for frameID (never passed to Pin or RecordAccess, or evicted
// since).
func (r *LRUKReplacer) Unpin(frameID int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	node, ok := r.nodes[frameID]
	if !ok {
		return
	}
	if !node.evictable {
		node.evictable = true
		r.evictable++
	}
}

// Evict selects an evictable frame per the k-distance policy above and
// removes all history for it.
func (r *LRUKReplacer) Evict() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.evictable == 0 {
		return INVALID_FRAME_ID, false
	}

	var victim *lrukNode
	for _, node := range r.nodes {
		if !node.evictable {
			continue
		}
		if victim == nil || lessEvictable(r.k, node, victim) {
			victim = node
		}
	}

	delete(r.nodes, victim.frameID)
	r.evictable--
	return victim.frameID, true
}

// lessEvictable reports whether a is a more eligible eviction candidate
// than b: fewer-than-k-access nodes always beat k-or-more nodes, and
// within a group the node touched longer ago wins.
func lessEvictable(k int, a, b *lrukNode) bool {
	aFull, bFull := a.hasKAccesses(k), b.hasKAccesses(k)
	if aFull != bFull {
		return !aFull // a has fewer than k accesses, b has k+: a wins
	}
	if !aFull {
		return a.mostRecentAccess() < b.mostRecentAccess()
	}
	return a.kthAccess() < b.kthAccess()
}

// Size reports how many frames are currently evictable.
func (r *LRUKReplacer) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.evictable
}
