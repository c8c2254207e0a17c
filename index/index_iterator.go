package index

import (
	"slices"

	"github.com/petrel-db/petrel/storage/disk"
	"github.com/petrel-db/petrel/util"
)

// Iterator walks a tree's leaf chain in key order, starting from the
// leaf that would contain the starting key. It holds no page pinned
// between calls to Next.
type Iterator struct {
	tree *BplusTree
	leaf *leafNode
	pos  int
	done bool
}

// Scan returns an Iterator positioned at the first entry with a key >=
// from, or an exhausted iterator if the tree is empty.
func (t *BplusTree) Scan(from Key) (*Iterator, error) {
	empty, err := t.isEmpty()
	if err != nil {
		return nil, err
	}
	if empty {
		return &Iterator{tree: t, done: true}, nil
	}

	h, err := t.readHeader()
	if err != nil {
		return nil, err
	}
	leafId, err := t.findLeafPageId(h.RootPageId, from)
	if err != nil {
		return nil, err
	}
	leaf, err := t.readLeaf(leafId)
	if err != nil {
		return nil, err
	}

	pos, _ := slices.BinarySearchFunc(leaf.Keys, from, Key.Compare)
	it := &Iterator{tree: t, leaf: leaf, pos: pos}
	it.advanceToValid()
	return it, nil
}

// advanceToValid skips forward across empty leaves until pos points at a
// real entry, or marks the iterator done.
func (it *Iterator) advanceToValid() {
	for it.leaf != nil && it.pos >= len(it.leaf.Keys) {
		if !it.leaf.NextPageId.IsValid() {
			it.done = true
			it.leaf = nil
			return
		}
		next, err := it.tree.readLeaf(it.leaf.NextPageId)
		if err != nil {
			it.done = true
			it.leaf = nil
			return
		}
		it.leaf = next
		it.pos = 0
	}
}

// Valid reports whether Key/Value may be called.
func (it *Iterator) Valid() bool {
	return !it.done && it.leaf != nil && it.pos < len(it.leaf.Keys)
}

// Key returns the current entry's key. Valid must be true.
func (it *Iterator) Key() Key {
	return it.leaf.Keys[it.pos]
}

// Value returns the current entry's value. Valid must be true.
func (it *Iterator) Value() disk.PageId {
	return it.leaf.Values[it.pos]
}

// Next advances the iterator by one entry.
func (it *Iterator) Next() error {
	if !it.Valid() {
		return util.New(util.KindMissingProperty, "iterator is exhausted")
	}
	it.pos++
	it.advanceToValid()
	return nil
}
