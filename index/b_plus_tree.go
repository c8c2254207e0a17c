package index

import (
	"slices"

	"github.com/petrel-db/petrel/buffer"
	"github.com/petrel-db/petrel/serializer"
	"github.com/petrel-db/petrel/storage/disk"
	"github.com/petrel-db/petrel/util"
)

// maxEntries bounds how many keys a leaf or internal page holds before it
// splits. TODO: derive this from PAGE_SIZE once node encoding stabilizes;
// a small fixed fanout keeps split paths exercised by modest tests (the
// tree has no delete, so there is no merge path).
const maxEntries = 4

// BplusTree is a disk-backed B+Tree over fixed-width Key entries pointing
// at disk.PageId values (typically a heap page or an RID's page). Every
// leaf/internal page is a first-class serializer.Record fetched and
// pinned through the buffer pool's guard API; there is no separate
// in-memory tree structure.
type BplusTree struct {
	name      string
	pool      *buffer.BufferPool
	allocator *disk.PageAllocator
	headerId  disk.PageId
}

// NewBplusTree creates an empty tree addressed by allocator's table,
// reserving that table's page 0 as the tree's header page.
func NewBplusTree(name string, pool *buffer.BufferPool, allocator *disk.PageAllocator) (*BplusTree, error) {
	guard, err := pool.NewPageWrite(allocator)
	if err != nil {
		return nil, err
	}
	defer guard.Release()

	headerId := guard.PageId()
	if headerId.PageNumber != 0 {
		return nil, util.New(util.KindInvalidPageId, "index header page must be the table's first page")
	}

	stream := serializer.NewBorrowedMemoryStream(guard.DataMut())
	if err := serializer.Serialize(stream, &treeHeader{RootPageId: disk.InvalidPageId}); err != nil {
		return nil, err
	}

	return &BplusTree{name: name, pool: pool, allocator: allocator, headerId: headerId}, nil
}

func (t *BplusTree) readHeader() (*treeHeader, error) {
	guard, err := t.pool.FetchPageRead(t.headerId)
	if err != nil {
		return nil, err
	}
	defer guard.Release()

	h := &treeHeader{}
	deser := serializer.NewDeserializer(serializer.NewReadableStream(guard.Data()))
	if err := h.DeserializeFields(deser); err != nil {
		return nil, err
	}
	return h, nil
}

func (t *BplusTree) writeHeader(h *treeHeader) error {
	guard, err := t.pool.FetchPageWrite(t.headerId)
	if err != nil {
		return err
	}
	defer guard.Release()

	buf := guard.DataMut()
	clear(buf)
	stream := serializer.NewBorrowedMemoryStream(buf)
	return serializer.Serialize(stream, h)
}

func (t *BplusTree) isEmpty() (bool, error) {
	h, err := t.readHeader()
	if err != nil {
		return false, err
	}
	return !h.RootPageId.IsValid(), nil
}

func (t *BplusTree) readLeaf(id disk.PageId) (*leafNode, error) {
	guard, err := t.pool.FetchPageRead(id)
	if err != nil {
		return nil, err
	}
	defer guard.Release()
	n := &leafNode{}
	if err := n.DeserializeFields(serializer.NewDeserializer(serializer.NewReadableStream(guard.Data()))); err != nil {
		return nil, err
	}
	return n, nil
}

func (t *BplusTree) writeLeaf(n *leafNode) error {
	guard, err := t.pool.FetchPageWrite(n.ThisPageId)
	if err != nil {
		return err
	}
	defer guard.Release()
	buf := guard.DataMut()
	clear(buf)
	return serializer.Serialize(serializer.NewBorrowedMemoryStream(buf), n)
}

func (t *BplusTree) readInternal(id disk.PageId) (*internalNode, error) {
	guard, err := t.pool.FetchPageRead(id)
	if err != nil {
		return nil, err
	}
	defer guard.Release()
	n := &internalNode{}
	if err := n.DeserializeFields(serializer.NewDeserializer(serializer.NewReadableStream(guard.Data()))); err != nil {
		return nil, err
	}
	return n, nil
}

func (t *BplusTree) writeInternal(n *internalNode) error {
	guard, err := t.pool.FetchPageWrite(n.ThisPageId)
	if err != nil {
		return err
	}
	defer guard.Release()
	buf := guard.DataMut()
	clear(buf)
	return serializer.Serialize(serializer.NewBorrowedMemoryStream(buf), n)
}

// allocatePage reserves a fresh page id and immediately writes rec's
// encoding into it, in one guard acquisition.
func (t *BplusTree) allocatePage(rec serializer.Record) (disk.PageId, error) {
	guard, err := t.pool.NewPageWrite(t.allocator)
	if err != nil {
		return disk.InvalidPageId, err
	}
	defer guard.Release()
	buf := guard.DataMut()
	clear(buf)
	if err := serializer.Serialize(serializer.NewBorrowedMemoryStream(buf), rec); err != nil {
		return disk.InvalidPageId, err
	}
	return guard.PageId(), nil
}

// GetValue returns the value stored under key as a one-element slice, or
// a MissingProperty error if key is absent. When key was inserted more
// than once, only one of its entries is returned.
func (t *BplusTree) GetValue(key Key) ([]disk.PageId, error) {
	empty, err := t.isEmpty()
	if err != nil {
		return nil, err
	}
	if empty {
		return nil, util.New(util.KindMissingProperty, "index is empty")
	}

	h, err := t.readHeader()
	if err != nil {
		return nil, err
	}
	leafId, err := t.findLeafPageId(h.RootPageId, key)
	if err != nil {
		return nil, err
	}
	leaf, err := t.readLeaf(leafId)
	if err != nil {
		return nil, err
	}

	idx, found := slices.BinarySearchFunc(leaf.Keys, key, Key.Compare)
	if !found {
		return nil, util.New(util.KindMissingProperty, "key not found")
	}
	return []disk.PageId{leaf.Values[idx]}, nil
}

// findLeafPageId descends from rootId to the leaf that would contain key.
func (t *BplusTree) findLeafPageId(rootId disk.PageId, key Key) (disk.PageId, error) {
	currentId := rootId
	for {
		guard, err := t.pool.FetchPageRead(currentId)
		if err != nil {
			return disk.InvalidPageId, err
		}
		kind, err := peekKind(guard.Data())
		if err != nil {
			guard.Release()
			return disk.InvalidPageId, err
		}
		if kind == kindLeaf {
			guard.Release()
			return currentId, nil
		}

		node := &internalNode{}
		err = node.DeserializeFields(serializer.NewDeserializer(serializer.NewReadableStream(guard.Data())))
		guard.Release()
		if err != nil {
			return disk.InvalidPageId, err
		}

		childIdx := 0
		for i := 0; i < len(node.Keys); i++ {
			if key.Compare(node.Keys[i]) >= 0 {
				childIdx = i + 1
			} else {
				break
			}
		}
		currentId = node.Children[childIdx]
	}
}

// Insert adds key -> value to the tree, splitting leaf and internal pages
// as needed. Duplicate keys are appended as separate leaf entries.
func (t *BplusTree) Insert(key Key, value disk.PageId) error {
	empty, err := t.isEmpty()
	if err != nil {
		return err
	}

	if empty {
		guard, err := t.pool.NewPageBasic(t.allocator)
		if err != nil {
			return err
		}
		id := guard.PageId()
		guard.Release()

		leaf := &leafNode{
			ThisPageId:   id,
			ParentPageId: disk.InvalidPageId,
			NextPageId:   disk.InvalidPageId,
			Keys:         []Key{key},
			Values:       []disk.PageId{value},
		}
		if err := t.writeLeaf(leaf); err != nil {
			return err
		}
		return t.writeHeader(&treeHeader{RootPageId: id})
	}

	h, err := t.readHeader()
	if err != nil {
		return err
	}
	leafId, err := t.findLeafPageId(h.RootPageId, key)
	if err != nil {
		return err
	}
	leaf, err := t.readLeaf(leafId)
	if err != nil {
		return err
	}

	insertIdx, _ := slices.BinarySearchFunc(leaf.Keys, key, Key.Compare)
	leaf.Keys = slices.Insert(leaf.Keys, insertIdx, key)
	leaf.Values = slices.Insert(leaf.Values, insertIdx, value)

	if len(leaf.Keys) <= maxEntries {
		return t.writeLeaf(leaf)
	}

	newLeafGuard, err := t.pool.NewPageBasic(t.allocator)
	if err != nil {
		return err
	}
	newLeafId := newLeafGuard.PageId()
	newLeafGuard.Release()

	midpoint := (len(leaf.Keys) + 1) / 2
	newLeaf := &leafNode{
		ThisPageId:   newLeafId,
		ParentPageId: leaf.ParentPageId,
		NextPageId:   leaf.NextPageId,
		Keys:         append([]Key{}, leaf.Keys[midpoint:]...),
		Values:       append([]disk.PageId{}, leaf.Values[midpoint:]...),
	}
	leaf.Keys = leaf.Keys[:midpoint]
	leaf.Values = leaf.Values[:midpoint]
	leaf.NextPageId = newLeafId

	if err := t.writeLeaf(leaf); err != nil {
		return err
	}
	if err := t.writeLeaf(newLeaf); err != nil {
		return err
	}

	return t.insertInParent(leaf.ThisPageId, leaf.ParentPageId, newLeaf.ThisPageId, newLeaf.Keys[0])
}

// insertInParent links a freshly split right sibling into its parent,
// creating a new root or recursively splitting the parent as needed.
func (t *BplusTree) insertInParent(leftId, parentId, rightId disk.PageId, splitKey Key) error {
	h, err := t.readHeader()
	if err != nil {
		return err
	}

	if leftId == h.RootPageId {
		newRoot := &internalNode{
			ParentPageId: disk.InvalidPageId,
			Keys:         []Key{splitKey},
			Children:     []disk.PageId{leftId, rightId},
		}
		newRootId, err := t.allocatePage(newRoot)
		if err != nil {
			return err
		}
		newRoot.ThisPageId = newRootId
		if err := t.writeInternal(newRoot); err != nil {
			return err
		}
		if err := t.reparent(leftId, newRootId); err != nil {
			return err
		}
		if err := t.reparent(rightId, newRootId); err != nil {
			return err
		}
		return t.writeHeader(&treeHeader{RootPageId: newRootId})
	}

	parent, err := t.readInternal(parentId)
	if err != nil {
		return err
	}

	insertIdx, _ := slices.BinarySearchFunc(parent.Keys, splitKey, Key.Compare)
	parent.Keys = slices.Insert(parent.Keys, insertIdx, splitKey)
	parent.Children = slices.Insert(parent.Children, insertIdx+1, rightId)

	if len(parent.Keys) <= maxEntries {
		return t.writeInternal(parent)
	}

	midpoint := len(parent.Keys) / 2
	pushUpKey := parent.Keys[midpoint]

	sibling := &internalNode{
		ParentPageId: parent.ParentPageId,
		Keys:         append([]Key{}, parent.Keys[midpoint+1:]...),
		Children:     append([]disk.PageId{}, parent.Children[midpoint+1:]...),
	}
	parent.Keys = parent.Keys[:midpoint]
	parent.Children = parent.Children[:midpoint+1]

	siblingId, err := t.allocatePage(sibling)
	if err != nil {
		return err
	}
	sibling.ThisPageId = siblingId

	for _, child := range sibling.Children {
		if err := t.reparent(child, siblingId); err != nil {
			return err
		}
	}

	if err := t.writeInternal(parent); err != nil {
		return err
	}
	if err := t.writeInternal(sibling); err != nil {
		return err
	}

	return t.insertInParent(parent.ThisPageId, parent.ParentPageId, siblingId, pushUpKey)
}

// reparent rewrites child's ParentPageId in place, whether it is a leaf
// or an internal node.
func (t *BplusTree) reparent(child, parent disk.PageId) error {
	guard, err := t.pool.FetchPageRead(child)
	if err != nil {
		return err
	}
	kind, err := peekKind(guard.Data())
	guard.Release()
	if err != nil {
		return err
	}

	if kind == kindLeaf {
		leaf, err := t.readLeaf(child)
		if err != nil {
			return err
		}
		leaf.ParentPageId = parent
		return t.writeLeaf(leaf)
	}
	node, err := t.readInternal(child)
	if err != nil {
		return err
	}
	node.ParentPageId = parent
	return t.writeInternal(node)
}
