package index

import "github.com/petrel-db/petrel/storage/disk"

// GetKeyRange returns every value stored under a key in [start, stop],
// in key order.
func (t *BplusTree) GetKeyRange(start, stop Key) ([]disk.PageId, error) {
	it, err := t.Scan(start)
	if err != nil {
		return nil, err
	}

	res := []disk.PageId{}
	for it.Valid() {
		key := it.Key()
		if key.Compare(stop) > 0 {
			break
		}
		res = append(res, it.Value())
		if err := it.Next(); err != nil {
			break
		}
	}
	return res, nil
}

// BatchInsert inserts every key/value pair in items. It stops at the
// first error, leaving prior insertions in place.
func (t *BplusTree) BatchInsert(items map[Key]disk.PageId) error {
	for k, v := range items {
		if err := t.Insert(k, v); err != nil {
			return err
		}
	}
	return nil
}
