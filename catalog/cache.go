package catalog

import (
	"github.com/dgraph-io/ristretto/v2"

	"github.com/petrel-db/petrel/storage/disk"
)

// CatalogCache is a bounded, cost-aware cache of decoded TableDescriptor
// values sitting in front of the catalog's page reads. It is deliberately
// not a page cache: a hit never touches the buffer pool, and it competes
// with nothing in the pool's pin/evict bookkeeping.
type CatalogCache struct {
	byName *ristretto.Cache[string, *TableDescriptor]
	byID   *ristretto.Cache[disk.TableId, *TableDescriptor]
}

// NewCatalogCache builds a CatalogCache sized for approximately
// maxCostBytes of decoded descriptors.
func NewCatalogCache(maxCostBytes int64) (*CatalogCache, error) {
	byName, err := ristretto.NewCache(&ristretto.Config[string, *TableDescriptor]{
		NumCounters: maxCostBytes / 8,
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}

	byID, err := ristretto.NewCache(&ristretto.Config[disk.TableId, *TableDescriptor]{
		NumCounters: maxCostBytes / 8,
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}

	return &CatalogCache{byName: byName, byID: byID}, nil
}

func descriptorCost(desc *TableDescriptor) int64 {
	cost := int64(len(desc.Name)) + 16
	for _, col := range desc.Columns {
		cost += int64(len(col.Name)) + 8
	}
	return cost
}

// Put inserts desc under both its name and id keys.
func (c *CatalogCache) Put(desc *TableDescriptor) {
	cost := descriptorCost(desc)
	c.byName.Set(desc.Name, desc, cost)
	c.byID.Set(desc.TableId, desc, cost)
	c.byName.Wait()
	c.byID.Wait()
}

// GetByName returns the cached descriptor for name, if present.
func (c *CatalogCache) GetByName(name string) (*TableDescriptor, bool) {
	return c.byName.Get(name)
}

// GetByID returns the cached descriptor for id, if present.
func (c *CatalogCache) GetByID(id disk.TableId) (*TableDescriptor, bool) {
	return c.byID.Get(id)
}

// Invalidate removes both keys for a table ahead of a schema-changing
// write, so a stale descriptor is never served after a commit.
func (c *CatalogCache) Invalidate(name string, id disk.TableId) {
	c.byName.Del(name)
	c.byID.Del(id)
}

// Close releases the cache's background goroutines.
func (c *CatalogCache) Close() {
	c.byName.Close()
	c.byID.Close()
}
