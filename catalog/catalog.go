package catalog

import (
	"errors"
	"sync"

	"github.com/petrel-db/petrel/buffer"
	"github.com/petrel-db/petrel/serializer"
	"github.com/petrel-db/petrel/storage/disk"
	"github.com/petrel-db/petrel/util"
	"github.com/petrel-db/petrel/util/logging"
)

// Catalog owns the buffer pool's well-known catalog page and mediates
// every table's schema and page-number allocation cursor through it.
type Catalog struct {
	pool  *buffer.BufferPool
	cache *CatalogCache
	mu    sync.Mutex
}

// NewCatalog wraps pool. cache may be nil, in which case reads always
// fall through to the catalog page.
func NewCatalog(pool *buffer.BufferPool, cache *CatalogCache) *Catalog {
	return &Catalog{pool: pool, cache: cache}
}

func (c *Catalog) readRoot() (*catalogRoot, error) {
	guard, err := c.pool.FetchPageRead(CatalogRootPage)
	if err != nil {
		return nil, err
	}
	defer guard.Release()

	root := &catalogRoot{}
	deser := serializer.NewDeserializer(serializer.NewReadableStream(guard.Data()))
	if err := root.DeserializeFields(deser); err != nil {
		// An uninitialized (all-zero) catalog page decodes as a missing
		// required field; treat that specific case as "no tables yet".
		// Any other decode failure is a genuinely corrupted page and must
		// be surfaced, not silently reset.
		if errors.Is(err, util.Sentinel(util.KindMissingProperty)) {
			return &catalogRoot{NextTableId: 1}, nil
		}
		logging.Error("catalog page decode failed", "err", err)
		return nil, err
	}
	return root, nil
}

func (c *Catalog) writeRoot(root *catalogRoot) error {
	guard, err := c.pool.FetchPageWrite(CatalogRootPage)
	if err != nil {
		return err
	}
	defer guard.Release()

	stream := serializer.NewMemoryStream(len(guard.Data()))
	if err := serializer.Serialize(stream, root); err != nil {
		return err
	}
	if stream.Len() > len(guard.Data()) {
		return util.New(util.KindCapacityExceeded, "catalog no longer fits on its root page")
	}

	buf := guard.DataMut()
	clear(buf)
	copy(buf, stream.Data()[:stream.Len()])
	return nil
}

// CreateTable registers a new table with the given columns, assigns it a
// fresh table id, and persists the updated catalog.
func (c *Catalog) CreateTable(name string, columns []*ColumnDescriptor) (*TableDescriptor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// name cannot yet collide with a cached descriptor's id (it doesn't
	// exist until below), but it can collide with a stale name entry left
	// over from an earlier commit; drop it before touching the root so no
	// reader can observe it once the write below lands.
	if c.cache != nil {
		c.cache.Invalidate(name, CatalogTableId)
	}

	root, err := c.readRoot()
	if err != nil {
		return nil, err
	}
	for _, t := range root.Tables {
		if t.Name == name {
			return nil, util.Newf(util.KindTypeMismatch, "table %q already exists", name)
		}
	}

	desc := &TableDescriptor{
		TableId: disk.TableId(root.NextTableId),
		Name:    name,
		Columns: columns,
	}
	root.NextTableId++
	root.Tables = append(root.Tables, desc)

	if err := c.writeRoot(root); err != nil {
		return nil, err
	}
	logging.Info("table created", "name", name, "table_id", desc.TableId, "columns", len(columns))
	return desc, nil
}

// GetTable looks up a table by name, consulting the cache first.
func (c *Catalog) GetTable(name string) (*TableDescriptor, error) {
	if c.cache != nil {
		if desc, ok := c.cache.GetByName(name); ok {
			return desc, nil
		}
	}

	c.mu.Lock()
	root, err := c.readRoot()
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	for _, t := range root.Tables {
		if t.Name == name {
			if c.cache != nil {
				c.cache.Put(t)
			}
			return t, nil
		}
	}
	return nil, util.Newf(util.KindMissingProperty, "table %q does not exist", name)
}

// GetTableByID looks up a table by id, consulting the cache first.
func (c *Catalog) GetTableByID(id disk.TableId) (*TableDescriptor, error) {
	if c.cache != nil {
		if desc, ok := c.cache.GetByID(id); ok {
			return desc, nil
		}
	}

	c.mu.Lock()
	root, err := c.readRoot()
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	for _, t := range root.Tables {
		if t.TableId == id {
			if c.cache != nil {
				c.cache.Put(t)
			}
			return t, nil
		}
	}
	return nil, util.Newf(util.KindMissingProperty, "table id %d does not exist", id)
}

// ExportSnapshot returns a checksummed, human-portable copy of every
// table's schema, distinct from the durable on-page format — for backup
// or debugging, never for recovery of the live catalog page itself.
func (c *Catalog) ExportSnapshot() ([]byte, error) {
	c.mu.Lock()
	root, err := c.readRoot()
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	snapshot, err := util.ExportSnapshot(root.Tables)
	if err != nil {
		return nil, err
	}
	logging.Info("catalog snapshot exported", "tables", len(root.Tables), "size", logging.Bytes(uint64(len(snapshot))))
	return snapshot, nil
}

// ImportSnapshot restores the catalog from a snapshot produced by
// ExportSnapshot, overwriting the live catalog page. Table ids are
// preserved; NextTableId is recomputed as one past the largest imported
// id so future CreateTable calls never collide with a restored table.
func (c *Catalog) ImportSnapshot(data []byte) error {
	tables, err := util.ImportSnapshot[[]*TableDescriptor](data)
	if err != nil {
		return err
	}

	nextID := int32(1)
	for _, t := range tables {
		if int32(t.TableId)+1 > nextID {
			nextID = int32(t.TableId) + 1
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cache != nil {
		for _, t := range tables {
			c.cache.Invalidate(t.Name, t.TableId)
		}
	}
	if err := c.writeRoot(&catalogRoot{NextTableId: nextID, Tables: tables}); err != nil {
		return err
	}
	return nil
}

// NextPageNumber load-and-increments tableID's allocator cursor,
// persisting it back. This is the durable half of the page allocator.
func (c *Catalog) NextPageNumber(tableID disk.TableId) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	root, err := c.readRoot()
	if err != nil {
		return 0, err
	}

	for _, t := range root.Tables {
		if t.TableId == tableID {
			// Invalidate before the write lands: GetTable/GetTableByID check
			// the cache without taking c.mu, so a reader racing the write
			// below must never observe the pre-increment descriptor as
			// current once the write commits.
			if c.cache != nil {
				c.cache.Invalidate(t.Name, t.TableId)
			}
			n := t.NextPageNumber
			t.NextPageNumber++
			if err := c.writeRoot(root); err != nil {
				return 0, err
			}
			return n, nil
		}
	}
	return 0, util.Newf(util.KindMissingProperty, "table id %d does not exist", tableID)
}
