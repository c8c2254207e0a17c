package catalog

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petrel-db/petrel/buffer"
	"github.com/petrel-db/petrel/storage/disk"
	"github.com/petrel-db/petrel/types"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	dm := disk.NewDiskManager(disk.Paths{Root: t.TempDir()})
	scheduler := disk.NewDiskScheduler(dm)
	pool := buffer.NewBufferPool(4, scheduler)
	return NewCatalog(pool, nil)
}

// newCachedTestCatalog wires a real CatalogCache in front of the pool,
// unlike newTestCatalog, so tests here can catch stale-read regressions
// that a nil cache can never exercise.
func newCachedTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	dm := disk.NewDiskManager(disk.Paths{Root: t.TempDir()})
	scheduler := disk.NewDiskScheduler(dm)
	pool := buffer.NewBufferPool(4, scheduler)
	cache, err := NewCatalogCache(1 << 20)
	require.NoError(t, err)
	t.Cleanup(cache.Close)
	return NewCatalog(pool, cache)
}

func TestCatalog_CreateAndGetTable(t *testing.T) {
	c := newTestCatalog(t)

	cols := []*ColumnDescriptor{
		{Name: "id", TypeId: types.Integer},
		{Name: "name", TypeId: types.Varchar, MaxLength: 64},
	}
	desc, err := c.CreateTable("users", cols)
	require.NoError(t, err)
	assert.Equal(t, "users", desc.Name)

	got, err := c.GetTable("users")
	require.NoError(t, err)
	assert.Equal(t, desc.TableId, got.TableId)
	require.Len(t, got.Columns, 2)
	assert.Equal(t, "name", got.Columns[1].Name)
	assert.Equal(t, uint32(64), got.Columns[1].MaxLength)

	byID, err := c.GetTableByID(desc.TableId)
	require.NoError(t, err)
	assert.Equal(t, "users", byID.Name)
}

func TestCatalog_CreateDuplicateTableFails(t *testing.T) {
	c := newTestCatalog(t)

	_, err := c.CreateTable("t", nil)
	require.NoError(t, err)

	_, err = c.CreateTable("t", nil)
	assert.Error(t, err)
}

func TestCatalog_GetMissingTableFails(t *testing.T) {
	c := newTestCatalog(t)
	_, err := c.GetTable("nope")
	assert.Error(t, err)
}

func TestCatalog_NextPageNumberIsMonotonicAndPersisted(t *testing.T) {
	c := newTestCatalog(t)

	desc, err := c.CreateTable("t", nil)
	require.NoError(t, err)

	n1, err := c.NextPageNumber(desc.TableId)
	require.NoError(t, err)
	n2, err := c.NextPageNumber(desc.TableId)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n1)
	assert.Equal(t, int64(1), n2)

	got, err := c.GetTable("t")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.NextPageNumber)
}

func TestCatalog_CorruptedPageSurfacesAsError(t *testing.T) {
	dm := disk.NewDiskManager(disk.Paths{Root: t.TempDir()})
	scheduler := disk.NewDiskScheduler(dm)
	pool := buffer.NewBufferPool(4, scheduler)
	c := NewCatalog(pool, nil)

	// Field 1 (NextTableId int32) is well-formed and present, so this is
	// not the "missing required property" case readRoot is allowed to
	// swallow. Field 2 (the table slice) carries a one-byte truncated
	// varint count that can never parse — a stand-in for a torn write.
	guard, err := pool.NewPageBasic(disk.NewPageAllocator(CatalogTableId))
	require.NoError(t, err)
	require.Equal(t, CatalogRootPage, guard.PageId())
	buf := guard.Data()
	n := 0
	n += binary.PutUvarint(buf[n:], 1) // field id 1
	n += binary.PutUvarint(buf[n:], 4) // length 4
	binary.LittleEndian.PutUint32(buf[n:], 1)
	n += 4
	n += binary.PutUvarint(buf[n:], 2) // field id 2
	n += binary.PutUvarint(buf[n:], 1) // length 1
	buf[n] = 0xFF                      // truncated varint, never parses
	require.NoError(t, guard.Release())

	_, err = c.GetTable("t")
	assert.Error(t, err)
}

func TestCatalog_SnapshotRoundTrip(t *testing.T) {
	c := newTestCatalog(t)
	_, err := c.CreateTable("users", []*ColumnDescriptor{{Name: "id", TypeId: types.Integer}})
	require.NoError(t, err)

	snap, err := c.ExportSnapshot()
	require.NoError(t, err)

	other := newTestCatalog(t)
	require.NoError(t, other.ImportSnapshot(snap))

	got, err := other.GetTable("users")
	require.NoError(t, err)
	assert.Equal(t, "users", got.Name)

	// A table created after import must not collide with the restored id.
	desc, err := other.CreateTable("orders", nil)
	require.NoError(t, err)
	assert.NotEqual(t, got.TableId, desc.TableId)
}

func TestCatalog_CacheNeverServesStaleNextPageNumber(t *testing.T) {
	c := newCachedTestCatalog(t)

	desc, err := c.CreateTable("t", nil)
	require.NoError(t, err)

	// Prime the cache with the pre-increment descriptor, the way any
	// reader racing the writer below would.
	primed, err := c.GetTable("t")
	require.NoError(t, err)
	assert.Equal(t, int64(0), primed.NextPageNumber)

	n, err := c.NextPageNumber(desc.TableId)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	got, err := c.GetTable("t")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.NextPageNumber, "cache must not serve the pre-increment descriptor after NextPageNumber commits")

	byID, err := c.GetTableByID(desc.TableId)
	require.NoError(t, err)
	assert.Equal(t, int64(1), byID.NextPageNumber)
}

func TestCatalog_CacheNeverServesStaleDescriptorAfterCreate(t *testing.T) {
	c := newCachedTestCatalog(t)

	_, err := c.CreateTable("a", []*ColumnDescriptor{{Name: "x", TypeId: types.Boolean}})
	require.NoError(t, err)
	first, err := c.GetTable("a")
	require.NoError(t, err)
	assert.Equal(t, "a", first.Name)

	// A second table must be visible immediately, never masked by a stale
	// cache entry left behind by the first CreateTable's invalidation.
	desc, err := c.CreateTable("b", []*ColumnDescriptor{{Name: "y", TypeId: types.Integer}})
	require.NoError(t, err)

	got, err := c.GetTable("b")
	require.NoError(t, err)
	assert.Equal(t, desc.TableId, got.TableId)
}

func TestCatalog_SurvivesMultipleTables(t *testing.T) {
	c := newTestCatalog(t)

	for _, name := range []string{"a", "b", "c"} {
		_, err := c.CreateTable(name, []*ColumnDescriptor{{Name: "x", TypeId: types.Boolean}})
		require.NoError(t, err)
	}

	for _, name := range []string{"a", "b", "c"} {
		got, err := c.GetTable(name)
		require.NoError(t, err)
		assert.Equal(t, name, got.Name)
	}
}
