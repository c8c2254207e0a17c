package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petrel-db/petrel/storage/disk"
)

func TestCatalogCache_PutAndGet(t *testing.T) {
	cache, err := NewCatalogCache(1 << 20)
	require.NoError(t, err)
	defer cache.Close()

	desc := &TableDescriptor{TableId: disk.TableId(3), Name: "orders"}
	cache.Put(desc)

	byName, ok := cache.GetByName("orders")
	require.True(t, ok)
	assert.Equal(t, desc.TableId, byName.TableId)

	byID, ok := cache.GetByID(disk.TableId(3))
	require.True(t, ok)
	assert.Equal(t, "orders", byID.Name)
}

func TestCatalogCache_InvalidateRemovesBothKeys(t *testing.T) {
	cache, err := NewCatalogCache(1 << 20)
	require.NoError(t, err)
	defer cache.Close()

	desc := &TableDescriptor{TableId: disk.TableId(1), Name: "t"}
	cache.Put(desc)
	cache.Invalidate("t", disk.TableId(1))

	_, ok := cache.GetByName("t")
	assert.False(t, ok)
	_, ok = cache.GetByID(disk.TableId(1))
	assert.False(t, ok)
}

func TestCatalogCache_MissReturnsFalse(t *testing.T) {
	cache, err := NewCatalogCache(1 << 20)
	require.NoError(t, err)
	defer cache.Close()

	_, ok := cache.GetByName("nope")
	assert.False(t, ok)
}
