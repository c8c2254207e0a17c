package disk

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petrel-db/petrel/util"
)

func TestDiskManager(t *testing.T) {
	t.Run("never-written page reads as zeros", func(t *testing.T) {
		dm := NewDiskManager(Paths{Root: t.TempDir()})

		buf := make([]byte, PAGE_SIZE)
		for i := range buf {
			buf[i] = 0xAA
		}

		err := dm.ReadPage(PageId{TableId: 1, PageNumber: 3}, buf)
		require.NoError(t, err)
		assert.Equal(t, make([]byte, PAGE_SIZE), buf)
	})

	t.Run("write then read round-trips", func(t *testing.T) {
		dm := NewDiskManager(Paths{Root: t.TempDir()})

		want := make([]byte, PAGE_SIZE)
		copy(want, []byte("hello world"))

		id := PageId{TableId: 1, PageNumber: 1}
		require.NoError(t, dm.WritePage(id, want))

		got := make([]byte, PAGE_SIZE)
		require.NoError(t, dm.ReadPage(id, got))
		assert.Equal(t, want, got)
	})

	t.Run("write extends the file to cover the page", func(t *testing.T) {
		root := t.TempDir()
		dm := NewDiskManager(Paths{Root: root})

		buf := make([]byte, PAGE_SIZE)
		copy(buf, []byte("far page"))

		id := PageId{TableId: 7, PageNumber: 4}
		require.NoError(t, dm.WritePage(id, buf))

		info, err := os.Stat(filepath.Join(root, "7.page"))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, info.Size(), id.Offset()+PAGE_SIZE)
	})

	t.Run("separate tables get separate files", func(t *testing.T) {
		root := t.TempDir()
		dm := NewDiskManager(Paths{Root: root})

		a := make([]byte, PAGE_SIZE)
		copy(a, []byte("table-a"))
		b := make([]byte, PAGE_SIZE)
		copy(b, []byte("table-b"))

		require.NoError(t, dm.WritePage(PageId{TableId: 1, PageNumber: 0}, a))
		require.NoError(t, dm.WritePage(PageId{TableId: 2, PageNumber: 0}, b))

		gotA := make([]byte, PAGE_SIZE)
		gotB := make([]byte, PAGE_SIZE)
		require.NoError(t, dm.ReadPage(PageId{TableId: 1, PageNumber: 0}, gotA))
		require.NoError(t, dm.ReadPage(PageId{TableId: 2, PageNumber: 0}, gotB))

		assert.True(t, bytes.HasPrefix(gotA, []byte("table-a")))
		assert.True(t, bytes.HasPrefix(gotB, []byte("table-b")))
	})

	t.Run("invalid page id is rejected", func(t *testing.T) {
		dm := NewDiskManager(Paths{Root: t.TempDir()})
		buf := make([]byte, PAGE_SIZE)

		err := dm.ReadPage(InvalidPageId, buf)
		assert.ErrorIs(t, err, util.Sentinel(util.KindInvalidPageId))
	})
}
