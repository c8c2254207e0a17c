package index

import (
	"github.com/petrel-db/petrel/serializer"
	"github.com/petrel-db/petrel/storage/disk"
)

// treeHeader is the single record held on a tree's header page: just the
// current root, so every mutation that changes the root only needs to
// rewrite this one small record rather than anything leaf/internal-page
// sized.
type treeHeader struct {
	RootPageId disk.PageId
}

func (h *treeHeader) SerializeFields(s *serializer.Serializer) error {
	return serializer.WriteProperty(s, 1, encodePageId(h.RootPageId))
}

func (h *treeHeader) DeserializeFields(d *serializer.Deserializer) error {
	var buf []byte
	if err := serializer.ReadProperty(d, 1, &buf); err != nil {
		return err
	}
	h.RootPageId = decodePageId(buf)
	return nil
}
