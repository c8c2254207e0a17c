package index

import (
	"encoding/binary"

	"github.com/petrel-db/petrel/serializer"
	"github.com/petrel-db/petrel/storage/disk"
	"github.com/petrel-db/petrel/util"
)

type pageKind uint8

const (
	kindInvalid pageKind = iota
	kindLeaf
	kindInternal
)

// pageIdSize is the fixed encoded width of a disk.PageId: a TableId
// (int32) followed by a PageNumber (int64).
const pageIdSize = 4 + 8

func encodePageId(id disk.PageId) []byte {
	buf := make([]byte, pageIdSize)
	binary.BigEndian.PutUint32(buf[0:4], uint32(id.TableId))
	binary.BigEndian.PutUint64(buf[4:12], uint64(id.PageNumber))
	return buf
}

func decodePageId(buf []byte) disk.PageId {
	return disk.PageId{
		TableId:    disk.TableId(binary.BigEndian.Uint32(buf[0:4])),
		PageNumber: int64(binary.BigEndian.Uint64(buf[4:12])),
	}
}

func encodeKeys(keys []Key) []byte {
	out := make([]byte, 0, len(keys)*KeySize)
	for _, k := range keys {
		out = append(out, k[:]...)
	}
	return out
}

func decodeKeys(buf []byte) ([]Key, error) {
	if len(buf)%KeySize != 0 {
		return nil, util.New(util.KindTypeMismatch, "key blob is not a multiple of the key width")
	}
	keys := make([]Key, len(buf)/KeySize)
	for i := range keys {
		copy(keys[i][:], buf[i*KeySize:(i+1)*KeySize])
	}
	return keys, nil
}

// leafNode is a B+Tree leaf page: parallel Keys/Values slices, plus the
// sibling chain used for range scans.
type leafNode struct {
	ThisPageId   disk.PageId
	ParentPageId disk.PageId
	NextPageId   disk.PageId
	Keys         []Key
	Values       []disk.PageId
}

func (n *leafNode) SerializeFields(s *serializer.Serializer) error {
	if err := serializer.WriteProperty(s, 1, uint32(kindLeaf)); err != nil {
		return err
	}
	if err := serializer.WriteProperty(s, 2, encodePageId(n.ThisPageId)); err != nil {
		return err
	}
	if err := serializer.WriteProperty(s, 3, encodePageId(n.ParentPageId)); err != nil {
		return err
	}
	if err := serializer.WriteProperty(s, 4, encodePageId(n.NextPageId)); err != nil {
		return err
	}
	if err := serializer.WriteProperty(s, 5, encodeKeys(n.Keys)); err != nil {
		return err
	}
	values := make([]byte, 0, len(n.Values)*pageIdSize)
	for _, v := range n.Values {
		values = append(values, encodePageId(v)...)
	}
	return serializer.WriteProperty(s, 6, values)
}

func (n *leafNode) DeserializeFields(d *serializer.Deserializer) error {
	var kind uint32
	if err := serializer.ReadProperty(d, 1, &kind); err != nil {
		return err
	}
	if pageKind(kind) != kindLeaf {
		return util.New(util.KindTypeMismatch, "page is not a leaf node")
	}

	var thisBuf, parentBuf, nextBuf, keyBuf, valueBuf []byte
	if err := serializer.ReadProperty(d, 2, &thisBuf); err != nil {
		return err
	}
	if err := serializer.ReadProperty(d, 3, &parentBuf); err != nil {
		return err
	}
	if err := serializer.ReadProperty(d, 4, &nextBuf); err != nil {
		return err
	}
	if err := serializer.ReadProperty(d, 5, &keyBuf); err != nil {
		return err
	}
	if err := serializer.ReadProperty(d, 6, &valueBuf); err != nil {
		return err
	}
	if len(valueBuf)%pageIdSize != 0 {
		return util.New(util.KindTypeMismatch, "value blob is not a multiple of the page id width")
	}

	keys, err := decodeKeys(keyBuf)
	if err != nil {
		return err
	}
	values := make([]disk.PageId, len(valueBuf)/pageIdSize)
	for i := range values {
		values[i] = decodePageId(valueBuf[i*pageIdSize : (i+1)*pageIdSize])
	}

	n.ThisPageId = decodePageId(thisBuf)
	n.ParentPageId = decodePageId(parentBuf)
	n.NextPageId = decodePageId(nextBuf)
	n.Keys = keys
	n.Values = values
	return nil
}

// internalNode is a B+Tree internal page: len(Children) == len(Keys)+1.
// Children[0] holds everything less than Keys[0]; Children[i+1] holds
// everything in [Keys[i], Keys[i+1]).
type internalNode struct {
	ThisPageId   disk.PageId
	ParentPageId disk.PageId
	Keys         []Key
	Children     []disk.PageId
}

func (n *internalNode) SerializeFields(s *serializer.Serializer) error {
	if err := serializer.WriteProperty(s, 1, uint32(kindInternal)); err != nil {
		return err
	}
	if err := serializer.WriteProperty(s, 2, encodePageId(n.ThisPageId)); err != nil {
		return err
	}
	if err := serializer.WriteProperty(s, 3, encodePageId(n.ParentPageId)); err != nil {
		return err
	}
	if err := serializer.WriteProperty(s, 4, encodeKeys(n.Keys)); err != nil {
		return err
	}
	children := make([]byte, 0, len(n.Children)*pageIdSize)
	for _, c := range n.Children {
		children = append(children, encodePageId(c)...)
	}
	return serializer.WriteProperty(s, 5, children)
}

func (n *internalNode) DeserializeFields(d *serializer.Deserializer) error {
	var kind uint32
	if err := serializer.ReadProperty(d, 1, &kind); err != nil {
		return err
	}
	if pageKind(kind) != kindInternal {
		return util.New(util.KindTypeMismatch, "page is not an internal node")
	}

	var thisBuf, parentBuf, keyBuf, childBuf []byte
	if err := serializer.ReadProperty(d, 2, &thisBuf); err != nil {
		return err
	}
	if err := serializer.ReadProperty(d, 3, &parentBuf); err != nil {
		return err
	}
	if err := serializer.ReadProperty(d, 4, &keyBuf); err != nil {
		return err
	}
	if err := serializer.ReadProperty(d, 5, &childBuf); err != nil {
		return err
	}
	if len(childBuf)%pageIdSize != 0 {
		return util.New(util.KindTypeMismatch, "child blob is not a multiple of the page id width")
	}

	keys, err := decodeKeys(keyBuf)
	if err != nil {
		return err
	}
	children := make([]disk.PageId, len(childBuf)/pageIdSize)
	for i := range children {
		children[i] = decodePageId(childBuf[i*pageIdSize : (i+1)*pageIdSize])
	}

	n.ThisPageId = decodePageId(thisBuf)
	n.ParentPageId = decodePageId(parentBuf)
	n.Keys = keys
	n.Children = children
	return nil
}

// peekKind reads just enough of a page to tell a leaf from an internal
// node, without decoding the rest of it.
func peekKind(buf []byte) (pageKind, error) {
	d := serializer.NewDeserializer(serializer.NewReadableStream(buf))
	var kind uint32
	if err := serializer.ReadProperty(d, 1, &kind); err != nil {
		return kindInvalid, err
	}
	return pageKind(kind), nil
}
