// Package catalog persists table and column schema through the binary
// serializer, onto a well-known catalog page in the buffer pool.
package catalog

import (
	"github.com/petrel-db/petrel/serializer"
	"github.com/petrel-db/petrel/storage/disk"
	"github.com/petrel-db/petrel/types"
)

// CatalogTableId is the reserved table id whose page 0 holds the catalog
// root record. No user table is ever assigned this id.
const CatalogTableId disk.TableId = 0

// CatalogRootPage is the well-known page holding the serialized catalog.
var CatalogRootPage = disk.PageId{TableId: CatalogTableId, PageNumber: 0}

// ColumnDescriptor describes one column of a table.
type ColumnDescriptor struct {
	Name      string
	TypeId    types.TypeId
	MaxLength uint32 // VARCHAR only; default-suppressed to 0 otherwise
}

func (c *ColumnDescriptor) SerializeFields(s *serializer.Serializer) error {
	if err := serializer.WriteProperty(s, 1, c.Name); err != nil {
		return err
	}
	if err := serializer.WriteProperty(s, 2, uint32(c.TypeId)); err != nil {
		return err
	}
	return serializer.WritePropertyWithDefault(s, 3, c.MaxLength, uint32(0))
}

func (c *ColumnDescriptor) DeserializeFields(d *serializer.Deserializer) error {
	if err := serializer.ReadProperty(d, 1, &c.Name); err != nil {
		return err
	}
	var t uint32
	if err := serializer.ReadProperty(d, 2, &t); err != nil {
		return err
	}
	c.TypeId = types.TypeId(t)
	return serializer.ReadPropertyWithDefault(d, 3, &c.MaxLength, uint32(0))
}

// recordKind lets a shared page distinguish record shapes; the catalog
// currently only writes TableDescriptors, but the field is carried so a
// future record type sharing this framework can be introduced without
// breaking old readers (spec.md §4.6 evolution rules).
type recordKind uint32

const tableDescriptorKind recordKind = 1

// TableDescriptor is a table's persisted schema plus its live page
// allocation cursor (the durable half of the page allocator, spec.md
// §4.2's "state is persisted" clause).
type TableDescriptor struct {
	TableId        disk.TableId
	Name           string
	Columns        []*ColumnDescriptor
	NextPageNumber int64
}

func (t *TableDescriptor) SerializeFields(s *serializer.Serializer) error {
	if err := serializer.WriteProperty(s, 1, uint32(tableDescriptorKind)); err != nil {
		return err
	}
	if err := serializer.WriteProperty(s, 2, int32(t.TableId)); err != nil {
		return err
	}
	if err := serializer.WriteProperty(s, 3, t.Name); err != nil {
		return err
	}
	if err := serializer.WriteObjectSlice[*ColumnDescriptor](s, 4, t.Columns); err != nil {
		return err
	}
	return serializer.WritePropertyWithDefault(s, 5, t.NextPageNumber, int64(0))
}

func (t *TableDescriptor) DeserializeFields(d *serializer.Deserializer) error {
	var kind uint32
	if err := serializer.ReadProperty(d, 1, &kind); err != nil {
		return err
	}
	var tableID int32
	if err := serializer.ReadProperty(d, 2, &tableID); err != nil {
		return err
	}
	t.TableId = disk.TableId(tableID)
	if err := serializer.ReadProperty(d, 3, &t.Name); err != nil {
		return err
	}
	columns, err := serializer.ReadObjectSlice(d, 4, func() *ColumnDescriptor { return &ColumnDescriptor{} })
	if err != nil {
		return err
	}
	t.Columns = columns
	return serializer.ReadPropertyWithDefault(d, 5, &t.NextPageNumber, int64(0))
}

// catalogRoot is the single record stored at CatalogRootPage: the next
// table id to assign, and every table's descriptor. The catalog page
// holding all descriptors inline caps total schema size at PAGE_SIZE;
// spilling to continuation pages is not implemented (see DESIGN.md).
type catalogRoot struct {
	NextTableId int32
	Tables      []*TableDescriptor
}

func (r *catalogRoot) SerializeFields(s *serializer.Serializer) error {
	if err := serializer.WriteProperty(s, 1, r.NextTableId); err != nil {
		return err
	}
	return serializer.WriteObjectSlice[*TableDescriptor](s, 2, r.Tables)
}

func (r *catalogRoot) DeserializeFields(d *serializer.Deserializer) error {
	if err := serializer.ReadProperty(d, 1, &r.NextTableId); err != nil {
		return err
	}
	tables, err := serializer.ReadObjectSlice(d, 2, func() *TableDescriptor { return &TableDescriptor{} })
	if err != nil {
		return err
	}
	r.Tables = tables
	return nil
}
