// Package types implements the tagged-union Value used for catalog
// column defaults, tuple cells, and index keys.
package types

import (
	"encoding/binary"

	"github.com/petrel-db/petrel/serializer"
	"github.com/petrel-db/petrel/util"
)

// TypeId identifies which of Value's fields is active.
type TypeId uint8

const (
	Invalid TypeId = iota
	Boolean
	Integer
	Timestamp
	Varchar
)

func (t TypeId) String() string {
	switch t {
	case Boolean:
		return "BOOLEAN"
	case Integer:
		return "INTEGER"
	case Timestamp:
		return "TIMESTAMP"
	case Varchar:
		return "VARCHAR"
	default:
		return "INVALID"
	}
}

// Value is a small tagged union over the engine's supported column types.
// Canonical widths: BOOLEAN=1, INTEGER=4 (LE signed), TIMESTAMP=8 (LE
// unsigned), VARCHAR=4-byte LE length prefix + raw bytes.
type Value struct {
	typeID    TypeId
	boolean   bool
	integer   int32
	timestamp uint64
	varchar   []byte
}

func NewBoolean(v bool) Value    { return Value{typeID: Boolean, boolean: v} }
func NewInteger(v int32) Value   { return Value{typeID: Integer, integer: v} }
func NewTimestamp(v uint64) Value { return Value{typeID: Timestamp, timestamp: v} }
func NewVarchar(v []byte) Value  { return Value{typeID: Varchar, varchar: append([]byte{}, v...)} }

func (v Value) TypeId() TypeId { return v.typeID }

func (v Value) AsBoolean() (bool, error) {
	if v.typeID != Boolean {
		return false, util.Newf(util.KindTypeMismatch, "value is %s, not BOOLEAN", v.typeID)
	}
	return v.boolean, nil
}

func (v Value) AsInteger() (int32, error) {
	if v.typeID != Integer {
		return 0, util.Newf(util.KindTypeMismatch, "value is %s, not INTEGER", v.typeID)
	}
	return v.integer, nil
}

func (v Value) AsTimestamp() (uint64, error) {
	if v.typeID != Timestamp {
		return 0, util.Newf(util.KindTypeMismatch, "value is %s, not TIMESTAMP", v.typeID)
	}
	return v.timestamp, nil
}

func (v Value) AsVarchar() ([]byte, error) {
	if v.typeID != Varchar {
		return nil, util.Newf(util.KindTypeMismatch, "value is %s, not VARCHAR", v.typeID)
	}
	return v.varchar, nil
}

// Add adds two values of the same arithmetic type. Only INTEGER and
// TIMESTAMP support arithmetic; every other pairing is a TypeMismatch.
func (v Value) Add(other Value) (Value, error) {
	if v.typeID != other.typeID {
		return Value{}, util.Newf(util.KindTypeMismatch, "cannot add %s to %s", other.typeID, v.typeID)
	}
	switch v.typeID {
	case Integer:
		return NewInteger(v.integer + other.integer), nil
	case Timestamp:
		return NewTimestamp(v.timestamp + other.timestamp), nil
	default:
		return Value{}, util.Newf(util.KindTypeMismatch, "%s does not support arithmetic", v.typeID)
	}
}

// Bytes returns v's canonical on-page encoding, with no type tag.
func (v Value) Bytes() []byte {
	switch v.typeID {
	case Boolean:
		if v.boolean {
			return []byte{1}
		}
		return []byte{0}
	case Integer:
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, uint32(v.integer))
		return buf
	case Timestamp:
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, v.timestamp)
		return buf
	case Varchar:
		buf := make([]byte, 4+len(v.varchar))
		binary.LittleEndian.PutUint32(buf, uint32(len(v.varchar)))
		copy(buf[4:], v.varchar)
		return buf
	default:
		return nil
	}
}

// FromBytes decodes a Value of the given type from its canonical
// on-page encoding.
func FromBytes(typeID TypeId, buf []byte) (Value, error) {
	switch typeID {
	case Boolean:
		if len(buf) < 1 {
			return Value{}, util.New(util.KindTypeMismatch, "BOOLEAN value truncated")
		}
		return NewBoolean(buf[0] != 0), nil
	case Integer:
		if len(buf) < 4 {
			return Value{}, util.New(util.KindTypeMismatch, "INTEGER value truncated")
		}
		return NewInteger(int32(binary.LittleEndian.Uint32(buf))), nil
	case Timestamp:
		if len(buf) < 8 {
			return Value{}, util.New(util.KindTypeMismatch, "TIMESTAMP value truncated")
		}
		return NewTimestamp(binary.LittleEndian.Uint64(buf)), nil
	case Varchar:
		if len(buf) < 4 {
			return Value{}, util.New(util.KindTypeMismatch, "VARCHAR value truncated")
		}
		n := binary.LittleEndian.Uint32(buf)
		if len(buf) < int(4+n) {
			return Value{}, util.New(util.KindTypeMismatch, "VARCHAR value truncated")
		}
		return NewVarchar(buf[4 : 4+n]), nil
	default:
		return Value{}, util.Newf(util.KindTypeMismatch, "unsupported type id %d", typeID)
	}
}

// ConvertToIndexKeyType truncates a VARCHAR value to keySize-1 bytes and
// appends a trailing 0x00, so it always fits a fixed-width index key of
// keySize bytes. Non-VARCHAR values are returned as-is: their canonical
// encodings already fit any reasonable key size.
func (v Value) ConvertToIndexKeyType(keySize int) Value {
	if v.typeID != Varchar {
		return v
	}
	max := keySize - 1
	if max < 0 {
		max = 0
	}
	truncated := v.varchar
	if len(truncated) > max {
		truncated = truncated[:max]
	}
	out := make([]byte, len(truncated)+1)
	copy(out, truncated)
	return NewVarchar(out)
}

// IndexKeyBytes returns an order-preserving, fixed-width encoding of v
// suitable for lexicographic byte comparison inside an index key. INTEGER
// is bias-encoded (sign bit flipped) so that two's-complement negatives
// sort before non-negatives under unsigned comparison; every other type's
// canonical width already sorts correctly big-endian. The result is
// right-padded with zero bytes out to keySize.
func (v Value) IndexKeyBytes(keySize int) []byte {
	out := make([]byte, keySize)
	switch v.typeID {
	case Boolean:
		if v.boolean {
			out[0] = 1
		}
	case Integer:
		var buf [4]byte
		binary.BigEndian.PutUint32(buf[:], uint32(v.integer)^0x80000000)
		copy(out, buf[:])
	case Timestamp:
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], v.timestamp)
		copy(out, buf[:])
	case Varchar:
		truncated := v.ConvertToIndexKeyType(keySize)
		copy(out, truncated.varchar)
	}
	return out
}

// SerializeFields implements serializer.Record, so a Value can be embedded
// directly in catalog records (e.g. a column's default value) without a
// second encoding path.
func (v Value) SerializeFields(s *serializer.Serializer) error {
	if err := serializer.WriteProperty(s, 1, uint32(v.typeID)); err != nil {
		return err
	}
	return serializer.WriteProperty(s, 2, v.Bytes())
}

func (v *Value) DeserializeFields(d *serializer.Deserializer) error {
	var typeID uint32
	if err := serializer.ReadProperty(d, 1, &typeID); err != nil {
		return err
	}
	var raw []byte
	if err := serializer.ReadProperty(d, 2, &raw); err != nil {
		return err
	}
	decoded, err := FromBytes(TypeId(typeID), raw)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}
