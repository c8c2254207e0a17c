package serializer

import (
	"encoding/binary"
	"reflect"

	"github.com/petrel-db/petrel/util"
)

// Record is implemented by any type that knows how to write and read its
// own fields, in stable field-id order. Field ids must never be reused
// for a different meaning across versions; skipping a removed field id
// is what lets old and new readers tolerate each other's streams.
type Record interface {
	SerializeFields(s *Serializer) error
	DeserializeFields(d *Deserializer) error
}

// Serializer writes field-id-tagged, length-prefixed properties onto a
// MemoryStream. Every property, known or not, is self-delimiting, which
// is what lets a Deserializer skip fields it does not recognize.
type Serializer struct {
	stream *MemoryStream
}

// NewSerializer wraps stream for property writes.
func NewSerializer(stream *MemoryStream) *Serializer {
	return &Serializer{stream: stream}
}

// Serialize writes r's fields onto stream.
func Serialize(stream *MemoryStream, r Record) error {
	return r.SerializeFields(NewSerializer(stream))
}

func (s *Serializer) writeField(fieldID uint32, payload []byte) error {
	var header [2 * binary.MaxVarintLen64]byte
	n := binary.PutUvarint(header[:], uint64(fieldID))
	n += binary.PutUvarint(header[n:], uint64(len(payload)))
	if err := s.stream.WriteData(header[:n]); err != nil {
		return err
	}
	return s.stream.WriteData(payload)
}

// WriteProperty writes value under fieldID unconditionally.
func WriteProperty[T any](s *Serializer, fieldID uint32, value T) error {
	payload, err := encodeValue(any(value))
	if err != nil {
		return err
	}
	return s.writeField(fieldID, payload)
}

// WritePropertyWithDefault writes value under fieldID unless it equals
// def, in which case the field is omitted entirely, shortening the
// stream. A reader must use ReadPropertyWithDefault with the same def to
// recover the omission.
func WritePropertyWithDefault[T any](s *Serializer, fieldID uint32, value T, def T) error {
	if reflect.DeepEqual(value, def) {
		return nil
	}
	return WriteProperty(s, fieldID, value)
}

func encodeValue(value any) ([]byte, error) {
	switch v := value.(type) {
	case bool:
		if v {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	case int32:
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, uint32(v))
		return buf, nil
	case uint32:
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, v)
		return buf, nil
	case int64:
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, uint64(v))
		return buf, nil
	case uint64:
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, v)
		return buf, nil
	case string:
		return encodeBytesRaw([]byte(v)), nil
	case []byte:
		return encodeBytesRaw(v), nil
	case []string:
		return encodeStringSlice(v), nil
	case Record:
		nested := NewMemoryStream(64)
		if err := v.SerializeFields(NewSerializer(nested)); err != nil {
			return nil, err
		}
		out := make([]byte, nested.Len())
		copy(out, nested.Data()[:nested.Len()])
		return out, nil
	default:
		return nil, util.Newf(util.KindTypeMismatch, "serializer: unsupported property type %T", value)
	}
}

func encodeBytesRaw(v []byte) []byte {
	lenBuf := make([]byte, binary.MaxVarintLen64)
	n := binary.PutUvarint(lenBuf, uint64(len(v)))
	out := make([]byte, n+len(v))
	copy(out, lenBuf[:n])
	copy(out[n:], v)
	return out
}

func encodeStringSlice(v []string) []byte {
	countBuf := make([]byte, binary.MaxVarintLen64)
	n := binary.PutUvarint(countBuf, uint64(len(v)))
	out := append([]byte{}, countBuf[:n]...)
	for _, s := range v {
		out = append(out, encodeBytesRaw([]byte(s))...)
	}
	return out
}

// WriteObject writes a nested Record unconditionally.
func WriteObject[T Record](s *Serializer, fieldID uint32, value T) error {
	return WriteProperty(s, fieldID, value)
}

// WriteObjectWithDefault writes a nested Record unless it equals def
// (typically a nil pointer), in which case the field is omitted.
func WriteObjectWithDefault[T Record](s *Serializer, fieldID uint32, value T, def T) error {
	return WritePropertyWithDefault(s, fieldID, value, def)
}

// WriteObjectSlice writes a length-prefixed sequence of nested Records,
// each individually length-prefixed so a reader can skip entries of a
// type it does not recognize just as it would a scalar field.
func WriteObjectSlice[T Record](s *Serializer, fieldID uint32, values []T) error {
	countBuf := make([]byte, binary.MaxVarintLen64)
	n := binary.PutUvarint(countBuf, uint64(len(values)))
	out := append([]byte{}, countBuf[:n]...)

	for _, v := range values {
		nested := NewMemoryStream(64)
		if err := v.SerializeFields(NewSerializer(nested)); err != nil {
			return err
		}
		lenBuf := make([]byte, binary.MaxVarintLen64)
		ln := binary.PutUvarint(lenBuf, uint64(nested.Len()))
		out = append(out, lenBuf[:ln]...)
		out = append(out, nested.Data()[:nested.Len()]...)
	}
	return s.writeField(fieldID, out)
}
