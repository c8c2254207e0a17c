package serializer

import (
	"encoding/binary"

	"github.com/petrel-db/petrel/util"
)

type fieldHeader struct {
	id     uint32
	length int
}

// Deserializer reads field-id-tagged properties written by a Serializer.
// A property whose id does not match what the caller asks for next is
// skipped using its length prefix, without either side needing to know
// its type — this is what makes old and new schema versions tolerant of
// each other.
type Deserializer struct {
	stream  *MemoryStream
	limit   int
	pending *fieldHeader
}

// NewDeserializer wraps stream, bounding reads to its currently valid
// length (stream.Len()).
func NewDeserializer(stream *MemoryStream) *Deserializer {
	return &Deserializer{stream: stream, limit: stream.Len()}
}

// Deserialize reads a Record's fields from stream using factory to
// allocate the zero value.
func Deserialize[T Record](stream *MemoryStream, factory func() T) (T, error) {
	obj := factory()
	err := obj.DeserializeFields(NewDeserializer(stream))
	return obj, err
}

func (d *Deserializer) readHeader() (fieldHeader, bool, error) {
	if d.pending != nil {
		h := *d.pending
		return h, true, nil
	}
	if d.stream.Position() >= d.limit {
		return fieldHeader{}, false, nil
	}
	id, err := binary.ReadUvarint(d.stream)
	if err != nil {
		return fieldHeader{}, false, util.Wrap(util.KindTypeMismatch, "reading property field id", err)
	}
	length, err := binary.ReadUvarint(d.stream)
	if err != nil {
		return fieldHeader{}, false, util.Wrap(util.KindTypeMismatch, "reading property length", err)
	}
	return fieldHeader{id: uint32(id), length: int(length)}, true, nil
}

// findField scans forward for fieldID, skipping any lower-numbered field
// it passes over. A higher-numbered field is left pending for a later
// call, since fields are written in increasing id order.
func (d *Deserializer) findField(fieldID uint32) ([]byte, bool, error) {
	for {
		h, ok, err := d.readHeader()
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}
		if h.id == fieldID {
			d.pending = nil
			payload := make([]byte, h.length)
			if err := d.stream.ReadData(payload); err != nil {
				return nil, false, err
			}
			return payload, true, nil
		}
		if h.id > fieldID {
			d.pending = &h
			return nil, false, nil
		}
		d.pending = nil
		if err := d.stream.Skip(h.length); err != nil {
			return nil, false, err
		}
	}
}

// ReadProperty reads a required property. Missing it is an error.
func ReadProperty[T any](d *Deserializer, fieldID uint32, out *T) error {
	payload, ok, err := d.findField(fieldID)
	if err != nil {
		return err
	}
	if !ok {
		return util.Newf(util.KindMissingProperty, "missing required property %d", fieldID)
	}
	return decodeValue(payload, out)
}

// ReadPropertyWithDefault reads a property, filling out with def if it
// was omitted from the stream.
func ReadPropertyWithDefault[T any](d *Deserializer, fieldID uint32, out *T, def T) error {
	payload, ok, err := d.findField(fieldID)
	if err != nil {
		return err
	}
	if !ok {
		*out = def
		return nil
	}
	return decodeValue(payload, out)
}

func decodeValue[T any](payload []byte, out *T) error {
	switch p := any(out).(type) {
	case *bool:
		if len(payload) < 1 {
			return util.New(util.KindTypeMismatch, "bool property truncated")
		}
		*p = payload[0] != 0
	case *int32:
		if len(payload) < 4 {
			return util.New(util.KindTypeMismatch, "int32 property truncated")
		}
		*p = int32(binary.LittleEndian.Uint32(payload))
	case *uint32:
		if len(payload) < 4 {
			return util.New(util.KindTypeMismatch, "uint32 property truncated")
		}
		*p = binary.LittleEndian.Uint32(payload)
	case *int64:
		if len(payload) < 8 {
			return util.New(util.KindTypeMismatch, "int64 property truncated")
		}
		*p = int64(binary.LittleEndian.Uint64(payload))
	case *uint64:
		if len(payload) < 8 {
			return util.New(util.KindTypeMismatch, "uint64 property truncated")
		}
		*p = binary.LittleEndian.Uint64(payload)
	case *string:
		b, err := decodeBytesRaw(payload)
		if err != nil {
			return err
		}
		*p = string(b)
	case *[]byte:
		b, err := decodeBytesRaw(payload)
		if err != nil {
			return err
		}
		*p = b
	case *[]string:
		v, err := decodeStringSlice(payload)
		if err != nil {
			return err
		}
		*p = v
	default:
		return util.Newf(util.KindTypeMismatch, "deserializer: unsupported property type %T", out)
	}
	return nil
}

func decodeBytesRaw(payload []byte) ([]byte, error) {
	n, k := binary.Uvarint(payload)
	if k <= 0 {
		return nil, util.New(util.KindTypeMismatch, "invalid length prefix")
	}
	if int(n) > len(payload)-k {
		return nil, util.New(util.KindTypeMismatch, "length prefix exceeds payload")
	}
	out := make([]byte, n)
	copy(out, payload[k:k+int(n)])
	return out, nil
}

func decodeStringSlice(payload []byte) ([]string, error) {
	count, k := binary.Uvarint(payload)
	if k <= 0 {
		return nil, util.New(util.KindTypeMismatch, "invalid count prefix")
	}
	rest := payload[k:]
	out := make([]string, 0, count)
	for range int(count) {
		n, kk := binary.Uvarint(rest)
		if kk <= 0 {
			return nil, util.New(util.KindTypeMismatch, "invalid string length prefix")
		}
		rest = rest[kk:]
		if int(n) > len(rest) {
			return nil, util.New(util.KindTypeMismatch, "string length exceeds payload")
		}
		out = append(out, string(rest[:n]))
		rest = rest[n:]
	}
	return out, nil
}

// ReadObject reads a nested Record, allocated via factory. An absent
// field is not an error: it returns ok == false with a nil error.
func ReadObject[T Record](d *Deserializer, fieldID uint32, factory func() T) (T, bool, error) {
	var zero T
	payload, ok, err := d.findField(fieldID)
	if err != nil || !ok {
		return zero, ok, err
	}
	nested := NewDeserializer(newReadableStream(payload))
	obj := factory()
	if err := obj.DeserializeFields(nested); err != nil {
		return zero, false, err
	}
	return obj, true, nil
}

// ReadObjectWithDefault reads a nested Record, returning def (typically a
// nil pointer) if the field was omitted.
func ReadObjectWithDefault[T Record](d *Deserializer, fieldID uint32, factory func() T, def T) (T, error) {
	obj, ok, err := ReadObject(d, fieldID, factory)
	if err != nil {
		return def, err
	}
	if !ok {
		return def, nil
	}
	return obj, nil
}

// ReadObjectSlice reads a sequence of nested Records written by
// WriteObjectSlice. A missing field decodes as an empty, non-nil slice.
func ReadObjectSlice[T Record](d *Deserializer, fieldID uint32, factory func() T) ([]T, error) {
	payload, ok, err := d.findField(fieldID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []T{}, nil
	}

	count, k := binary.Uvarint(payload)
	if k <= 0 {
		return nil, util.New(util.KindTypeMismatch, "invalid object slice count")
	}
	rest := payload[k:]
	out := make([]T, 0, count)
	for range int(count) {
		length, kk := binary.Uvarint(rest)
		if kk <= 0 {
			return nil, util.New(util.KindTypeMismatch, "invalid object length prefix")
		}
		rest = rest[kk:]
		if int(length) > len(rest) {
			return nil, util.New(util.KindTypeMismatch, "object length exceeds payload")
		}
		obj := factory()
		nested := NewDeserializer(newReadableStream(rest[:length]))
		if err := obj.DeserializeFields(nested); err != nil {
			return nil, err
		}
		out = append(out, obj)
		rest = rest[length:]
	}
	return out, nil
}
