package serializer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bar struct {
	b   uint32
	vec []string
}

func (r *bar) SerializeFields(s *Serializer) error {
	if err := WriteProperty(s, 1, r.b); err != nil {
		return err
	}
	return WritePropertyWithDefault(s, 2, r.vec, []string(nil))
}

func (r *bar) DeserializeFields(d *Deserializer) error {
	if err := ReadProperty(d, 1, &r.b); err != nil {
		return err
	}
	return ReadPropertyWithDefault(d, 2, &r.vec, []string(nil))
}

type foo struct {
	a   int32
	bar *bar
	c   int32
}

func (r *foo) SerializeFields(s *Serializer) error {
	if err := WriteProperty(s, 1, r.a); err != nil {
		return err
	}
	if err := WriteObjectWithDefault[*bar](s, 2, r.bar, nil); err != nil {
		return err
	}
	return WriteProperty(s, 3, r.c)
}

func (r *foo) DeserializeFields(d *Deserializer) error {
	if err := ReadProperty(d, 1, &r.a); err != nil {
		return err
	}
	b, err := ReadObjectWithDefault[*bar](d, 2, func() *bar { return &bar{} }, nil)
	if err != nil {
		return err
	}
	r.bar = b
	return ReadProperty(d, 3, &r.c)
}

func TestSerializer_RoundTripWithNestedObject(t *testing.T) {
	in := &foo{
		a:   42,
		bar: &bar{b: 43, vec: []string{"a", "b", "c", "d", "e"}},
		c:   44,
	}

	stream := NewMemoryStream(0)
	require.NoError(t, Serialize(stream, in))
	pos1 := stream.Position()
	stream.Rewind()

	out, err := Deserialize(stream, func() *foo { return &foo{} })
	require.NoError(t, err)

	assert.Equal(t, in.a, out.a)
	require.NotNil(t, out.bar)
	assert.Equal(t, in.bar.b, out.bar.b)
	assert.Equal(t, in.bar.vec, out.bar.vec)
	assert.Equal(t, in.c, out.c)

	in.bar = nil
	stream.Rewind()
	require.NoError(t, Serialize(stream, in))
	pos2 := stream.Position()
	stream.Rewind()

	out2, err := Deserialize(stream, func() *foo { return &foo{} })
	require.NoError(t, err)
	assert.Equal(t, in.a, out2.a)
	assert.Nil(t, out2.bar)
	assert.Equal(t, in.c, out2.c)

	assert.Greater(t, pos1, pos2, "omitting the default nested field should shorten the stream")
}

func TestSerializer_RequiredPropertyMissingIsAnError(t *testing.T) {
	stream := NewMemoryStream(0)
	s := NewSerializer(stream)
	require.NoError(t, WriteProperty(s, 3, int32(7)))
	stream.Rewind()

	d := NewDeserializer(stream)
	var v int32
	err := ReadProperty(d, 1, &v)
	assert.Error(t, err)
}

func TestSerializer_UnknownFieldIsSkipped(t *testing.T) {
	stream := NewMemoryStream(0)
	s := NewSerializer(stream)
	require.NoError(t, WriteProperty(s, 1, int32(1)))
	require.NoError(t, WriteProperty(s, 2, "unrecognized-by-old-reader"))
	require.NoError(t, WriteProperty(s, 3, int32(3)))
	stream.Rewind()

	d := NewDeserializer(stream)
	var a, c int32
	require.NoError(t, ReadProperty(d, 1, &a))
	require.NoError(t, ReadProperty(d, 3, &c))
	assert.Equal(t, int32(1), a)
	assert.Equal(t, int32(3), c)
}

func TestMemoryStream_BorrowedRejectsOverflow(t *testing.T) {
	buf := make([]byte, 2)
	stream := NewBorrowedMemoryStream(buf)
	err := stream.WriteData([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestMemoryStream_Release(t *testing.T) {
	stream := NewMemoryStream(1)
	stream.Release()
	err := stream.WriteData(make([]byte, 64))
	assert.Error(t, err)
}
