// Package serializer implements the field-id-tagged binary encoding used
// to persist catalog and index metadata: an in-memory byte stream plus a
// Serializer/Deserializer pair that write and read length-prefixed
// properties, tolerating fields a reader does not recognize.
package serializer

import (
	"io"

	"github.com/petrel-db/petrel/util"
)

const defaultStreamCapacity = 512

// MemoryStream is the backing byte buffer for serialization. An owning
// stream grows geometrically as data is written; a borrowed stream wraps
// a caller-supplied buffer and reports CapacityExceeded instead of
// growing past it.
type MemoryStream struct {
	data     []byte
	position int
	size     int // high-water mark of valid written/readable bytes
	owns     bool
}

// NewMemoryStream creates an owning stream with the given initial
// capacity (or a package default if capacity <= 0).
func NewMemoryStream(capacity int) *MemoryStream {
	if capacity <= 0 {
		capacity = defaultStreamCapacity
	}
	return &MemoryStream{data: make([]byte, capacity), owns: true}
}

// NewBorrowedMemoryStream wraps buf without taking ownership of it. Writes
// that would exceed len(buf) fail rather than reallocating.
func NewBorrowedMemoryStream(buf []byte) *MemoryStream {
	return &MemoryStream{data: buf, owns: false}
}

// NewReadableStream wraps buf as a fully-valid, read-only region: every
// byte of buf is treated as already written. Used both to bound a nested
// object's fields to the length its parent recorded for it, and by
// callers deserializing a raw page or file buffer that was never built up
// through WriteData (e.g. a page fetched from the buffer pool).
func NewReadableStream(buf []byte) *MemoryStream {
	return &MemoryStream{data: buf, size: len(buf), owns: false}
}

func newReadableStream(buf []byte) *MemoryStream { return NewReadableStream(buf) }

func (s *MemoryStream) ensure(n int) error {
	need := s.position + n
	if need <= len(s.data) {
		return nil
	}
	if !s.owns {
		return util.Newf(util.KindCapacityExceeded, "write of %d bytes exceeds borrowed capacity %d", n, len(s.data)-s.position)
	}
	newCap := len(s.data) * 2
	if newCap < need {
		newCap = need
	}
	grown := make([]byte, newCap)
	copy(grown, s.data)
	s.data = grown
	return nil
}

// WriteData appends buf at the current position, advancing it.
func (s *MemoryStream) WriteData(buf []byte) error {
	if err := s.ensure(len(buf)); err != nil {
		return err
	}
	copy(s.data[s.position:], buf)
	s.position += len(buf)
	if s.position > s.size {
		s.size = s.position
	}
	return nil
}

// ReadData copies len(buf) bytes from the current position into buf,
// advancing it. Fails if fewer than len(buf) valid bytes remain.
func (s *MemoryStream) ReadData(buf []byte) error {
	if s.position+len(buf) > s.size {
		return util.Newf(util.KindCapacityExceeded, "read of %d bytes exceeds %d bytes available", len(buf), s.size-s.position)
	}
	copy(buf, s.data[s.position:s.position+len(buf)])
	s.position += len(buf)
	return nil
}

// ReadByte implements io.ByteReader so header varints can be decoded with
// encoding/binary.ReadUvarint.
func (s *MemoryStream) ReadByte() (byte, error) {
	if s.position >= s.size {
		return 0, io.EOF
	}
	b := s.data[s.position]
	s.position++
	return b, nil
}

// Skip advances the position by n bytes without copying them out.
func (s *MemoryStream) Skip(n int) error {
	if s.position+n > s.size {
		return util.Newf(util.KindCapacityExceeded, "skip of %d bytes exceeds %d bytes available", n, s.size-s.position)
	}
	s.position += n
	return nil
}

// Rewind resets the position to the start, keeping the backing buffer and
// its written contents intact.
func (s *MemoryStream) Rewind() {
	s.position = 0
}

// Release turns an owning stream into a borrowed one. The caller becomes
// responsible for the backing buffer; the stream will no longer resize it.
func (s *MemoryStream) Release() {
	s.owns = false
}

// Data returns the backing buffer. Only the first Len() bytes are valid.
func (s *MemoryStream) Data() []byte { return s.data }

// Position returns the current read/write cursor.
func (s *MemoryStream) Position() int { return s.position }

// Len returns the high-water mark of bytes written to the stream.
func (s *MemoryStream) Len() int { return s.size }

// Capacity returns the size of the backing buffer.
func (s *MemoryStream) Capacity() int { return len(s.data) }
