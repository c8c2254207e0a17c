package util

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/vmihailenco/msgpack"
)

// ExportSnapshot encodes obj as a checksummed msgpack blob suitable for
// backup or debugging. This is a secondary, human-portable encoding: the
// durable on-page format for catalog records is the property-tagged
// binary serializer, never this. A snapshot is [8-byte LE xxhash of the
// payload][msgpack payload].
func ExportSnapshot[T any](obj T) ([]byte, error) {
	payload, err := msgpack.Marshal(obj)
	if err != nil {
		return nil, err
	}

	sum := xxhash.Sum64(payload)
	out := make([]byte, 8+len(payload))
	binary.LittleEndian.PutUint64(out[:8], sum)
	copy(out[8:], payload)

	return out, nil
}

// ImportSnapshot verifies the checksum written by ExportSnapshot and
// decodes the payload into a T. A checksum mismatch signals corruption
// and is reported rather than silently ignored.
func ImportSnapshot[T any](data []byte) (T, error) {
	var res T

	if len(data) < 8 {
		return res, fmt.Errorf("snapshot too short: %d bytes", len(data))
	}

	want := binary.LittleEndian.Uint64(data[:8])
	payload := data[8:]
	if got := xxhash.Sum64(payload); got != want {
		return res, fmt.Errorf("snapshot checksum mismatch: want %x got %x", want, got)
	}

	if err := msgpack.Unmarshal(payload, &res); err != nil {
		return res, err
	}

	return res, nil
}
