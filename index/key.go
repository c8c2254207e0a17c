// Package index implements an on-disk B+Tree keyed by a fixed-width
// index key, addressing PageId-addressable records. It is the natural
// external collaborator that exercises the buffer pool's guard discipline
// end-to-end; concurrent tree mutation correctness beyond guard release
// is out of scope.
package index

import (
	"bytes"

	"github.com/petrel-db/petrel/types"
)

// KeySize is the fixed width of every index key, chosen to comfortably
// hold a VARCHAR prefix while keeping leaf/internal pages narrow.
const KeySize = 16

// Key is a fixed-width, order-preserving encoding of a types.Value.
type Key [KeySize]byte

// KeyFromValue derives a Key from v, ready for insertion or lookup.
func KeyFromValue(v types.Value) Key {
	var k Key
	copy(k[:], v.IndexKeyBytes(KeySize))
	return k
}

// Compare returns -1, 0, or 1 as k is less than, equal to, or greater
// than other, under plain lexicographic byte comparison — correct
// because IndexKeyBytes produces order-preserving encodings.
func (k Key) Compare(other Key) int {
	return bytes.Compare(k[:], other[:])
}

func (k Key) Less(other Key) bool { return k.Compare(other) < 0 }
