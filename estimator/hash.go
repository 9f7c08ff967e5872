package estimator

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// hash64 mixes a raw value for families that expect pre-hashed input.
func hash64(v uint64) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)

	return xxhash.Sum64(buf[:])
}
