package sync

import (
	"encoding/binary"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
	"github.com/spaolacci/murmur3"
)

// ring is a consistent hash ring over a set of named entries
type ring[T any] struct {
	hashRing *treemap.Map

	// Cached since treemap.Map.Min() is O(log n)
	minEntryValue T
}

// newRing returns a new consistent hash ring where each entry is placed
// replicationFactor times
func newRing[T any](entries map[string]T, replicationFactor uint) *ring[T] {
	hashRing := treemap.NewWith(utils.Int64Comparator)
	for name, value := range entries {
		nameHash := make([]byte, 8)
		binary.LittleEndian.PutUint64(nameHash, uint64(hash(nil, []byte(name))))

		replica := make([]byte, 4)
		for i := uint32(0); i < uint32(replicationFactor); i++ {
			binary.LittleEndian.PutUint32(replica, i)
			hashRing.Put(hash(nameHash, replica), value)
		}
	}

	r := &ring[T]{hashRing: hashRing}
	if _, minEntryValue := hashRing.Min(); minEntryValue != nil {
		r.minEntryValue = minEntryValue.(T)
	}
	return r
}

// shard consistently hashes the key and returns the owning entry's value
func (r *ring[T]) shard(key []byte) T {
	_, value := r.hashRing.Ceiling(hash(nil, key))
	if value == nil {
		return r.minEntryValue
	}
	return value.(T)
}

func hash(parts ...[]byte) int64 {
	hasher := murmur3.New128()
	for _, part := range parts {
		hasher.Write(part)
	}
	raw, _ := hasher.Sum128()
	return int64(raw)
}
