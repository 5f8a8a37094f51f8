package storage

import (
	"errors"
	"math/bits"

	"github.com/spaolacci/murmur3"
)

// ShardedMapStorage is a thread-safe key-value storage,
// divided into segments (shards) to reduce contention for locking
type ShardedMapStorage struct {
	shards    []*MapStorage
	shardMask uint32
}

// NewShardedMapStorage creates a new instance of ShardedMapStorage.
// The requestedShards parameter must be a power of two for efficient allocation.
// The maximum allowed number of shards is 64.
func NewShardedMapStorage(requestedShards uint) (*ShardedMapStorage, error) {
	if bits.OnesCount(requestedShards) != 1 {
		return nil, errors.New("requested shards must be a power of 2")
	}

	if requestedShards > 64 {
		return nil, errors.New("requested shards must be less or equal than 64")
	}

	s := &ShardedMapStorage{
		shards:    make([]*MapStorage, requestedShards),
		shardMask: uint32(requestedShards - 1),
	}

	for i := range s.shards {
		s.shards[i] = NewMapStorage()
	}

	return s, nil
}

// getShardIndex returns index of shard by key
func (s *ShardedMapStorage) getShardIndex(key string) uint32 {
	return murmur3.Sum32([]byte(key)) & s.shardMask
}

// Get returns the value and true if the key is found. Otherwise, "", false.
func (s *ShardedMapStorage) Get(key string) (string, bool) {
	return s.shards[s.getShardIndex(key)].Get(key)
}

// Set writes the value into the shard owning the key
func (s *ShardedMapStorage) Set(key, value string, options SetOptions) {
	s.shards[s.getShardIndex(key)].Set(key, value, options)
}

// Stats sums the counters of all shards. Shards are read one after another,
// so the result is not a single consistent snapshot
func (s *ShardedMapStorage) Stats() Stats {
	var total Stats
	for _, shard := range s.shards {
		st := shard.Stats()
		total.Keys += st.Keys
		total.Expires += st.Expires
		total.Evicted += st.Evicted
	}
	return total
}
