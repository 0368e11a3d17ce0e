// Package sync provides keyed locking for in-process serialization.
package sync

import (
	"hash/fnv"
	"sync"
)

const defaultShards = 64

// ShardedMutex serializes work per key without a single global lock. Keys
// hashing to the same shard share a mutex, so holders must never lock a
// second key while holding one.
type ShardedMutex struct {
	shards []sync.Mutex
}

// NewShardedMutex creates a mutex with n shards; n < 1 uses the default.
func NewShardedMutex(n int) *ShardedMutex {
	if n < 1 {
		n = defaultShards
	}
	return &ShardedMutex{shards: make([]sync.Mutex, n)}
}

func (m *ShardedMutex) Lock(key string)   { m.shard(key).Lock() }
func (m *ShardedMutex) Unlock(key string) { m.shard(key).Unlock() }

// Do runs fn while holding key's shard.
func (m *ShardedMutex) Do(key string, fn func() error) error {
	mu := m.shard(key)
	mu.Lock()
	defer mu.Unlock()
	return fn()
}

func (m *ShardedMutex) shard(key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &m.shards[h.Sum32()%uint32(len(m.shards))]
}
