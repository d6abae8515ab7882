package cache

import (
	"sync"
)

// Key is the string form of a task's input fingerprint. It is produced by an
// external collaborator, opaque to this package, and only used for equality
// and as a store key. Equal inputs are assumed to produce equal keys.
type Key string

// Store is an interface for a cache entry store.
// It stores and retrieves []byte values, which represent packed task
// outputs. Entries for the same key are assumed byte-identical (tasks are
// deterministic), so overwriting on Put is always safe and concurrent puts
// to the same key are not a conflict.
//
// Implementations must be thread-safe!
type Store interface {
	// Get returns the packed entry stored under the given key, if present.
	// A missing key is reported with the boolean, never as an error.
	Get(key Key) ([]byte, bool, error)
	// Put stores the packed entry under the given key,
	// overwriting any previous entry.
	// The entry must only become visible under the key once complete.
	Put(key Key, entry []byte) error
	// Keys calls the given callback for each stored key.
	Keys(cb func(Key))
}

type memEntry struct {
	bytes []byte
}

// MemStore keeps entries in process memory. Mainly useful for tests and
// ephemeral builds.
type MemStore struct {
	mutex *sync.RWMutex
	db    map[Key]memEntry
}

func NewMemStore() MemStore {
	return MemStore{
		mutex: &sync.RWMutex{},
		db:    make(map[Key]memEntry),
	}
}

func (m MemStore) Get(key Key) ([]byte, bool, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	entry, ok := m.db[key]
	if !ok {
		return nil, false, nil
	}
	return entry.bytes, true, nil
}

func (m MemStore) Put(key Key, entry []byte) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.db[key] = memEntry{entry}
	return nil
}

func (m MemStore) Keys(cb func(Key)) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	for key := range m.db {
		cb(key)
	}
}
