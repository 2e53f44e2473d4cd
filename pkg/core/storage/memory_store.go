package storage

import (
	"strings"
	"sync"
)

// MemoryStore is an in-memory implementation of a Store, mainly
// used for testing. Do not use MemoryStore in production.
type MemoryStore struct {
	mut sync.RWMutex
	mem map[string][]byte
}

// NewMemoryStore creates a new MemoryStore object.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		mem: make(map[string][]byte),
	}
}

// Get implements the Store interface.
func (s *MemoryStore) Get(key []byte) ([]byte, error) {
	s.mut.RLock()
	defer s.mut.RUnlock()
	if val, ok := s.mem[string(key)]; ok && val != nil {
		return val, nil
	}
	return nil, ErrKeyNotFound
}

// put puts a key-value pair into the store, it's supposed to be called
// with mutex locked.
func (s *MemoryStore) put(key string, value []byte) {
	s.mem[key] = value
}

// drop deletes a key-value pair from the store, it's supposed to be
// called with mutex locked.
func (s *MemoryStore) drop(key string) {
	delete(s.mem, key)
}

// Put stores the given key-value pair, it's only used for testing and
// store preparation, the production write path is PutChangeSet.
func (s *MemoryStore) Put(key, value []byte) error {
	s.mut.Lock()
	s.put(string(key), value)
	s.mut.Unlock()
	return nil
}

// Delete removes the given key, see Put for intended usage.
func (s *MemoryStore) Delete(key []byte) error {
	s.mut.Lock()
	s.drop(string(key))
	s.mut.Unlock()
	return nil
}

// PutChangeSet implements the Store interface. Never returns an error.
func (s *MemoryStore) PutChangeSet(puts map[string][]byte) error {
	s.mut.Lock()
	for k, v := range puts {
		if v != nil {
			s.put(k, v)
		} else {
			s.drop(k)
		}
	}
	s.mut.Unlock()
	return nil
}

// Seek implements the Store interface.
func (s *MemoryStore) Seek(rng SeekRange, f func(k, v []byte) bool) {
	s.mut.RLock()
	defer s.mut.RUnlock()
	s.seek(rng, f)
}

// seek is an internal unlocked implementation of Seek.
func (s *MemoryStore) seek(rng SeekRange, f func(k, v []byte) bool) {
	memList := s.matching(rng)
	for _, kv := range memList {
		if !f(kv.Key, kv.Value) {
			break
		}
	}
}

// KeyValue represents a key-value pair.
type KeyValue struct {
	Key   []byte
	Value []byte
}

// matching returns store contents matching the given range ordered
// according to its direction. It's supposed to be called with the mutex
// being held.
func (s *MemoryStore) matching(rng SeekRange) []KeyValue {
	var (
		sPrefix = string(rng.Prefix)
		lPrefix = len(sPrefix)
		sStart  = string(rng.Start)
		lStart  = len(sStart)
		res     []KeyValue
	)
	isKeyOK := func(key string) bool {
		return strings.HasPrefix(key, sPrefix) && (lStart == 0 || strings.Compare(key[lPrefix:], sStart) >= 0)
	}
	if rng.Backwards {
		isKeyOK = func(key string) bool {
			return strings.HasPrefix(key, sPrefix) && (lStart == 0 || strings.Compare(key[lPrefix:], sStart) <= 0)
		}
	}
	for k, v := range s.mem {
		if v != nil && isKeyOK(k) {
			res = append(res, KeyValue{Key: []byte(k), Value: v})
		}
	}
	sortKV(res, rng.Backwards)
	return res
}

// Close implements the Store interface and clears up memory. Never returns
// an error.
func (s *MemoryStore) Close() error {
	s.mut.Lock()
	s.mem = nil
	s.mut.Unlock()
	return nil
}
