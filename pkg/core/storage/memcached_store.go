package storage

import (
	"strings"
	"sync"
)

// MemCachedStore is a wrapper around a persistent store that caches all
// changes being made for them to be later flushed in one batch (or
// discarded, which gives cheap all-or-nothing transaction semantics to
// the layers above).
type MemCachedStore struct {
	mut sync.RWMutex
	// mem is the change overlay, a nil value marks a key deleted in this
	// layer.
	mem map[string][]byte

	// Persistent Store.
	ps Store
}

// NewMemCachedStore creates a new MemCachedStore object.
func NewMemCachedStore(lower Store) *MemCachedStore {
	return &MemCachedStore{
		mem: make(map[string][]byte),
		ps:  lower,
	}
}

// Get implements the Store interface.
func (s *MemCachedStore) Get(key []byte) ([]byte, error) {
	s.mut.RLock()
	defer s.mut.RUnlock()
	if val, ok := s.mem[string(key)]; ok {
		if val == nil {
			return nil, ErrKeyNotFound
		}
		return val, nil
	}
	return s.ps.Get(key)
}

// Put puts new KV pair into the store.
func (s *MemCachedStore) Put(key, value []byte) {
	newValue := make([]byte, len(value))
	copy(newValue, value)
	s.mut.Lock()
	s.mem[string(key)] = newValue
	s.mut.Unlock()
}

// Delete drops KV pair from the store. Never returns an error.
func (s *MemCachedStore) Delete(key []byte) {
	s.mut.Lock()
	s.mem[string(key)] = nil
	s.mut.Unlock()
}

// PutChangeSet implements the Store interface. Never returns an error.
func (s *MemCachedStore) PutChangeSet(puts map[string][]byte) error {
	s.mut.Lock()
	for k, v := range puts {
		s.mem[k] = v
	}
	s.mut.Unlock()
	return nil
}

// ChangeSet returns a copy of the accumulated change overlay (nil
// values are deletion markers).
func (s *MemCachedStore) ChangeSet() map[string][]byte {
	s.mut.RLock()
	defer s.mut.RUnlock()
	cs := make(map[string][]byte, len(s.mem))
	for k, v := range s.mem {
		cs[k] = v
	}
	return cs
}

// ChangeCount returns the number of accumulated changes.
func (s *MemCachedStore) ChangeCount() int {
	s.mut.RLock()
	defer s.mut.RUnlock()
	return len(s.mem)
}

// Seek implements the Store interface. It merges the change overlay with
// the lower layer maintaining the ordering guarantees of Store.Seek.
func (s *MemCachedStore) Seek(rng SeekRange, f func(k, v []byte) bool) {
	s.mut.RLock()
	defer s.mut.RUnlock()

	var (
		memRes  = s.overlayMatching(rng)
		i       = 0
		done    bool
		inOrder = func(a, b []byte) bool {
			cmp := strings.Compare(string(a), string(b))
			return cmp != 0 && rng.Backwards == (cmp > 0)
		}
	)
	s.ps.Seek(rng, func(k, v []byte) bool {
		// Flush overlay entries preceding the lower-layer key.
		for i < len(memRes) && inOrder(memRes[i].Key, k) {
			if memRes[i].Value != nil && !f(memRes[i].Key, memRes[i].Value) {
				done = true
				return false
			}
			i++
		}
		if i < len(memRes) && string(memRes[i].Key) == string(k) {
			// Overlay shadows the lower layer (changed or deleted key).
			kv := memRes[i]
			i++
			if kv.Value == nil {
				return true
			}
			k, v = kv.Key, kv.Value
		}
		if !f(k, v) {
			done = true
			return false
		}
		return true
	})
	for !done && i < len(memRes) {
		if memRes[i].Value != nil && !f(memRes[i].Key, memRes[i].Value) {
			break
		}
		i++
	}
}

// overlayMatching returns overlay entries (deletion markers included)
// matching the given range in its iteration order. It's supposed to be
// called with the mutex being held.
func (s *MemCachedStore) overlayMatching(rng SeekRange) []KeyValue {
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
		if isKeyOK(k) {
			res = append(res, KeyValue{Key: []byte(k), Value: v})
		}
	}
	sortKV(res, rng.Backwards)
	return res
}

// Persist flushes all the MemCachedStore contents into the (supposedly)
// persistent store ps. It returns the number of changes flushed.
func (s *MemCachedStore) Persist() (int, error) {
	s.mut.Lock()
	defer s.mut.Unlock()

	keys := len(s.mem)
	if keys == 0 {
		return 0, nil
	}
	err := s.ps.PutChangeSet(s.mem)
	if err != nil {
		return 0, err
	}
	s.mem = make(map[string][]byte)
	return keys, nil
}

// Discard drops all accumulated changes without persisting them.
func (s *MemCachedStore) Discard() {
	s.mut.Lock()
	s.mem = make(map[string][]byte)
	s.mut.Unlock()
}

// Close implements the Store interface, it closes the underlying store.
func (s *MemCachedStore) Close() error {
	return s.ps.Close()
}
