package storage

import (
	"sort"
	"strings"
)

// sortKV sorts the given key-value set in the Seek iteration order
// (ascending or descending by key).
func sortKV(kvs []KeyValue, backwards bool) {
	sort.Slice(kvs, func(i, j int) bool {
		cmp := strings.Compare(string(kvs[i].Key), string(kvs[j].Key))
		return cmp != 0 && backwards == (cmp > 0)
	})
}

// AppendPrefix appends byteslice b to the given KeyPrefix.
func AppendPrefix(k KeyPrefix, b []byte) []byte {
	dest := make([]byte, 0, 1+len(b))
	dest = append(dest, byte(k))
	return append(dest, b...)
}
