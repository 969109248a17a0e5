package store

import (
	"sort"
)

// KeyDir is the in-memory map of every live key to its current value. It is
// a cache of the log, rebuilt on open and changed only after an append.
type KeyDir struct {
	entries map[string][]byte
}

// NewKeyDir creates an empty key directory
func NewKeyDir() *KeyDir {
	return &KeyDir{
		entries: make(map[string][]byte),
	}
}

// Put stores a copy of value under key
func (kd *KeyDir) Put(key, value []byte) {
	kd.entries[string(key)] = append(make([]byte, 0, len(value)), value...)
}

// Get returns the stored value for key. The slice is owned by the KeyDir.
func (kd *KeyDir) Get(key []byte) ([]byte, bool) {
	value, exists := kd.entries[string(key)]
	return value, exists
}

// Delete removes key and reports whether it was present
func (kd *KeyDir) Delete(key []byte) bool {
	keyStr := string(key)
	if _, exists := kd.entries[keyStr]; !exists {
		return false
	}
	delete(kd.entries, keyStr)
	return true
}

// Apply replays one log entry: tombstones erase, live entries overwrite
func (kd *KeyDir) Apply(key, value []byte, deleted bool) {
	if deleted {
		delete(kd.entries, string(key))
		return
	}
	kd.Put(key, value)
}

// Len returns the number of live keys
func (kd *KeyDir) Len() int {
	return len(kd.entries)
}

// Clear removes all entries
func (kd *KeyDir) Clear() {
	kd.entries = make(map[string][]byte)
}

// Keys returns all keys in sorted order
func (kd *KeyDir) Keys() []string {
	keys := make([]string, 0, len(kd.entries))
	for key := range kd.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
