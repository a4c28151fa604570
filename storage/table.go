package storage

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"sort"
)

// Table is a string key/value store whose digest doesn't depend on insertion
// order. It is not thread-safe.
type Table struct {
	entries map[string]string
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{
		entries: make(map[string]string),
	}
}

// Put sets the value of key, replacing any previous one.
func (t *Table) Put(key, value string) {
	t.entries[key] = value
}

// Get returns the value of key.
func (t *Table) Get(key string) (string, bool) {
	value, ok := t.entries[key]
	return value, ok
}

// Del removes key.
func (t *Table) Del(key string) {
	delete(t.entries, key)
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return len(t.entries)
}

// Keys returns the sorted keys.
func (t *Table) Keys() []string {
	keys := make([]string, 0, len(t.entries))
	for k := range t.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Digest returns the SHA-256 digest of the sorted, length-prefixed entries.
func (t *Table) Digest() []byte {
	h := sha256.New()
	var size [8]byte

	for _, key := range t.Keys() {
		value := t.entries[key]

		binary.BigEndian.PutUint64(size[:], uint64(len(key)))
		h.Write(size[:])
		h.Write([]byte(key))

		binary.BigEndian.PutUint64(size[:], uint64(len(value)))
		h.Write(size[:])
		h.Write([]byte(value))
	}

	return h.Sum(nil)
}

// Matches tells if digest is the digest of this table.
func (t *Table) Matches(digest []byte) bool {
	return bytes.Equal(t.Digest(), digest)
}
