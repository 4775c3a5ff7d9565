package store

import (
	"strings"
	"sync"
)

const keySep = ':'

// indexCollection prefixes every secondary index key.
const indexCollection = "idx"

// keyPool provides reusable byte slices for building lookup keys.
var keyPool = sync.Pool{
	New: func() any {
		// collection + two ids + separators fits comfortably
		return make([]byte, 0, 128)
	},
}

// buildKey joins a collection name and key parts with ':' using a pooled buffer.
// Callers MUST call releaseKey when done with the key.
//
// Usage:
//
//	key := buildKey(s.cols.Visits, userID, placeID)
//	defer releaseKey(key)
//	item, err := txn.Get(key)
func buildKey(collection string, parts ...string) []byte {
	buf, _ := keyPool.Get().([]byte)
	buf = buf[:0]
	buf = append(buf, collection...)
	for _, p := range parts {
		buf = append(buf, keySep)
		buf = append(buf, p...)
	}
	return buf
}

// releaseKey returns a key buffer to the pool for reuse.
// After calling this, the key slice must not be used.
func releaseKey(key []byte) {
	if cap(key) <= 512 {
		keyPool.Put(key[:0])
	}
}

// ownedKey builds a key that outlives the call, for use in transaction ops.
func ownedKey(collection string, parts ...string) []byte {
	return []byte(collection + string(keySep) + strings.Join(parts, string(keySep)))
}

// prefixKey is the scan prefix for every record under the given parts.
// "visit", "u1" -> "visit:u1:".
func prefixKey(collection string, parts ...string) []byte {
	return append(ownedKey(collection, parts...), keySep)
}

// indexKey builds a secondary index key: "idx:{collection}:{index}:{parts...}".
func indexKey(collection, index string, parts ...string) []byte {
	return ownedKey(indexCollection+string(keySep)+collection+string(keySep)+index, parts...)
}

// lastSegment returns the portion of key after prefix.
func lastSegment(key, prefix []byte) string {
	return string(key[len(prefix):])
}

// validID rejects identifiers that would corrupt the key layout.
func validID(ids ...string) error {
	for _, id := range ids {
		if id == "" || strings.ContainsRune(id, keySep) {
			return ErrInvalidInput.WithMessage("identifier must be non-empty and must not contain ':'")
		}
	}
	return nil
}
