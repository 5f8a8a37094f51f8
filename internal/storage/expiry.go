package storage

import (
	"github.com/google/btree"
)

// expiryItem orders pending expirations by deadline, then key
type expiryItem struct {
	at  int64 // unix nanoseconds
	key string
}

func expiryLess(a, b expiryItem) bool {
	if a.at != b.at {
		return a.at < b.at
	}
	return a.key < b.key
}

// expiryIndex keeps every scheduled deadline twice: by key for lookups,
// and in a btree ordered by (deadline, key)
type expiryIndex struct {
	byKey map[string]int64
	tree  *btree.BTreeG[expiryItem]
}

func newExpiryIndex() *expiryIndex {
	return &expiryIndex{
		byKey: make(map[string]int64),
		tree:  btree.NewG(32, expiryLess),
	}
}

// deadline returns the scheduled expiration of key
func (x *expiryIndex) deadline(key string) (int64, bool) {
	at, ok := x.byKey[key]
	return at, ok
}

// schedule sets the deadline of key, dropping the previous one
func (x *expiryIndex) schedule(key string, at int64) {
	x.cancel(key)
	x.byKey[key] = at
	x.tree.ReplaceOrInsert(expiryItem{at: at, key: key})
}

// cancel removes the deadline of key, if any
func (x *expiryIndex) cancel(key string) {
	at, ok := x.byKey[key]
	if !ok {
		return
	}
	delete(x.byKey, key)
	x.tree.Delete(expiryItem{at: at, key: key})
}

func (x *expiryIndex) len() int {
	return x.tree.Len()
}
