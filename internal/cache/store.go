package cache

// Store is the persisted tier. Implementations need not check expiry;
// the cache does that and deletes stale entries itself.
type Store interface {
	Get(hash string) (*Entry, bool, error)
	Put(e *Entry) error
	Delete(hash string) error
	// Keys returns hash and logical key of every stored entry
	Keys() ([]StoredKey, error)
	Clear() error
	Len() (int, error)
	Close() error
}

// StoredKey identifies a persisted entry
type StoredKey struct {
	Hash string
	Key  string
}
