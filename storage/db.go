package storage

import "fmt"

// DB is the generic key-value store interface. Get returns core.ErrNotFound
// for a missing key.
type DB interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	NewIterator(prefix []byte) Iterator
	NewBatch() Batch
	Close() error
}

// Iterator walks key-value pairs matching a prefix in key order.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Release()
	Error() error
}

// Batch buffers writes that are applied atomically by Write.
type Batch interface {
	Set(key, value []byte)
	Delete(key []byte)
	Write() error
}

// Open opens the backend named by kind ("leveldb" or "badger") at path.
func Open(kind, path string) (DB, error) {
	switch kind {
	case "", "leveldb":
		db, err := NewLevelDB(path)
		if err != nil {
			return nil, err
		}
		return db, nil
	case "badger":
		db, err := NewBadgerDB(path)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", kind)
	}
}
