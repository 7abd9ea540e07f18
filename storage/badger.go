package storage

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/whiskylabs/whisky-protocol-core-sub001/core"
)

// BadgerDB implements DB using Badger.
type BadgerDB struct {
	db *badger.DB
}

// NewBadgerDB opens (or creates) a Badger database at path.
func NewBadgerDB(path string) (*BadgerDB, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger %q: %w", path, err)
	}
	return &BadgerDB{db: db}, nil
}

// NewInMemoryBadgerDB opens a Badger instance that never touches disk.
func NewInMemoryBadgerDB() (*BadgerDB, error) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open in-memory badger: %w", err)
	}
	return &BadgerDB{db: db}, nil
}

func (b *BadgerDB) Get(key []byte) ([]byte, error) {
	var val []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, core.ErrNotFound
	}
	return val, err
}

func (b *BadgerDB) Set(key, value []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

func (b *BadgerDB) Delete(key []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

// NewIterator snapshots the matching pairs inside a read transaction, so the
// returned iterator holds no Badger resources.
func (b *BadgerDB) NewIterator(prefix []byte) Iterator {
	it := &sliceIter{idx: -1}
	it.err = b.db.View(func(txn *badger.Txn) error {
		bi := txn.NewIterator(badger.DefaultIteratorOptions)
		defer bi.Close()
		for bi.Seek(prefix); bi.ValidForPrefix(prefix); bi.Next() {
			item := bi.Item()
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			it.pairs = append(it.pairs, kvPair{k: item.KeyCopy(nil), v: v})
		}
		return nil
	})
	return it
}

func (b *BadgerDB) NewBatch() Batch {
	return &badgerBatch{db: b.db}
}

func (b *BadgerDB) Close() error {
	return b.db.Close()
}

type badgerOp struct {
	key, value []byte
	del        bool
}

// badgerBatch applies all buffered operations in one read-write transaction.
type badgerBatch struct {
	db  *badger.DB
	ops []badgerOp
}

func (b *badgerBatch) Set(key, value []byte) {
	b.ops = append(b.ops, badgerOp{key: key, value: value})
}

func (b *badgerBatch) Delete(key []byte) {
	b.ops = append(b.ops, badgerOp{key: key, del: true})
}

func (b *badgerBatch) Write() error {
	return b.db.Update(func(txn *badger.Txn) error {
		for _, op := range b.ops {
			var err error
			if op.del {
				err = txn.Delete(op.key)
			} else {
				err = txn.Set(op.key, op.value)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

type kvPair struct{ k, v []byte }

// sliceIter iterates over materialised pairs.
type sliceIter struct {
	pairs []kvPair
	idx   int
	err   error
}

func (it *sliceIter) Next() bool {
	if it.err != nil {
		return false
	}
	it.idx++
	return it.idx < len(it.pairs)
}

func (it *sliceIter) Key() []byte   { return it.pairs[it.idx].k }
func (it *sliceIter) Value() []byte { return it.pairs[it.idx].v }
func (it *sliceIter) Release()      {}
func (it *sliceIter) Error() error  { return it.err }
