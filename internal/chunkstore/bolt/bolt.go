// Package bolt implements chunkstore.Store on a single bbolt file.
//
// Chunks live in one bucket keyed by the raw 20 byte hash, with the raw
// payload as the value.
package bolt

import (
	"bytes"
	"fmt"
	"os"
	"sync/atomic"

	"go.etcd.io/bbolt"

	"github.com/cbrewster/castore/internal/chunk"
	"github.com/cbrewster/castore/internal/chunkstore"
	"github.com/cbrewster/castore/internal/hash"
)

// chunksBucketName is the bolt bucket holding every chunk.
var chunksBucketName = []byte("chunks")

type store struct {
	db     *bbolt.DB
	opts   chunkstore.Options
	closed atomic.Bool
}

var _ chunkstore.Store = (*store)(nil)

// New opens the bolt file at path, creating it if needed. With
// opts.ReadOnly the file must already exist and writes are refused by bolt.
func New(path string, opts chunkstore.Options) (chunkstore.Store, error) {
	if opts.ReadOnly {
		// bolt creates missing files even when opened read-only.
		_, err := os.Stat(path)
		if err != nil {
			return nil, chunkstore.OpenError("stat bolt db", err)
		}
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{
		Timeout:  opts.Timeout,
		NoSync:   opts.NoSync,
		ReadOnly: opts.ReadOnly,
	})
	if err != nil {
		return nil, chunkstore.OpenError("open bolt db", err)
	}
	if opts.ReadOnly {
		return &store{db: db, opts: opts}, nil
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(chunksBucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, chunkstore.OpenError("create chunks bucket", err)
	}

	return &store{db: db, opts: opts}, nil
}

// Put implements chunkstore.Store.
func (s *store) Put(c chunk.Chunk) error {
	return s.PutMany([]chunk.Chunk{c})
}

// PutMany implements chunkstore.Store. All chunks are committed in one
// transaction; if any write fails none of them are stored.
func (s *store) PutMany(chunks []chunk.Chunk) error {
	if s.closed.Load() {
		return chunkstore.ErrClosed
	}

	err := s.opts.Check(chunks...)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin(true)
	if err != nil {
		return chunkstore.TxError("begin db tx", err)
	}
	defer tx.Rollback()

	b, err := tx.CreateBucketIfNotExists(chunksBucketName)
	if err != nil {
		return chunkstore.TxError("create chunks bucket", err)
	}

	for _, c := range chunks {
		h := c.Hash()
		err = b.Put(h[:], c.Data())
		if err != nil {
			return chunkstore.TxError(fmt.Sprintf("put chunk %s", h), err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return chunkstore.TxError("commit put chunks", err)
	}

	return nil
}

// lookup returns the value stored under h. A cursor is used so that empty
// payloads are told apart from missing keys.
func lookup(tx *bbolt.Tx, h hash.Hash) ([]byte, bool) {
	b := tx.Bucket(chunksBucketName)
	if b == nil {
		return nil, false
	}

	k, v := b.Cursor().Seek(h[:])
	if !bytes.Equal(k, h[:]) {
		return nil, false
	}
	return v, true
}

// Get implements chunkstore.Store.
func (s *store) Get(h hash.Hash) (chunk.Chunk, error) {
	if s.closed.Load() {
		return chunk.Chunk{}, chunkstore.ErrClosed
	}

	tx, err := s.db.Begin(false)
	if err != nil {
		return chunk.Chunk{}, chunkstore.TxError("begin db tx", err)
	}
	defer tx.Rollback()

	data, ok := lookup(tx, h)
	if !ok {
		return chunk.Chunk{}, fmt.Errorf("%w: %s", chunkstore.ErrNotExist, h)
	}

	// NewWithHash copies data out of the mmap before the tx is released.
	return chunk.NewWithHash(h, data), nil
}

// Has implements chunkstore.Store.
func (s *store) Has(h hash.Hash) (bool, error) {
	if s.closed.Load() {
		return false, chunkstore.ErrClosed
	}

	tx, err := s.db.Begin(false)
	if err != nil {
		return false, chunkstore.TxError("begin db tx", err)
	}
	defer tx.Rollback()

	_, ok := lookup(tx, h)
	return ok, nil
}

// Delete implements chunkstore.Store.
func (s *store) Delete(h hash.Hash) error {
	if s.closed.Load() {
		return chunkstore.ErrClosed
	}

	tx, err := s.db.Begin(true)
	if err != nil {
		return chunkstore.TxError("begin db tx", err)
	}
	defer tx.Rollback()

	if _, ok := lookup(tx, h); !ok {
		return fmt.Errorf("%w: %s", chunkstore.ErrNotExist, h)
	}

	err = tx.Bucket(chunksBucketName).Delete(h[:])
	if err != nil {
		return chunkstore.TxError("delete chunk", err)
	}

	err = tx.Commit()
	if err != nil {
		return chunkstore.TxError("commit delete chunk", err)
	}

	return nil
}

// Close implements chunkstore.Store.
func (s *store) Close() error {
	if s.closed.Swap(true) {
		return chunkstore.ErrClosed
	}

	err := s.db.Close()
	if err != nil {
		return fmt.Errorf("close bolt db: %w", err)
	}
	return nil
}
