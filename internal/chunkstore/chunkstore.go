// Package chunkstore defines storage for content-addressed chunks.
//
// A Store persists chunk payloads keyed by their hash. Writes are atomic: a
// failed Put leaves the store as it was before the call. Stores never retry
// and never log; every failure is returned to the caller.
package chunkstore

import (
	"errors"
	"fmt"
	"time"

	"github.com/cbrewster/castore/internal/chunk"
	"github.com/cbrewster/castore/internal/hash"
)

var (
	ErrNotExist = errors.New("chunk does not exist")
	ErrClosed   = errors.New("chunk store closed")
	// ErrOpen wraps failures to open or create the backing storage.
	ErrOpen = errors.New("open chunk store")
	// ErrTransaction wraps failures to begin, write or commit a transaction.
	ErrTransaction = errors.New("chunk store transaction")
	ErrReadOnly    = errors.New("chunk store is read-only")
)

type Store interface {
	// Put stores c under its hash, overwriting any existing entry.
	Put(c chunk.Chunk) error
	// PutMany stores chunks as a single write. See the backend for the
	// atomicity it provides across chunks.
	PutMany(chunks []chunk.Chunk) error
	// Get returns the chunk stored under h, or ErrNotExist.
	Get(h hash.Hash) (chunk.Chunk, error)
	Has(h hash.Hash) (bool, error)
	// Delete removes the chunk stored under h, or returns ErrNotExist.
	Delete(h hash.Hash) error
	Close() error
}

type Options struct {
	// Verify recomputes each chunk's hash on write and rejects chunks whose
	// hash does not match their payload with chunk.ErrHashMismatch.
	Verify bool
	// Timeout bounds how long opening waits for another process holding the
	// backing file. Zero waits indefinitely.
	Timeout time.Duration
	// NoSync skips fsync on commit. Only useful for tests and bulk loads.
	NoSync bool
	// ReadOnly opens existing storage without creating it. Writes fail with
	// ErrTransaction.
	ReadOnly bool
}

// Check validates chunks against opts before anything is written.
func (o Options) Check(chunks ...chunk.Chunk) error {
	if !o.Verify {
		return nil
	}
	for _, c := range chunks {
		if err := c.Verify(); err != nil {
			return err
		}
	}
	return nil
}

// OpenError wraps err as a failure to open the store.
func OpenError(msg string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrOpen, msg, err)
}

// TxError wraps err as a transaction failure.
func TxError(msg string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrTransaction, msg, err)
}
