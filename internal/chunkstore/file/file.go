// Package file implements chunkstore.Store as one file per chunk under a
// directory.
package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/cbrewster/castore/internal/chunk"
	"github.com/cbrewster/castore/internal/chunkstore"
	"github.com/cbrewster/castore/internal/hash"
)

// chunkPath fans chunks out by the first two characters of their text hash.
func chunkPath(storeDir string, h hash.Hash) string {
	name := h.String()
	return filepath.Join(storeDir, "chunks", name[:2], name)
}

type store struct {
	dir    string
	opts   chunkstore.Options
	closed atomic.Bool
}

var _ chunkstore.Store = (*store)(nil)

// New opens the store rooted at dir, creating it if needed. With
// opts.ReadOnly the directory must already exist.
func New(dir string, opts chunkstore.Options) (chunkstore.Store, error) {
	if opts.ReadOnly {
		_, err := os.Stat(dir)
		if err != nil {
			return nil, chunkstore.OpenError("stat chunk dir", err)
		}
		return &store{dir: dir, opts: opts}, nil
	}

	err := os.MkdirAll(filepath.Join(dir, "uploads"), 0755)
	if err != nil {
		return nil, chunkstore.OpenError("make chunk dir", err)
	}

	return &store{dir: dir, opts: opts}, nil
}

// Put implements chunkstore.Store. The payload is written to a temporary
// file and renamed into place, so a chunk is either fully present or absent.
func (s *store) Put(c chunk.Chunk) error {
	return s.PutMany([]chunk.Chunk{c})
}

// PutMany implements chunkstore.Store. Every chunk is verified before any is
// written, but each write commits on its own: a failure part way through
// leaves the earlier chunks stored.
func (s *store) PutMany(chunks []chunk.Chunk) error {
	if s.closed.Load() {
		return chunkstore.ErrClosed
	}
	if s.opts.ReadOnly {
		return chunkstore.TxError("put chunk", chunkstore.ErrReadOnly)
	}

	err := s.opts.Check(chunks...)
	if err != nil {
		return err
	}

	for _, c := range chunks {
		err = s.put(c)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *store) put(c chunk.Chunk) error {
	file, err := os.CreateTemp(filepath.Join(s.dir, "uploads"), "partial-*")
	if err != nil {
		return chunkstore.TxError("create file", err)
	}
	defer os.Remove(file.Name())

	_, err = c.WriteTo(file)
	if err != nil {
		file.Close()
		return chunkstore.TxError("write chunk", err)
	}

	if !s.opts.NoSync {
		err = file.Sync()
		if err != nil {
			file.Close()
			return chunkstore.TxError("sync file", err)
		}
	}

	err = file.Close()
	if err != nil {
		return chunkstore.TxError("close file", err)
	}

	dest := chunkPath(s.dir, c.Hash())
	err = os.MkdirAll(filepath.Dir(dest), 0755)
	if err != nil {
		return chunkstore.TxError("make chunk dir", err)
	}

	err = os.Rename(file.Name(), dest)
	if err != nil {
		return chunkstore.TxError("rename chunk", err)
	}

	return nil
}

// Get implements chunkstore.Store.
func (s *store) Get(h hash.Hash) (chunk.Chunk, error) {
	if s.closed.Load() {
		return chunk.Chunk{}, chunkstore.ErrClosed
	}

	data, err := os.ReadFile(chunkPath(s.dir, h))
	if errors.Is(err, fs.ErrNotExist) {
		return chunk.Chunk{}, fmt.Errorf("%w: %s", chunkstore.ErrNotExist, h)
	}
	if err != nil {
		return chunk.Chunk{}, chunkstore.TxError("read chunk", err)
	}

	return chunk.NewWithHash(h, data), nil
}

// Has implements chunkstore.Store.
func (s *store) Has(h hash.Hash) (bool, error) {
	if s.closed.Load() {
		return false, chunkstore.ErrClosed
	}

	_, err := os.Stat(chunkPath(s.dir, h))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, chunkstore.TxError("stat chunk", err)
	}
	return true, nil
}

// Delete implements chunkstore.Store.
func (s *store) Delete(h hash.Hash) error {
	if s.closed.Load() {
		return chunkstore.ErrClosed
	}
	if s.opts.ReadOnly {
		return chunkstore.TxError("remove chunk", chunkstore.ErrReadOnly)
	}

	err := os.Remove(chunkPath(s.dir, h))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", chunkstore.ErrNotExist, h)
	}
	if err != nil {
		return chunkstore.TxError("remove chunk", err)
	}
	return nil
}

// Close implements chunkstore.Store.
func (s *store) Close() error {
	if s.closed.Swap(true) {
		return chunkstore.ErrClosed
	}
	return nil
}
