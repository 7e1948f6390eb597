// Package chunk pairs a payload with the hash that addresses it.
package chunk

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/cbrewster/castore/internal/hash"
)

var ErrHashMismatch = errors.New("chunk hash does not match payload")

// Chunk is an immutable (hash, payload) pair. A Chunk built with New always
// satisfies hash == hash.Of(data); one built with NewWithHash is trusted as
// given and can be checked with Verify.
type Chunk struct {
	hash hash.Hash
	data []byte
}

func New(data []byte) Chunk {
	data = bytes.Clone(data)
	return Chunk{hash: hash.Of(data), data: data}
}

// NewWithHash builds a chunk from a known hash, such as one read back from a
// store.
func NewWithHash(h hash.Hash, data []byte) Chunk {
	return Chunk{hash: h, data: bytes.Clone(data)}
}

func (c Chunk) Hash() hash.Hash {
	return c.hash
}

// Data returns a copy of the payload.
func (c Chunk) Data() []byte {
	return bytes.Clone(c.data)
}

func (c Chunk) Size() int {
	return len(c.data)
}

// Verify recomputes the payload hash and compares it to the chunk's hash.
func (c Chunk) Verify() error {
	if got := hash.Of(c.data); got != c.hash {
		return fmt.Errorf("%w: have %s, payload hashes to %s", ErrHashMismatch, c.hash, got)
	}
	return nil
}

// WriteTo implements io.WriterTo.
func (c Chunk) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(c.data)
	return int64(n), err
}
