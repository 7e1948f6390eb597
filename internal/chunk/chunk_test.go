package chunk_test

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/shoenig/test/must"

	"github.com/cbrewster/castore/internal/chunk"
	"github.com/cbrewster/castore/internal/hash"
)

func TestNew(t *testing.T) {
	data := []byte("abc")
	c := chunk.New(data)

	must.Eq(t, "rmnjb8cjc5tblj21ed4qs821649eduie", c.Hash().String())
	must.Eq(t, []byte("abc"), c.Data())
	must.Eq(t, 3, c.Size())
	must.NoError(t, c.Verify())

	// The chunk owns its payload.
	data[0] = 'x'
	must.Eq(t, []byte("abc"), c.Data())

	out := c.Data()
	out[0] = 'y'
	must.Eq(t, []byte("abc"), c.Data())
}

func TestNewEmpty(t *testing.T) {
	c := chunk.New(nil)
	must.Eq(t, hash.Of(nil), c.Hash())
	must.Eq(t, 0, c.Size())
	must.Eq(t, []byte{}, c.Data(), must.Cmp(cmpopts.EquateEmpty()))
	must.NoError(t, c.Verify())
}

func TestNewWithHash(t *testing.T) {
	h := hash.Of([]byte("abc"))

	c := chunk.NewWithHash(h, []byte("abc"))
	must.Eq(t, h, c.Hash())
	must.NoError(t, c.Verify())

	bad := chunk.NewWithHash(h, []byte("abd"))
	must.Eq(t, h, bad.Hash())
	must.ErrorIs(t, bad.Verify(), chunk.ErrHashMismatch)
}

func TestWriteTo(t *testing.T) {
	var buf bytes.Buffer
	n, err := chunk.New([]byte("hello world")).WriteTo(&buf)
	must.NoError(t, err)
	must.Eq(t, int64(11), n)
	must.Eq(t, "hello world", buf.String())
}
