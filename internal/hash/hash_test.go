package hash_test

import (
	"bytes"
	"encoding/json"
	"math/rand"
	"strings"
	"testing"

	"github.com/shoenig/test/must"

	"github.com/cbrewster/castore/internal/hash"
)

const abcHash = "rmnjb8cjc5tblj21ed4qs821649eduie"

const alphabet = "0123456789abcdefghijklmnopqrstuv"

func TestEmpty(t *testing.T) {
	var h hash.Hash
	must.True(t, h.IsEmpty())
	must.Eq(t, hash.Empty, h)
	must.Eq(t, "00000000000000000000000000000000", h.String())

	parsed, err := hash.Parse(strings.Repeat("0", hash.StringLen))
	must.NoError(t, err)
	must.True(t, parsed.IsEmpty())
}

func TestOf(t *testing.T) {
	h := hash.Of([]byte("abc"))
	must.False(t, h.IsEmpty())
	must.Eq(t, abcHash, h.String())
	must.Eq(t, h, hash.Of([]byte("abc")))
	must.NotEq(t, h, hash.Of([]byte("abd")))

	parsed, err := hash.Parse(abcHash)
	must.NoError(t, err)
	must.Eq(t, h, parsed)

	// Empty input is hashed like any other.
	must.False(t, hash.Of(nil).IsEmpty())
	must.Eq(t, hash.Of(nil), hash.Of([]byte{}))
}

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 1000; i++ {
		var h hash.Hash
		rng.Read(h[:])

		s := h.String()
		must.Eq(t, hash.StringLen, len(s))

		parsed, err := hash.Parse(s)
		must.NoError(t, err)
		must.Eq(t, h, parsed)
	}

	for i := 0; i < 1000; i++ {
		var sb strings.Builder
		for j := 0; j < hash.StringLen; j++ {
			sb.WriteByte(alphabet[rng.Intn(len(alphabet))])
		}
		s := sb.String()

		parsed, err := hash.Parse(s)
		must.NoError(t, err)
		must.Eq(t, s, parsed.String())
	}
}

func TestParseInvalid(t *testing.T) {
	for _, s := range []string{
		"",
		"0",
		abcHash[:31],
		abcHash + "0",
		strings.ToUpper(abcHash),
		"rmnjb8cjc5tblj21ed4qs821649eduiw",
		"rmnjb8cjc5tblj21ed4qs821649edui=",
		"rmnjb8cjc5tblj21ed4qs821649edu\ne",
		"rmnjb8cjc5tblj21ed4qs82164\r\nduie",
		"rmnjb8cjc5tblj21ed4qs821649edui\x00",
		"rmnjb8cjc5tblj21ed4qs821649edué",
	} {
		_, err := hash.Parse(s)
		must.ErrorIs(t, err, hash.ErrInvalidEncoding, must.Sprintf("input %q", s))
	}
}

func TestOrderPreserving(t *testing.T) {
	rng := rand.New(rand.NewSource(2))

	for i := 0; i < 1000; i++ {
		var a, b hash.Hash
		rng.Read(a[:])
		copy(b[:], a[:])
		// Differ late in the digest half of the time, to exercise shared prefixes.
		idx := rng.Intn(hash.ByteLen)
		if i%2 == 0 {
			idx = hash.ByteLen - 1
		}
		b[idx] = byte(rng.Intn(256))

		byteCmp := bytes.Compare(a[:], b[:])
		must.Eq(t, byteCmp, a.Compare(b))
		must.Eq(t, byteCmp, strings.Compare(a.String(), b.String()))
	}
}

func TestFromBytes(t *testing.T) {
	h := hash.Of([]byte("abc"))

	got, err := hash.FromBytes(h.Bytes())
	must.NoError(t, err)
	must.Eq(t, h, got)

	_, err = hash.FromBytes(h.Bytes()[:19])
	must.ErrorIs(t, err, hash.ErrInvalidLength)

	// Bytes returns a copy.
	raw := h.Bytes()
	raw[0] ^= 0xff
	must.Eq(t, abcHash, h.String())
}

func TestText(t *testing.T) {
	type doc struct {
		Hash hash.Hash `json:"hash"`
	}

	b, err := json.Marshal(doc{Hash: hash.Of([]byte("abc"))})
	must.NoError(t, err)
	must.Eq(t, `{"hash":"`+abcHash+`"}`, string(b))

	var d doc
	must.NoError(t, json.Unmarshal(b, &d))
	must.Eq(t, hash.Of([]byte("abc")), d.Hash)

	err = json.Unmarshal([]byte(`{"hash":"nope"}`), &d)
	must.ErrorIs(t, err, hash.ErrInvalidEncoding)
}

func TestMustParse(t *testing.T) {
	must.Eq(t, hash.Of([]byte("abc")), hash.MustParse(abcHash))

	defer func() {
		must.NotNil(t, recover())
	}()
	hash.MustParse("not a hash")
}
