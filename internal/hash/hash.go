// Package hash implements the content identifier used to address chunks:
// the first 20 bytes of a SHA-512 digest, rendered as 32 characters of an
// order-preserving base32 alphabet.
package hash

import (
	"bytes"
	"crypto/sha512"
	"encoding/base32"
	"errors"
	"fmt"
)

const (
	// ByteLen is the number of digest bytes kept from SHA-512.
	ByteLen = 20
	// StringLen is the length of the textual form of a Hash.
	StringLen = 32
)

// alphabet is assigned to 5-bit values in ascending order so that string
// order of encoded hashes matches byte order of the digests.
const alphabet = "0123456789abcdefghijklmnopqrstuv"

var (
	ErrInvalidEncoding = errors.New("invalid hash encoding")
	ErrInvalidLength   = errors.New("invalid hash length")
)

var encoding = base32.NewEncoding(alphabet).WithPadding(base32.NoPadding)

// valid marks the bytes that may appear in an encoded hash. encoding/base32
// skips '\r' and '\n' while decoding, so input is checked against this table
// before it is handed to the decoder.
var valid = func() (t [256]bool) {
	for i := 0; i < len(alphabet); i++ {
		t[alphabet[i]] = true
	}
	return t
}()

// Hash is a 20 byte content identifier. The zero value is the empty hash.
type Hash [ByteLen]byte

// Empty is the all-zero sentinel hash.
var Empty Hash

// Of returns the hash of data.
func Of(data []byte) Hash {
	sum := sha512.Sum512(data)

	var h Hash
	copy(h[:], sum[:ByteLen])
	return h
}

// FromBytes builds a Hash from its raw form, as stored in backend keys.
func FromBytes(b []byte) (Hash, error) {
	var h Hash
	if len(b) != ByteLen {
		return h, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidLength, len(b), ByteLen)
	}
	copy(h[:], b)
	return h, nil
}

// Parse decodes the 32 character textual form produced by String.
func Parse(s string) (Hash, error) {
	var h Hash
	if len(s) != StringLen {
		return h, fmt.Errorf("%w: got %d characters, want %d", ErrInvalidEncoding, len(s), StringLen)
	}
	for i := 0; i < len(s); i++ {
		if !valid[s[i]] {
			return h, fmt.Errorf("%w: unexpected %q at offset %d", ErrInvalidEncoding, s[i], i)
		}
	}

	n, err := encoding.Decode(h[:], []byte(s))
	if err != nil {
		return Hash{}, fmt.Errorf("%w: %w", ErrInvalidEncoding, err)
	}
	if n != ByteLen {
		return Hash{}, fmt.Errorf("%w: decoded %d bytes", ErrInvalidEncoding, n)
	}
	return h, nil
}

// MustParse is like Parse but panics on invalid input.
func MustParse(s string) Hash {
	h, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return h
}

func (h Hash) String() string {
	return encoding.EncodeToString(h[:])
}

// Bytes returns a copy of the raw digest.
func (h Hash) Bytes() []byte {
	b := make([]byte, ByteLen)
	copy(b, h[:])
	return b
}

func (h Hash) IsEmpty() bool {
	return h == Empty
}

// Compare orders hashes by their raw bytes. The result agrees with comparing
// the String forms.
func (h Hash) Compare(other Hash) int {
	return bytes.Compare(h[:], other[:])
}

// MarshalText implements encoding.TextMarshaler.
func (h Hash) MarshalText() ([]byte, error) {
	b := make([]byte, StringLen)
	encoding.Encode(b, h[:])
	return b, nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
