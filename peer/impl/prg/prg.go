// Package prg provides the deterministic randomness shared by pairs of parties:
// HKDF key derivation and ChaCha20 keystreams read as 64-bit words.
package prg

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"io"

	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/xerrors"
)

// SeedSize is the size in bytes of a stream seed.
const SeedSize = 32

// Derive expands secret into size bytes bound to salt and info with
// HKDF-SHA256.
func Derive(secret, salt []byte, info string, size int) ([]byte, error) {
	reader := hkdf.New(sha256.New, secret, salt, []byte(info))
	out := make([]byte, size)
	_, err := io.ReadFull(reader, out)
	if err != nil {
		return nil, xerrors.Errorf("HKDF derivation failed: %w", err)
	}
	return out, nil
}

// Stream is a deterministic stream of pseudo-random bytes. Two holders of the
// same seed and label read the same sequence as long as they consume it in the
// same order. Not thread-safe.
type Stream struct {
	cipher *chacha20.Cipher
	read   uint64
}

// NewStream returns the stream of seed for the given label. Different labels
// give independent streams.
func NewStream(seed []byte, label string) (*Stream, error) {
	if len(seed) < SeedSize {
		return nil, xerrors.Errorf("seed must be at least %d bytes, got %d", SeedSize, len(seed))
	}

	key, err := Derive(seed, nil, label, chacha20.KeySize)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, chacha20.NonceSize)
	c, err := chacha20.NewUnauthenticatedCipher(key, nonce)
	if err != nil {
		return nil, xerrors.Errorf("ChaCha20 cipher creation failed: %w", err)
	}

	return &Stream{cipher: c}, nil
}

// Read implements io.Reader. It never fails.
func (s *Stream) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	s.cipher.XORKeyStream(p, p)
	s.read += uint64(len(p))
	return len(p), nil
}

// Bytes returns the next n bytes.
func (s *Stream) Bytes(n int) []byte {
	buf := make([]byte, n)
	s.Read(buf)
	return buf
}

// Words returns the next n words.
func (s *Stream) Words(n int) []uint64 {
	return BytesToWords(s.Bytes(8 * n))
}

// Consumed returns the number of bytes read so far.
func (s *Stream) Consumed() uint64 {
	return s.read
}

// RandomWords returns n uniformly random words read from r, crypto/rand when r
// is nil.
func RandomWords(r io.Reader, n int) ([]uint64, error) {
	if r == nil {
		r = rand.Reader
	}

	buf := make([]byte, 8*n)
	_, err := io.ReadFull(r, buf)
	if err != nil {
		return nil, xerrors.Errorf("failed to read randomness: %w", err)
	}

	return BytesToWords(buf), nil
}

// WordsToBytes encodes words in little-endian order: bit j of word i is bit
// 64*i+j of the output bit string.
func WordsToBytes(words []uint64) []byte {
	buf := make([]byte, 8*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint64(buf[8*i:], w)
	}
	return buf
}

// BytesToWords is the inverse of WordsToBytes. Trailing bytes that don't
// fill a word are ignored.
func BytesToWords(buf []byte) []uint64 {
	words := make([]uint64, len(buf)/8)
	for i := range words {
		words[i] = binary.LittleEndian.Uint64(buf[8*i:])
	}
	return words
}
