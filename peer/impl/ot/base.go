// Package ot implements the oblivious transfers the parties use to produce
// correlated randomness without a dealer: a batch of base OTs on secp256k1
// ("simplest OT"), extended to any number of correlated bit OTs with IKNP.
package ot

import (
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/binary"
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/zeebo/blake3"
	"golang.org/x/xerrors"
)

// Kappa is the computational security parameter, and the number of base OTs
// of an extension instance.
const Kappa = 128

// KeySize is the size of the keys output by a base OT.
const KeySize = 32

const scalarSize = 32

// BaseSender is the sender of a batch of base OTs. For every OT it learns two
// keys, of which the receiver learns exactly one.
type BaseSender struct {
	a     *big.Int
	point *ecdsa.PublicKey
	aa    *ecdsa.PublicKey
}

// NewBaseSender picks the sender's secret. r defaults to crypto/rand.
func NewBaseSender(r io.Reader) (*BaseSender, error) {
	a, err := randomScalar(r)
	if err != nil {
		return nil, err
	}

	curve := crypto.S256()
	x, y := curve.ScalarBaseMult(math.PaddedBigBytes(a, scalarSize))
	point := &ecdsa.PublicKey{Curve: curve, X: x, Y: y}

	ax, ay := curve.ScalarMult(x, y, math.PaddedBigBytes(a, scalarSize))

	return &BaseSender{
		a:     a,
		point: point,
		aa:    &ecdsa.PublicKey{Curve: curve, X: ax, Y: ay},
	}, nil
}

// Point returns the encoded public point A = aG, sent to the receiver.
func (s *BaseSender) Point() []byte {
	return crypto.FromECDSAPub(s.point)
}

// Keys computes both keys of every OT from the receiver's choice points.
func (s *BaseSender) Keys(points [][]byte) ([][2][]byte, error) {
	curve := crypto.S256()
	encA := s.Point()

	// -aA, to compute a(B - A) = aB - aA
	negY := new(big.Int).Sub(curve.Params().P, s.aa.Y)

	keys := make([][2][]byte, len(points))
	for j, encB := range points {
		b, err := crypto.UnmarshalPubkey(encB)
		if err != nil {
			return nil, xerrors.Errorf("invalid choice point %d: %w", j, err)
		}

		x0, y0 := curve.ScalarMult(b.X, b.Y, math.PaddedBigBytes(s.a, scalarSize))
		x1, y1 := curve.Add(x0, y0, s.aa.X, negY)

		keys[j][0] = keyHash(encA, encB, j, x0, y0)
		keys[j][1] = keyHash(encA, encB, j, x1, y1)
	}

	return keys, nil
}

// BaseReceiver is the receiver of a batch of base OTs.
type BaseReceiver struct {
	choices []bool
	keys    [][]byte
}

// NewBaseReceiver returns a receiver that will learn, for every OT j, the
// key of index choices[j].
func NewBaseReceiver(choices []bool) *BaseReceiver {
	return &BaseReceiver{
		choices: choices,
	}
}

// Choose answers the sender's point with one blinded point per OT, and
// computes the chosen keys.
func (r *BaseReceiver) Choose(encA []byte, rnd io.Reader) ([][]byte, error) {
	a, err := crypto.UnmarshalPubkey(encA)
	if err != nil {
		return nil, xerrors.Errorf("invalid sender point: %w", err)
	}

	curve := crypto.S256()
	points := make([][]byte, len(r.choices))
	r.keys = make([][]byte, len(r.choices))

	for j, c := range r.choices {
		b, err := randomScalar(rnd)
		if err != nil {
			return nil, err
		}
		scalar := math.PaddedBigBytes(b, scalarSize)

		// B = bG for choice 0, A + bG for choice 1
		bx, by := curve.ScalarBaseMult(scalar)
		cx, cy := curve.Add(a.X, a.Y, bx, by)
		candidates := [2]*ecdsa.PublicKey{
			{Curve: curve, X: bx, Y: by},
			{Curve: curve, X: cx, Y: cy},
		}
		points[j] = crypto.FromECDSAPub(candidates[bit(c)])

		kx, ky := curve.ScalarMult(a.X, a.Y, scalar)
		r.keys[j] = keyHash(encA, points[j], j, kx, ky)
	}

	return points, nil
}

// Keys returns the chosen keys, available after Choose.
func (r *BaseReceiver) Keys() [][]byte {
	return r.keys
}

// keyHash derives the key of OT j from the shared point, bound to the
// transcript of that OT.
func keyHash(encA, encB []byte, j int, x, y *big.Int) []byte {
	h := blake3.New()
	h.Write([]byte("mpchist/base-ot"))
	h.Write(encA)
	h.Write(encB)

	var idx [8]byte
	binary.BigEndian.PutUint64(idx[:], uint64(j))
	h.Write(idx[:])

	h.Write(math.PaddedBigBytes(x, scalarSize))
	h.Write(math.PaddedBigBytes(y, scalarSize))

	return h.Sum(nil)[:KeySize]
}

// randomScalar returns a uniform scalar in [1, n-1].
func randomScalar(r io.Reader) (*big.Int, error) {
	if r == nil {
		r = rand.Reader
	}

	n := crypto.S256().Params().N
	max := new(big.Int).Sub(n, big.NewInt(1))

	k, err := rand.Int(r, max)
	if err != nil {
		return nil, xerrors.Errorf("failed to sample scalar: %w", err)
	}
	return k.Add(k, big.NewInt(1)), nil
}

func bit(b bool) int {
	if b {
		return 1
	}
	return 0
}
