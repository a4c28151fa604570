package mpc

import (
	"fmt"
	"io"

	"go.dedis.ch/mpchist/peer/impl/prg"
	"golang.org/x/xerrors"
)

// BitWidth is the width of a shared value. Arithmetic shares live in
// Z_2^BitWidth, boolean shares in GF(2)^BitWidth.
const BitWidth = 64

// Domain is the combination rule of a share vector.
type Domain uint8

const (
	// Arithmetic shares combine by addition mod 2^64.
	Arithmetic Domain = iota
	// Boolean shares combine by bitwise XOR.
	Boolean
)

// String implements fmt.Stringer.
func (d Domain) String() string {
	switch d {
	case Arithmetic:
		return "arithmetic"
	case Boolean:
		return "boolean"
	default:
		return fmt.Sprintf("domain(%d)", uint8(d))
	}
}

func (d Domain) valid() bool {
	return d == Arithmetic || d == Boolean
}

// combine merges two shares of the same value.
func (d Domain) combine(a, b []uint64) []uint64 {
	if d == Boolean {
		return xorWords(a, b)
	}
	return addZ2k(a, b)
}

// remove is the inverse of combine: remove(combine(a, b), b) = a.
func (d Domain) remove(a, b []uint64) []uint64 {
	if d == Boolean {
		return xorWords(a, b)
	}
	return subZ2k(a, b)
}

// ShareVector is one party's shares of a vector of values, one word per bin.
// It has value semantics: operations return new vectors and accessors return
// copies.
type ShareVector struct {
	domain Domain
	values []uint64
}

// NewShareVector returns a share vector holding a copy of values.
func NewShareVector(domain Domain, values []uint64) ShareVector {
	return ShareVector{
		domain: domain,
		values: append([]uint64{}, values...),
	}
}

// Domain returns the domain of the shares.
func (s ShareVector) Domain() Domain {
	return s.domain
}

// Len returns the number of bins.
func (s ShareVector) Len() int {
	return len(s.values)
}

// Values returns a copy of the shares.
func (s ShareVector) Values() []uint64 {
	return append([]uint64{}, s.values...)
}

// String implements fmt.Stringer. It doesn't print the shares.
func (s ShareVector) String() string {
	return fmt.Sprintf("{%s shares of %d bins}", s.domain, len(s.values))
}

// Combine reconstructs the values from the shares of all the parties.
func Combine(shares ...ShareVector) ([]uint64, error) {
	if len(shares) == 0 {
		return nil, xerrors.Errorf("no shares to combine")
	}

	err := checkCompatible(shares)
	if err != nil {
		return nil, err
	}

	domain := shares[0].domain
	res := make([]uint64, shares[0].Len())
	for _, s := range shares {
		res = domain.combine(res, s.values)
	}

	return res, nil
}

// Split shares values among n parties: shares 1 to n-1 are uniformly random
// words read from r, share 0 completes them. r defaults to crypto/rand.
func Split(values []uint64, n int, domain Domain, r io.Reader) ([]ShareVector, error) {
	if n < 1 {
		return nil, xerrors.Errorf("invalid number of parties: %d", n)
	}
	if !domain.valid() {
		return nil, xerrors.Errorf("invalid domain %s", domain)
	}

	shares := make([]ShareVector, n)
	rest := append([]uint64{}, values...)

	for i := 1; i < n; i++ {
		words, err := prg.RandomWords(r, len(values))
		if err != nil {
			return nil, err
		}
		shares[i] = ShareVector{domain: domain, values: words}
		rest = domain.remove(rest, words)
	}
	shares[0] = ShareVector{domain: domain, values: rest}

	return shares, nil
}

func checkCompatible(shares []ShareVector) error {
	domain := shares[0].domain
	size := shares[0].Len()

	if !domain.valid() {
		return xerrors.Errorf("invalid domain %s", domain)
	}

	for i, s := range shares {
		if s.domain != domain {
			return xerrors.Errorf("share %d is %s, expected %s", i, s.domain, domain)
		}
		if s.Len() != size {
			return xerrors.Errorf("share %d has %d bins, expected %d", i, s.Len(), size)
		}
	}

	return nil
}
