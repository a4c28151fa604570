package mpc

import (
	"context"

	"go.dedis.ch/mpchist/peer"
	"golang.org/x/xerrors"
)

// ArithmeticToBoolean converts arithmetic shares of v into boolean shares of
// the same values. Every party shares its own arithmetic share in the boolean
// domain, then the N boolean vectors are added with a binary tree of adder
// circuits. The additions of one tree level run in the same rounds.
func (c *Context) ArithmeticToBoolean(ctx context.Context, v ShareVector) (ShareVector, error) {
	err := c.check(peer.StageConvert)
	if err != nil {
		return ShareVector{}, err
	}
	if v.domain != Arithmetic {
		return ShareVector{}, c.abort(peer.StageConvert, xerrors.Errorf("expected arithmetic shares, got %s", v.domain))
	}

	bins := v.Len()
	if bins == 0 {
		return ShareVector{domain: Boolean, values: []uint64{}}, nil
	}

	c.logger.Info().Msgf("converting %d bins to boolean shares", bins)

	shares, err := c.reshare(a2bLabel, Boolean, v.values)
	if err != nil {
		return ShareVector{}, c.abort(peer.StageConvert, err)
	}

	level := make([][]uint64, len(shares))
	for i, s := range shares {
		level[i] = s.values
	}

	for len(level) > 1 {
		pairs := len(level) / 2

		var a, b [][]uint64
		for i := 0; i < pairs; i++ {
			a = append(a, level[2*i])
			b = append(b, level[2*i+1])
		}

		sum, err := c.add(ctx, concatWords(a...), concatWords(b...))
		if err != nil {
			return ShareVector{}, c.abort(peer.StageConvert, err)
		}

		next := make([][]uint64, 0, pairs+1)
		for i := 0; i < pairs; i++ {
			next = append(next, sum[i*bins:(i+1)*bins])
		}
		if len(level)%2 == 1 {
			next = append(next, level[len(level)-1])
		}

		level = next
	}

	return ShareVector{domain: Boolean, values: level[0]}, nil
}

// add returns boolean shares of a + b mod 2^64, word by word.
func (c *Context) add(ctx context.Context, a, b []uint64) ([]uint64, error) {
	g, err := c.and(ctx, a, b)
	if err != nil {
		return nil, err
	}
	p := xorWords(a, b)

	carries, err := c.prefix(ctx, g, p)
	if err != nil {
		return nil, err
	}

	// the carry into bit i is the generate bit of bits i-1 down to 0
	return xorWords(p, shlWords(carries, 1)), nil
}
