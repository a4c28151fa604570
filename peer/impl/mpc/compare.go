package mpc

import (
	"context"

	"go.dedis.ch/mpchist/peer"
	"golang.org/x/xerrors"
)

// Suppress returns boolean shares of v where every value not strictly greater
// than the public threshold k is replaced by 0. The same gates are evaluated
// whatever the values: the comparison result stays shared and selects with a
// multiplexer.
func (c *Context) Suppress(ctx context.Context, v ShareVector, k uint64) (ShareVector, error) {
	err := c.check(peer.StageSuppress)
	if err != nil {
		return ShareVector{}, err
	}
	if v.domain != Boolean {
		return ShareVector{}, c.abort(peer.StageSuppress, xerrors.Errorf("expected boolean shares, got %s", v.domain))
	}

	bins := v.Len()
	if bins == 0 {
		return ShareVector{domain: Boolean, values: []uint64{}}, nil
	}

	c.logger.Info().Msgf("suppressing bins with count <= %d", k)

	threshold := c.constant(k, bins)

	above, err := c.greaterThan(ctx, v.values, threshold)
	if err != nil {
		return ShareVector{}, c.abort(peer.StageSuppress, err)
	}

	res, err := c.mux(ctx, above, v.values, make([]uint64, bins))
	if err != nil {
		return ShareVector{}, c.abort(peer.StageSuppress, err)
	}

	return ShareVector{domain: Boolean, values: res}, nil
}

// greaterThan returns shares of words whose bit 0 tells if a > b, unsigned,
// and whose other bits are 0.
func (c *Context) greaterThan(ctx context.Context, a, b []uint64) ([]uint64, error) {
	// g: a is 1 where b is 0, e: a and b are equal
	g, err := c.and(ctx, a, c.not(b))
	if err != nil {
		return nil, err
	}
	e := c.not(xorWords(a, b))

	// the highest differing bit decides, it ends up in bit 63
	decided, err := c.prefix(ctx, g, e)
	if err != nil {
		return nil, err
	}

	return shrWords(decided, BitWidth-1), nil
}

// mux returns shares of a where bit 0 of sel is set, of b elsewhere.
func (c *Context) mux(ctx context.Context, sel, a, b []uint64) ([]uint64, error) {
	picked, err := c.and(ctx, maskWords(sel), xorWords(a, b))
	if err != nil {
		return nil, err
	}
	return xorWords(b, picked), nil
}
