package mpc

import (
	"context"

	"go.dedis.ch/mpchist/peer/impl/message"
	"go.dedis.ch/mpchist/types"
	"golang.org/x/xerrors"
)

// and returns shares of x & y, word by word, with one Beaver triple per bit:
// d = x ^ a and e = y ^ b are opened together, then
// z = c ^ (d & b) ^ (e & a), party 0 adding d & e.
func (c *Context) and(ctx context.Context, x, y []uint64) ([]uint64, error) {
	n := len(x)
	if len(y) != n {
		return nil, xerrors.Errorf("and of %d and %d words", n, len(y))
	}
	if n == 0 {
		return []uint64{}, nil
	}

	t, err := c.generateTriples(ctx, n)
	if err != nil {
		return nil, err
	}

	d := xorWords(x, t.a)
	e := xorWords(y, t.b)

	masked, err := message.Broadcast(ctx, c.net, types.BeaverMessage{D: d, E: e})
	if err != nil {
		return nil, err
	}

	for _, id := range c.net.Peers() {
		msg := masked[id]
		if len(msg.D) != n || len(msg.E) != n {
			return nil, &message.PeerError{Party: id, Round: c.net.Round(),
				Err: xerrors.Errorf("expected %d masked words, got %d and %d", n, len(msg.D), len(msg.E))}
		}
		d = xorWords(d, msg.D)
		e = xorWords(e, msg.E)
	}

	z := xorWords(t.c, xorWords(andWords(d, t.b), andWords(e, t.a)))
	if c.myID == 0 {
		z = xorWords(z, andWords(d, e))
	}

	return z, nil
}

// prefix combines generate and propagate words over the whole width with a
// Kogge-Stone network: after the last level, bit i of the result is the
// generate bit of bits i down to 0. g and p must never be both set in a bit,
// so that the combination g | (p & g') is a XOR.
func (c *Context) prefix(ctx context.Context, g, p []uint64) ([]uint64, error) {
	n := len(g)

	for s := uint(1); s < BitWidth; s <<= 1 {
		gs := shlWords(g, s)

		if 2*s == BitWidth {
			z, err := c.and(ctx, p, gs)
			if err != nil {
				return nil, err
			}
			g = xorWords(g, z)
			break
		}

		// both updates of the level share one round
		z, err := c.and(ctx, concatWords(p, p), concatWords(gs, shlWords(p, s)))
		if err != nil {
			return nil, err
		}
		parts := splitWords(z, n, n)
		g = xorWords(g, parts[0])
		p = parts[1]
	}

	return g, nil
}
