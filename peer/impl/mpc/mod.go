// Package mpc implements the secret-shared computation of a run: sharing of
// the inputs, aggregation, conversion to boolean shares, threshold
// suppression and the final opening.
package mpc

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"
	"go.dedis.ch/mpchist/peer"
	"go.dedis.ch/mpchist/peer/impl/mesh"
	"go.dedis.ch/mpchist/peer/impl/message"
	"go.dedis.ch/mpchist/peer/impl/prg"
	"go.dedis.ch/mpchist/types"
	"golang.org/x/xerrors"
)

// stream labels, one per use of the pairwise seeds
const (
	inputLabel = "mpchist/input"
	a2bLabel   = "mpchist/a2b"
)

// Context is the state of one party for one run. It owns the channels of the
// mesh it is created from. It must be used by one goroutine, and stages must
// be called in pipeline order.
type Context struct {
	myID  int
	n     int
	net   *message.Network
	seeds map[int]mesh.Seeds
	rand  io.Reader

	triples *tripleSource

	// err is the first failure, after which every stage is refused
	err    error
	opened bool

	logger zerolog.Logger
}

// NewContext returns the context of a run over m. stepTimeout bounds every
// round, rand is the source of local randomness (crypto/rand when nil).
func NewContext(m *mesh.Mesh, stepTimeout time.Duration, rand io.Reader) (*Context, error) {
	seeds := make(map[int]mesh.Seeds)
	for _, id := range m.Peers() {
		s, ok := m.Seeds(id)
		if !ok {
			return nil, xerrors.Errorf("no seeds for party %d", id)
		}
		seeds[id] = s
	}

	return &Context{
		myID:    m.MyID(),
		n:       m.NumParties(),
		net:     message.NewNetwork(m.MyID(), m.Conns(), stepTimeout, m.Logger()),
		seeds:   seeds,
		rand:    rand,
		triples: newTripleSource(),
		logger:  m.Logger(),
	}, nil
}

// MyID returns the id of this party.
func (c *Context) MyID() int {
	return c.myID
}

// NumParties returns N.
func (c *Context) NumParties() int {
	return c.n
}

// Run computes the suppressed histogram of record with threshold k. It runs
// every stage in order and opens only the suppressed result.
func (c *Context) Run(ctx context.Context, record types.Record, k uint64) (types.Result, error) {
	start := time.Now()

	shares, err := c.Distribute(ctx, record)
	if err != nil {
		return nil, err
	}

	c.logger.Info().Msgf("aggregating %d contributions", len(shares))
	total, err := Sum(shares...)
	if err != nil {
		return nil, c.abort(peer.StageAggregate, err)
	}

	if total.Len() == 0 {
		c.opened = true
		c.logger.Info().Msg("no bins, nothing to open")
		return types.Result{}, nil
	}

	boolean, err := c.ArithmeticToBoolean(ctx, total)
	if err != nil {
		return nil, err
	}

	suppressed, err := c.Suppress(ctx, boolean, k)
	if err != nil {
		return nil, err
	}

	values, err := c.Open(ctx, suppressed)
	if err != nil {
		return nil, err
	}

	c.logger.Info().Msgf("histogram of %d bins computed in %s, %d rounds",
		len(values), time.Since(start), c.net.Round())

	return types.Result(values), nil
}

// Close releases the channels of the context.
func (c *Context) Close() error {
	return c.net.Close()
}

/** Private Helper Functions **/

// check refuses to run a stage once the run failed.
func (c *Context) check(stage peer.Stage) error {
	if c.err != nil {
		return peer.NewRunError(peer.ErrProtocolAborted, stage, peer.NoParty,
			xerrors.Errorf("run already failed: %v", c.err))
	}
	return nil
}

// abort marks the run as failed and returns err as a *peer.RunError,
// annotated with the failing peer when known.
func (c *Context) abort(stage peer.Stage, err error) error {
	var runErr *peer.RunError
	if !xerrors.As(err, &runErr) {
		party := peer.NoParty

		var peerErr *message.PeerError
		if xerrors.As(err, &peerErr) {
			party = peerErr.Party
		}

		runErr = peer.NewRunError(peer.ErrProtocolAborted, stage, party, err)
	}

	if c.err == nil {
		c.err = runErr
	}

	c.logger.Error().Msgf("%s failed: %v", stage, runErr)
	return runErr
}

// streams returns, for every peer, the stream of randomness this party sends
// it and the stream it receives from it, for the given label.
func (c *Context) streams(label string) (out, in map[int]*prg.Stream, err error) {
	out = make(map[int]*prg.Stream, len(c.seeds))
	in = make(map[int]*prg.Stream, len(c.seeds))

	for id, s := range c.seeds {
		out[id], err = prg.NewStream(s.Out, label)
		if err != nil {
			return nil, nil, err
		}
		in[id], err = prg.NewStream(s.In, label)
		if err != nil {
			return nil, nil, err
		}
	}

	return out, in, nil
}

// reshare shares values among all the parties without communication: the
// party's own share is values minus the words sent to every peer, and its
// share of every peer's vector is the words received from that peer. The
// result is indexed by owner id.
func (c *Context) reshare(label string, domain Domain, values []uint64) ([]ShareVector, error) {
	out, in, err := c.streams(label)
	if err != nil {
		return nil, err
	}

	shares := make([]ShareVector, c.n)
	own := append([]uint64{}, values...)

	for _, id := range c.net.Peers() {
		own = domain.remove(own, out[id].Words(len(values)))
		shares[id] = ShareVector{domain: domain, values: in[id].Words(len(values))}
	}
	shares[c.myID] = ShareVector{domain: domain, values: own}

	return shares, nil
}

// not is the share of the bitwise complement: only party 0 flips its share.
func (c *Context) not(a []uint64) []uint64 {
	res := append([]uint64{}, a...)
	if c.myID == 0 {
		for i := range res {
			res[i] = ^res[i]
		}
	}
	return res
}

// constant is the share of a public value: party 0 holds it, the others 0.
func (c *Context) constant(value uint64, size int) []uint64 {
	res := make([]uint64, size)
	if c.myID == 0 {
		for i := range res {
			res[i] = value
		}
	}
	return res
}
