package mpc

import (
	"context"
	"io"

	"go.dedis.ch/mpchist/peer/impl/message"
	"go.dedis.ch/mpchist/peer/impl/ot"
	"go.dedis.ch/mpchist/peer/impl/prg"
	"go.dedis.ch/mpchist/types"
	"golang.org/x/xerrors"
)

// triple is this party's share of Beaver triples c = a & b, one per bit.
type triple struct {
	a []uint64
	b []uint64
	c []uint64
}

// tripleSource produces Beaver triples without a dealer. For every ordered
// pair of parties (i, j) there is an OT extension where i is the sender and j
// the receiver: it gives XOR shares of a_i & b_j.
type tripleSource struct {
	// senders[j] is the extension where this party sends to j
	senders map[int]*ot.ExtSender
	// receivers[j] is the extension where this party receives from j
	receivers map[int]*ot.ExtReceiver
}

func newTripleSource() *tripleSource {
	return &tripleSource{}
}

func (t *tripleSource) ready() bool {
	return t.senders != nil
}

// setup runs the base OTs of every extension, in two rounds. The base OTs of
// an extension run in the reverse direction: its receiver is their sender.
func (c *Context) setupTriples(ctx context.Context) error {
	peers := c.net.Peers()

	bases := make(map[int]*ot.BaseSender, len(peers))
	for _, id := range peers {
		base, err := ot.NewBaseSender(c.rand)
		if err != nil {
			return err
		}
		bases[id] = base
	}

	setups, err := message.Exchange(ctx, c.net, func(id int) types.BaseOTSetupMessage {
		return types.BaseOTSetupMessage{Point: bases[id].Point()}
	})
	if err != nil {
		return err
	}

	deltas := make(map[int][]byte, len(peers))
	choosers := make(map[int]*ot.BaseReceiver, len(peers))
	points := make(map[int][][]byte, len(peers))

	for _, id := range peers {
		delta, err := randomBytes(c.rand, ot.Kappa/8)
		if err != nil {
			return err
		}
		deltas[id] = delta

		choosers[id] = ot.NewBaseReceiver(ot.DeltaChoices(delta))
		points[id], err = choosers[id].Choose(setups[id].Point, c.rand)
		if err != nil {
			return &message.PeerError{Party: id, Round: c.net.Round(), Err: err}
		}
	}

	choices, err := message.Exchange(ctx, c.net, func(id int) types.BaseOTChoiceMessage {
		return types.BaseOTChoiceMessage{Points: points[id]}
	})
	if err != nil {
		return err
	}

	senders := make(map[int]*ot.ExtSender, len(peers))
	receivers := make(map[int]*ot.ExtReceiver, len(peers))

	for _, id := range peers {
		keys, err := bases[id].Keys(choices[id].Points)
		if err != nil {
			return &message.PeerError{Party: id, Round: c.net.Round(), Err: err}
		}

		receivers[id], err = ot.NewExtReceiver(keys)
		if err != nil {
			return &message.PeerError{Party: id, Round: c.net.Round(), Err: err}
		}

		senders[id], err = ot.NewExtSender(deltas[id], choosers[id].Keys())
		if err != nil {
			return err
		}
	}

	c.triples.senders = senders
	c.triples.receivers = receivers

	c.logger.Debug().Msgf("base OTs done with %d parties", len(peers))

	return nil
}

// generateTriples returns this party's shares of n words of triples, in two
// rounds.
func (c *Context) generateTriples(ctx context.Context, n int) (triple, error) {
	if !c.triples.ready() {
		err := c.setupTriples(ctx)
		if err != nil {
			return triple{}, err
		}
	}

	a, err := prg.RandomWords(c.rand, n)
	if err != nil {
		return triple{}, err
	}
	b, err := prg.RandomWords(c.rand, n)
	if err != nil {
		return triple{}, err
	}

	peers := c.net.Peers()
	aBits := prg.WordsToBytes(a)
	bBits := prg.WordsToBytes(b)

	columns := make(map[int][][]byte, len(peers))
	pending := make(map[int]*ot.Pending, len(peers))
	for _, id := range peers {
		columns[id], pending[id] = c.triples.receivers[id].Extend(bBits)
	}

	extends, err := message.Exchange(ctx, c.net, func(id int) types.OTExtendMessage {
		return types.OTExtendMessage{Columns: columns[id]}
	})
	if err != nil {
		return triple{}, err
	}

	// c_i = a_i & b_i ^ the cross terms a_i & b_j and a_j & b_i
	cross := andWords(a, b)
	corrections := make(map[int][]byte, len(peers))

	for _, id := range peers {
		corr, out, err := c.triples.senders[id].Correlate(extends[id].Columns, aBits)
		if err != nil {
			return triple{}, &message.PeerError{Party: id, Round: c.net.Round(), Err: err}
		}
		corrections[id] = corr
		cross = xorWords(cross, prg.BytesToWords(out))
	}

	corrected, err := message.Exchange(ctx, c.net, func(id int) types.OTCorrectMessage {
		return types.OTCorrectMessage{Corrections: corrections[id]}
	})
	if err != nil {
		return triple{}, err
	}

	for _, id := range peers {
		out, err := c.triples.receivers[id].Finish(pending[id], corrected[id].Corrections)
		if err != nil {
			return triple{}, &message.PeerError{Party: id, Round: c.net.Round(), Err: err}
		}
		cross = xorWords(cross, prg.BytesToWords(out))
	}

	return triple{a: a, b: b, c: cross}, nil
}

func randomBytes(r io.Reader, n int) ([]byte, error) {
	words, err := prg.RandomWords(r, (n+7)/8)
	if err != nil {
		return nil, xerrors.Errorf("failed to sample %d bytes: %w", n, err)
	}
	return prg.WordsToBytes(words)[:n], nil
}
