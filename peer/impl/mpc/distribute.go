package mpc

import (
	"context"

	"go.dedis.ch/mpchist/peer"
	"go.dedis.ch/mpchist/peer/impl/message"
	"go.dedis.ch/mpchist/types"
	"golang.org/x/xerrors"
)

// Distribute shares the record of every party among all the parties. The
// parties first agree on the number of bins, then each one derives its shares
// from the pairwise seeds: no share is sent on the wire. The result holds,
// for every party id, this party's arithmetic share of that party's record.
func (c *Context) Distribute(ctx context.Context, record types.Record) ([]ShareVector, error) {
	err := c.check(peer.StageDistribute)
	if err != nil {
		return nil, err
	}

	bins := len(record)
	c.logger.Info().Msgf("distributing %d bins", bins)

	counts, err := message.Broadcast(ctx, c.net, types.BinCountMessage{Bins: bins})
	if err != nil {
		return nil, c.abort(peer.StageDistribute, err)
	}

	for _, id := range c.net.Peers() {
		if counts[id].Bins != bins {
			return nil, c.abort(peer.StageDistribute, peer.NewRunError(peer.ErrBinCountMismatch,
				peer.StageDistribute, id, xerrors.Errorf("party %d has %d bins, we have %d",
					id, counts[id].Bins, bins)))
		}
	}

	shares, err := c.reshare(inputLabel, Arithmetic, record)
	if err != nil {
		return nil, c.abort(peer.StageDistribute, err)
	}

	return shares, nil
}
