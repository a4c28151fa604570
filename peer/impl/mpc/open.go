package mpc

import (
	"context"

	"go.dedis.ch/mpchist/peer"
	"go.dedis.ch/mpchist/peer/impl/message"
	"go.dedis.ch/mpchist/types"
	"golang.org/x/xerrors"
)

// Open reveals v to every party: the shares are broadcast and combined. A
// context can be opened only once, any later call fails with
// peer.ErrAlreadyOpened.
func (c *Context) Open(ctx context.Context, v ShareVector) ([]uint64, error) {
	if c.opened {
		return nil, peer.NewRunError(peer.ErrAlreadyOpened, peer.StageOpen, peer.NoParty, nil)
	}

	err := c.check(peer.StageOpen)
	if err != nil {
		return nil, err
	}
	c.opened = true

	c.logger.Info().Msgf("opening %d bins", v.Len())

	opened, err := message.Broadcast(ctx, c.net, types.OpenMessage{
		Domain: uint8(v.domain),
		Values: v.values,
	})
	if err != nil {
		return nil, c.abort(peer.StageOpen, err)
	}

	shares := []ShareVector{v}
	for _, id := range c.net.Peers() {
		msg := opened[id]
		if Domain(msg.Domain) != v.domain || len(msg.Values) != v.Len() {
			return nil, c.abort(peer.StageOpen, peer.NewRunError(peer.ErrProtocolAborted, peer.StageOpen, id,
				xerrors.Errorf("party %d opened %d %s shares, expected %d %s", id,
					len(msg.Values), Domain(msg.Domain), v.Len(), v.domain)))
		}
		shares = append(shares, ShareVector{domain: v.domain, values: msg.Values})
	}

	values, err := Combine(shares...)
	if err != nil {
		return nil, c.abort(peer.StageOpen, err)
	}

	return values, nil
}
