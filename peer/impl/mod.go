package impl

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"go.dedis.ch/mpchist/peer"
	"go.dedis.ch/mpchist/peer/impl/mesh"
	"go.dedis.ch/mpchist/peer/impl/mpc"
	"go.dedis.ch/mpchist/types"
	"golang.org/x/xerrors"
)

// NewPeer creates a new party from its configuration. Missing timeouts take
// their default values.
func NewPeer(conf peer.Configuration) peer.Histogram {
	if conf.BootstrapTimeout == 0 {
		conf.BootstrapTimeout = peer.DefaultBootstrapTimeout
	}
	if conf.StepTimeout == 0 {
		conf.StepTimeout = peer.DefaultStepTimeout
	}

	return &node{
		conf: conf,
	}
}

// node is one party. Every call to Compute is an independent run, with its own
// mesh and context.
//
// - implements peer.Histogram
type node struct {
	conf peer.Configuration

	// runs are sequential: they all listen on the same address
	sync.Mutex
}

// Compute implements peer.Histogram
func (n *node) Compute(ctx context.Context, record types.Record) (types.Result, error) {
	n.Lock()
	defer n.Unlock()

	m, err := mesh.Bootstrap(ctx, n.conf)
	if err != nil {
		log.Error().Msgf("party %d: bootstrap failed: %v", n.conf.MyID, err)
		return nil, err
	}
	defer m.Close()

	c, err := mpc.NewContext(m, n.conf.StepTimeout, nil)
	if err != nil {
		return nil, peer.NewRunError(peer.ErrProtocolAborted, peer.StageBootstrap, peer.NoParty,
			xerrors.Errorf("failed to create context: %w", err))
	}
	defer c.Close()

	return c.Run(ctx, record, n.conf.Threshold)
}
