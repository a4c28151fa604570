package peer

import (
	"context"
	"crypto/ecdsa"
	"net"
	"strconv"
	"time"

	"go.dedis.ch/mpchist/transport"
	"go.dedis.ch/mpchist/types"
)

// DefaultThreshold is the threshold used when none is configured.
const DefaultThreshold = 5

// DefaultBootstrapTimeout bounds the time to build the full mesh.
const DefaultBootstrapTimeout = time.Second * 30

// DefaultStepTimeout bounds the time to wait on peers in a single round.
const DefaultStepTimeout = time.Second * 60

// Party describes one participant of a run.
type Party struct {
	ID      int
	Address string
	Port    uint16

	// Identity optionally pins the hex address of the party's identity key.
	// An empty identity accepts any key.
	Identity string
}

// HostPort returns the network address of the party.
func (p Party) HostPort() string {
	return net.JoinHostPort(p.Address, strconv.Itoa(int(p.Port)))
}

// Configuration is the configuration of one party for one run.
type Configuration struct {
	MyID    int
	Parties []Party

	// Threshold is the public k: bins with a count <= k are opened as 0. All
	// parties must use the same value.
	Threshold uint64

	Transport transport.Transport

	// IdentityKey signs the channel handshakes. A fresh key is generated when
	// nil, in which case peers cannot pin it.
	IdentityKey *ecdsa.PrivateKey

	BootstrapTimeout time.Duration
	StepTimeout      time.Duration
}

// NumParties returns N.
func (c Configuration) NumParties() int {
	return len(c.Parties)
}

// Histogram computes a k-anonymous histogram together with the other parties.
type Histogram interface {
	// Compute runs the whole protocol once: bootstrap, sharing, aggregation,
	// suppression and opening. It returns the suppressed histogram, or an
	// error, in which case nothing is revealed.
	Compute(ctx context.Context, record types.Record) (types.Result, error)
}
