// Package message runs the lock-step rounds of a protocol run: in every round
// each party sends one message to each peer and waits for one message from
// each peer before going on.
package message

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.dedis.ch/mpchist/peer"
	"go.dedis.ch/mpchist/transport"
	"go.dedis.ch/mpchist/types"
	"golang.org/x/exp/maps"
	"golang.org/x/xerrors"
)

// PeerError is returned when the exchange with a given peer fails.
type PeerError struct {
	Party int
	Round uint64
	Err   error
}

// Error implements error.
func (e *PeerError) Error() string {
	return fmt.Sprintf("party %d, round %d: %v", e.Party, e.Round, e.Err)
}

// Unwrap returns the cause.
func (e *PeerError) Unwrap() error {
	return e.Err
}

// Network is the set of channels of one party to all its peers. Rounds are
// numbered from 1, in the same order on every party. It must be used by one
// goroutine at a time.
type Network struct {
	myID    int
	conns   map[int]transport.Conn
	peers   []int
	timeout time.Duration
	round   uint64
	logger  zerolog.Logger
}

// NewNetwork returns a network over conns, indexed by peer id. timeout bounds
// the wait on a single round, 0 means no bound other than the context.
func NewNetwork(myID int, conns map[int]transport.Conn, timeout time.Duration, logger zerolog.Logger) *Network {
	peers := maps.Keys(conns)
	sort.Ints(peers)

	return &Network{
		myID:    myID,
		conns:   conns,
		peers:   peers,
		timeout: timeout,
		logger:  logger,
	}
}

/** Feature Functions **/

// MyID returns the id of this party.
func (n *Network) MyID() int {
	return n.myID
}

// Peers returns the sorted ids of the peers.
func (n *Network) Peers() []int {
	return append([]int(nil), n.peers...)
}

// Round returns the number of rounds run so far.
func (n *Network) Round() uint64 {
	return n.round
}

// Exchange runs one round: it sends out(p) to every peer p and returns the
// message received from every peer. It fails if any peer doesn't deliver a
// message of type T for this round in time, in which case the error is a
// *PeerError naming the first failing peer in id order.
func Exchange[T types.Message](ctx context.Context, n *Network, out func(peer int) T) (map[int]T, error) {
	n.round++
	round := n.round

	timeout := n.timeout
	deadline, ok := ctx.Deadline()
	if ok && (timeout == 0 || time.Until(deadline) < timeout) {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return nil, &PeerError{Party: peer.NoParty, Round: round, Err: context.DeadlineExceeded}
		}
	}

	// a blocked channel can only be released by closing it
	stop := context.AfterFunc(ctx, n.abort)
	defer stop()

	outgoing := make([]T, len(n.peers))
	for i, p := range n.peers {
		outgoing[i] = out(p)
	}

	sent := make([]error, len(n.peers))
	received := make([]T, len(n.peers))
	recvErrs := make([]error, len(n.peers))

	wg := sync.WaitGroup{}
	wg.Add(2 * len(n.peers))

	for i, p := range n.peers {
		go func(i, p int) {
			defer wg.Done()
			sent[i] = n.send(p, round, outgoing[i], timeout)
		}(i, p)

		go func(i, p int) {
			defer wg.Done()
			received[i], recvErrs[i] = recv[T](n, p, round, timeout)
		}(i, p)
	}

	wg.Wait()

	result := make(map[int]T, len(n.peers))
	for i, p := range n.peers {
		err := sent[i]
		if err == nil {
			err = recvErrs[i]
		}
		if err != nil {
			if ctx.Err() != nil {
				err = xerrors.Errorf("interrupted (%v): %w", err, ctx.Err())
			}
			return nil, &PeerError{Party: p, Round: round, Err: err}
		}
		result[p] = received[i]
	}

	var zero T
	n.logger.Debug().Msgf("round %d: %s exchanged with %d peers", round, zero.Name(), len(n.peers))

	return result, nil
}

// Broadcast runs one round where the same message is sent to every peer.
func Broadcast[T types.Message](ctx context.Context, n *Network, msg T) (map[int]T, error) {
	return Exchange(ctx, n, func(int) T { return msg })
}

// Close closes all the channels.
func (n *Network) Close() error {
	var firstErr error
	for _, p := range n.peers {
		err := n.conns[p].Close()
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

/** Private Helper Functions **/

func (n *Network) send(dest int, round uint64, payload types.Message, timeout time.Duration) error {
	msg, err := Encode(payload)
	if err != nil {
		return xerrors.Errorf("failed to encode %s: %w", payload.Name(), err)
	}

	header := transport.NewHeader(n.myID, dest, round)
	pkt := transport.Packet{Header: &header, Msg: &msg}

	err = n.conns[dest].Send(pkt, timeout)
	if err != nil {
		return xerrors.Errorf("failed to send: %w", err)
	}
	return nil
}

func recv[T types.Message](n *Network, src int, round uint64, timeout time.Duration) (T, error) {
	var zero T

	pkt, err := n.conns[src].Recv(timeout)
	if err != nil {
		return zero, xerrors.Errorf("failed to receive: %w", err)
	}

	if pkt.Header.Source != src || pkt.Header.Destination != n.myID {
		return zero, xerrors.Errorf("misrouted packet %s", pkt)
	}
	if pkt.Header.Round != round {
		return zero, xerrors.Errorf("out of step: got round %d, expected %d", pkt.Header.Round, round)
	}

	return Decode[T](pkt.Msg)
}

func (n *Network) abort() {
	n.logger.Debug().Msg("context done, closing channels")
	n.Close()
}
