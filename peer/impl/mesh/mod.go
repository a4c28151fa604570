// Package mesh builds the full mesh of authenticated channels among the
// parties of a run.
package mesh

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.dedis.ch/mpchist/peer"
	"go.dedis.ch/mpchist/transport"
	"golang.org/x/exp/maps"
	"golang.org/x/xerrors"
)

// DialRetry is the pause between two attempts to reach a party that doesn't
// listen yet.
const DialRetry = time.Millisecond * 100

// Mesh is a set of N-1 sealed channels, one per peer, with the PRG seeds
// shared with each peer.
type Mesh struct {
	myID    int
	n       int
	session string
	conns   map[int]transport.Conn
	seeds   map[int]Seeds
	logger  zerolog.Logger

	closeOnce sync.Once
}

// Bootstrap validates the configuration, then connects to every other party:
// it dials the parties with a lower id and accepts the ones with a higher id.
// No partial mesh is ever returned, on error every channel is closed.
func Bootstrap(ctx context.Context, conf peer.Configuration) (*Mesh, error) {
	err := Validate(conf)
	if err != nil {
		return nil, err
	}

	session := xid.New().String()
	logger := log.With().Int("party", conf.MyID).Str("run", session).Logger()

	key := conf.IdentityKey
	if key == nil {
		key, err = crypto.GenerateKey()
		if err != nil {
			return nil, peer.NewRunError(peer.ErrConnectionFailed, peer.StageBootstrap, peer.NoParty,
				xerrors.Errorf("failed to generate identity key: %w", err))
		}
	}

	timeout := conf.BootstrapTimeout
	if timeout == 0 {
		timeout = peer.DefaultBootstrapTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	deadline, _ := ctx.Deadline()

	parties := make(map[int]peer.Party, conf.NumParties())
	for _, p := range conf.Parties {
		parties[p.ID] = p
	}

	base := handshake{
		myID:     conf.MyID,
		n:        conf.NumParties(),
		session:  session,
		digest:   PartyTable(conf.Parties).Digest(),
		key:      key,
		parties:  parties,
		expected: peer.NoParty,
		deadline: deadline,
	}

	self := parties[conf.MyID]
	listener, err := conf.Transport.Listen(self.HostPort())
	if err != nil {
		return nil, peer.NewRunError(peer.ErrConnectionFailed, peer.StageBootstrap, conf.MyID,
			xerrors.Errorf("failed to listen on %s: %w", self.HostPort(), err))
	}

	logger.Info().Msgf("listening on %s, identity %s", listener.GetAddress(),
		crypto.PubkeyToAddress(key.PublicKey).Hex())

	links := make(chan link, conf.NumParties())
	wg := sync.WaitGroup{}

	// accept the parties with a higher id
	higher := conf.NumParties() - conf.MyID - 1
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < higher; i++ {
			conn, err := listener.Accept()
			if err != nil {
				links <- link{peer: peer.NoParty, err: xerrors.Errorf("accept failed: %w", err)}
				return
			}

			wg.Add(1)
			go func() {
				defer wg.Done()
				links <- guarded(ctx, conn, base)
			}()
		}
	}()

	// dial the parties with a lower id
	for id := 0; id < conf.MyID; id++ {
		h := base
		h.dialer = true
		h.expected = id

		wg.Add(1)
		go func(p peer.Party) {
			defer wg.Done()

			conn, err := dial(ctx, conf.Transport, p.HostPort())
			if err != nil {
				links <- link{peer: p.ID, err: err}
				return
			}
			links <- guarded(ctx, conn, h)
		}(parties[id])
	}

	m := &Mesh{
		myID:    conf.MyID,
		n:       conf.NumParties(),
		session: session,
		conns:   make(map[int]transport.Conn),
		seeds:   make(map[int]Seeds),
		logger:  logger,
	}

	var failure error
	failed := peer.NoParty

	for len(m.conns) < conf.NumParties()-1 && failure == nil {
		var l link

		select {
		case l = <-links:
		case <-ctx.Done():
			failed = m.missing()
			failure = xerrors.Errorf("party %d not connected in time: %w", failed, ctx.Err())
			continue
		}

		_, dup := m.conns[l.peer]
		switch {
		case l.err != nil:
			failure, failed = l.err, l.peer
		case dup:
			failure, failed = xerrors.Errorf("second channel from party %d", l.peer), l.peer
		}

		if l.conn != nil && (l.err != nil || dup) {
			l.conn.Close()
			continue
		}
		if failure == nil {
			m.conns[l.peer] = l.conn
			m.seeds[l.peer] = l.seeds
			logger.Debug().Msgf("channel with party %d ready", l.peer)
		}
	}

	cancel()
	listener.Close()
	wg.Wait()
	close(links)

	if failure != nil {
		for l := range links {
			if l.conn != nil {
				l.conn.Close()
			}
		}
		m.Close()

		logger.Error().Msgf("bootstrap failed: %v", failure)
		return nil, peer.NewRunError(peer.ErrConnectionFailed, peer.StageBootstrap, failed, failure)
	}

	logger.Info().Msgf("connected to %d parties", len(m.conns))

	return m, nil
}

/** Feature Functions **/

// MyID returns the id of this party.
func (m *Mesh) MyID() int {
	return m.myID
}

// NumParties returns N.
func (m *Mesh) NumParties() int {
	return m.n
}

// Session returns the run tag of this party.
func (m *Mesh) Session() string {
	return m.session
}

// Logger returns the logger of the run.
func (m *Mesh) Logger() zerolog.Logger {
	return m.logger
}

// Peers returns the sorted ids of the peers.
func (m *Mesh) Peers() []int {
	peers := maps.Keys(m.conns)
	sort.Ints(peers)
	return peers
}

// Conns returns the channels indexed by peer id.
func (m *Mesh) Conns() map[int]transport.Conn {
	return maps.Clone(m.conns)
}

// Seeds returns the seeds shared with a peer.
func (m *Mesh) Seeds(id int) (Seeds, bool) {
	s, ok := m.seeds[id]
	return s, ok
}

// Close closes every channel. It is safe to call it more than once.
func (m *Mesh) Close() error {
	var firstErr error

	m.closeOnce.Do(func() {
		for _, id := range m.Peers() {
			err := m.conns[id].Close()
			if err != nil && firstErr == nil {
				firstErr = err
			}
		}
	})

	return firstErr
}

/** Private Helper Functions **/

// missing returns the lowest id without a channel yet.
func (m *Mesh) missing() int {
	for id := 0; id < m.n; id++ {
		_, ok := m.conns[id]
		if id != m.myID && !ok {
			return id
		}
	}
	return peer.NoParty
}

// dial connects to address, retrying until the context is done.
func dial(ctx context.Context, t transport.Transport, address string) (transport.Conn, error) {
	for {
		conn, err := t.Dial(ctx, address)
		if err == nil {
			return conn, nil
		}

		select {
		case <-ctx.Done():
			return nil, xerrors.Errorf("failed to reach %s (%v): %w", address, err, ctx.Err())
		case <-time.After(DialRetry):
		}
	}
}

// guarded runs the handshake, closing the channel if the context is done
// before it completes.
func guarded(ctx context.Context, conn transport.Conn, h handshake) link {
	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})

	l := h.run(conn)

	if !stop() && l.err == nil {
		l.err = xerrors.Errorf("handshake with party %d interrupted: %w", l.peer, ctx.Err())
	}
	if l.err != nil {
		conn.Close()
		l.conn = nil
	}

	return l
}
