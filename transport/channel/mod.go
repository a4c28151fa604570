// Package channel provides an in-memory transport, used to run several parties
// inside a single process.
package channel

import (
	"context"
	"net"
	"sync"

	"go.dedis.ch/mpchist/transport"
	"golang.org/x/xerrors"
)

// NewTransport returns a new in-memory transport. Parties that should reach
// each other must share the same instance.
func NewTransport() *Transport {
	return &Transport{
		listeners: make(map[string]*Listener),
	}
}

// Transport implements an in-memory transport based on net.Pipe.
//
// - implements transport.Transport
type Transport struct {
	sync.Mutex
	listeners map[string]*Listener
}

// Listen implements transport.Transport
func (t *Transport) Listen(address string) (transport.Listener, error) {
	t.Lock()
	defer t.Unlock()

	_, found := t.listeners[address]
	if found {
		return nil, xerrors.Errorf("address %s already in use", address)
	}

	l := &Listener{
		transport: t,
		address:   address,
		incoming:  make(chan net.Conn),
		closed:    make(chan struct{}),
	}
	t.listeners[address] = l

	return l, nil
}

// Dial implements transport.Transport. It fails if nobody listens on the
// address yet, like a refused connection.
func (t *Transport) Dial(ctx context.Context, address string) (transport.Conn, error) {
	t.Lock()
	l, found := t.listeners[address]
	t.Unlock()

	if !found {
		return nil, xerrors.Errorf("connection refused: %s", address)
	}

	local, remote := net.Pipe()

	select {
	case l.incoming <- remote:
		return transport.NewConn(local), nil
	case <-l.closed:
		local.Close()
		remote.Close()
		return nil, xerrors.Errorf("connection refused: %s", address)
	case <-ctx.Done():
		local.Close()
		remote.Close()
		return nil, ctx.Err()
	}
}

// Listener implements an in-memory listener.
//
// - implements transport.Listener
type Listener struct {
	transport *Transport
	address   string
	incoming  chan net.Conn
	closed    chan struct{}
	closeOnce sync.Once
}

// Accept implements transport.Listener
func (l *Listener) Accept() (transport.Conn, error) {
	select {
	case conn := <-l.incoming:
		return transport.NewConn(conn), nil
	case <-l.closed:
		return nil, net.ErrClosed
	}
}

// Close implements transport.Listener
func (l *Listener) Close() error {
	l.closeOnce.Do(func() {
		l.transport.Lock()
		delete(l.transport.listeners, l.address)
		l.transport.Unlock()
		close(l.closed)
	})
	return nil
}

// GetAddress implements transport.Listener
func (l *Listener) GetAddress() string {
	return l.address
}
