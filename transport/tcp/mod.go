package tcp

import (
	"context"
	"net"
	"strconv"

	"go.dedis.ch/mpchist/transport"
	"golang.org/x/xerrors"
)

// NewTCP returns a new tcp transport implementation.
func NewTCP() transport.Transport {
	return &TCP{}
}

// TCP implements a transport layer using TCP
//
// - implements transport.Transport
type TCP struct {
}

func checkValidAddr(address string) bool {
	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return false
	}
	if host == "" {
		return false
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return false
	}
	return port >= 0 && port <= 65535
}

// Listen implements transport.Transport
func (n *TCP) Listen(address string) (transport.Listener, error) {
	if !checkValidAddr(address) {
		return nil, xerrors.Errorf("Invalid address %s", address)
	}

	ln, err := net.Listen("tcp", address)
	if err != nil {
		return nil, err
	}

	return &Listener{
		ln:     ln,
		myAddr: ln.Addr().String(),
	}, nil
}

// Dial implements transport.Transport
func (n *TCP) Dial(ctx context.Context, address string) (transport.Conn, error) {
	if !checkValidAddr(address) {
		return nil, xerrors.Errorf("Invalid address %s", address)
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, err
	}

	tcpConn, ok := conn.(*net.TCPConn)
	if ok {
		// shares are small and rounds are latency bound
		tcpConn.SetNoDelay(true)
	}

	return transport.NewConn(conn), nil
}

// Listener implements a listening socket using TCP.
//
// - implements transport.Listener
type Listener struct {
	ln     net.Listener
	myAddr string
}

// Accept implements transport.Listener
func (l *Listener) Accept() (transport.Conn, error) {
	conn, err := l.ln.Accept()
	if err != nil {
		return nil, err
	}

	tcpConn, ok := conn.(*net.TCPConn)
	if ok {
		tcpConn.SetNoDelay(true)
	}

	return transport.NewConn(conn), nil
}

// Close implements transport.Listener
func (l *Listener) Close() error {
	return l.ln.Close()
}

// GetAddress implements transport.Listener. It returns the address assigned.
// Can be useful in the case one provided a :0 address, which makes the system
// use a random free port.
func (l *Listener) GetAddress() string {
	return l.myAddr
}
