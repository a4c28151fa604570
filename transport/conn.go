package transport

import (
	"crypto/cipher"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"os"
	"time"

	"golang.org/x/xerrors"
)

// MaxFrameSize bounds the size of a single frame on the wire.
const MaxFrameSize = 1 << 26

const lengthPrefix = 4

// NewConn wraps a stream connection into a packet channel. Frames are a 4-byte
// big-endian length followed by the (optionally sealed) marshaled packet.
func NewConn(conn net.Conn) Conn {
	return &FramedConn{
		conn: conn,
	}
}

// FramedConn implements a packet channel on top of a stream connection.
//
// - implements transport.Conn
type FramedConn struct {
	conn net.Conn

	send    cipher.AEAD
	recv    cipher.AEAD
	sendSeq uint64
	recvSeq uint64
}

// Seal implements transport.Conn. Each direction uses its own key and a
// sequence-number nonce, so frames that are replayed, dropped or reordered
// fail to open.
func (c *FramedConn) Seal(send, recv cipher.AEAD) {
	c.send = send
	c.recv = recv
	c.sendSeq = 0
	c.recvSeq = 0
}

// Send implements transport.Conn
func (c *FramedConn) Send(pkt Packet, timeout time.Duration) error {
	if timeout != 0 {
		c.conn.SetWriteDeadline(time.Now().Add(timeout))
	} else {
		c.conn.SetWriteDeadline(time.Time{})
	}

	buf, err := pkt.Marshal()
	if err != nil {
		return err
	}

	if c.send != nil {
		buf = c.send.Seal(nil, nonce(c.send.NonceSize(), c.sendSeq), buf, nil)
		c.sendSeq++
	}

	if len(buf) > MaxFrameSize {
		return xerrors.Errorf("frame of %d bytes exceeds limit", len(buf))
	}

	frame := make([]byte, lengthPrefix+len(buf))
	binary.BigEndian.PutUint32(frame, uint32(len(buf)))
	copy(frame[lengthPrefix:], buf)

	_, err = c.conn.Write(frame)
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return TimeoutError(timeout)
	}
	return err
}

// Recv implements transport.Conn
func (c *FramedConn) Recv(timeout time.Duration) (Packet, error) {
	pkt := Packet{}

	if timeout != 0 {
		c.conn.SetReadDeadline(time.Now().Add(timeout))
	} else {
		c.conn.SetReadDeadline(time.Time{})
	}

	var prefix [lengthPrefix]byte
	_, err := io.ReadFull(c.conn, prefix[:])
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return pkt, TimeoutError(timeout)
	}
	if err != nil {
		return pkt, err
	}

	size := binary.BigEndian.Uint32(prefix[:])
	if size > MaxFrameSize {
		return pkt, xerrors.Errorf("frame of %d bytes exceeds limit", size)
	}

	buf := make([]byte, size)
	_, err = io.ReadFull(c.conn, buf)
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return pkt, TimeoutError(timeout)
	}
	if err != nil {
		return pkt, err
	}

	if c.recv != nil {
		buf, err = c.recv.Open(nil, nonce(c.recv.NonceSize(), c.recvSeq), buf, nil)
		if err != nil {
			return pkt, xerrors.Errorf("failed to open frame %d: %w", c.recvSeq, err)
		}
		c.recvSeq++
	}

	err = pkt.Unmarshal(buf)
	if err != nil {
		return pkt, err
	}
	if pkt.Header == nil || pkt.Msg == nil {
		return pkt, xerrors.Errorf("malformed packet")
	}

	return pkt, nil
}

// GetRemoteAddress implements transport.Conn
func (c *FramedConn) GetRemoteAddress() string {
	return c.conn.RemoteAddr().String()
}

// Close implements transport.Conn
func (c *FramedConn) Close() error {
	return c.conn.Close()
}

func nonce(size int, seq uint64) []byte {
	n := make([]byte, size)
	binary.BigEndian.PutUint64(n[size-8:], seq)
	return n
}
