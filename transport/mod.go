package transport

import (
	"context"
	"crypto/cipher"
	"encoding/json"
	"fmt"
	"time"
)

// Transport defines the primitives to open party channels. Channels are
// ordered, reliable and connection based.
type Transport interface {
	Listen(address string) (Listener, error)
	Dial(ctx context.Context, address string) (Conn, error)
}

// Listener accepts incoming channels on a bound address.
type Listener interface {
	Accept() (Conn, error)
	Close() error
	GetAddress() string
}

// Conn is a duplex channel with a single remote party. Send and Recv can be
// used concurrently from two goroutines, but not each from several.
type Conn interface {
	// Send blocks until the packet is written or the timeout is reached. A
	// zero timeout means no timeout.
	Send(pkt Packet, timeout time.Duration) error

	// Recv blocks until a packet is received or the timeout is reached, in
	// which case it returns a TimeoutError.
	Recv(timeout time.Duration) (Packet, error)

	// Seal switches the channel to authenticated encryption. It must be
	// called before any concurrent use.
	Seal(send, recv cipher.AEAD)

	GetRemoteAddress() string
	Close() error
}

// Message defines the type of message sent over a channel. Payload should be a
// json marshalled representation of a types.Message, and Type the
// corresponding message name, available with types.Message.Name().
type Message struct {
	Type    string
	Payload json.RawMessage
}

// Header contains the metadata of a packet.
type Header struct {
	// Source is the party id of the sender.
	Source int

	// Destination is the party id of the recipient.
	Destination int

	// Round is the lock-step round the packet belongs to.
	Round uint64
}

// NewHeader returns a new header.
func NewHeader(source, destination int, round uint64) Header {
	return Header{
		Source:      source,
		Destination: destination,
		Round:       round,
	}
}

// Packet is the unit exchanged on a channel.
type Packet struct {
	Header *Header
	Msg    *Message
}

// Marshal transforms a packet to something that can be sent over the network.
func (p Packet) Marshal() ([]byte, error) {
	return json.Marshal(&p)
}

// Unmarshal transforms a marshaled packet to an actual packet.
func (p *Packet) Unmarshal(buf []byte) error {
	return json.Unmarshal(buf, p)
}

// Copy returns a copy of the packet.
func (p Packet) Copy() Packet {
	var h *Header
	var m *Message

	if p.Header != nil {
		hc := *p.Header
		h = &hc
	}

	if p.Msg != nil {
		payload := make([]byte, len(p.Msg.Payload))
		copy(payload, p.Msg.Payload)
		m = &Message{Type: p.Msg.Type, Payload: payload}
	}

	return Packet{Header: h, Msg: m}
}

// String implements fmt.Stringer.
func (p Packet) String() string {
	if p.Header == nil || p.Msg == nil {
		return "{empty packet}"
	}
	return fmt.Sprintf("{%d->%d round %d: %s}", p.Header.Source, p.Header.Destination,
		p.Header.Round, p.Msg.Type)
}

// TimeoutError is the error returned when a timeout is reached.
type TimeoutError time.Duration

// Error implements error.
func (err TimeoutError) Error() string {
	return fmt.Sprintf("timeout reached after %d", time.Duration(err))
}
