package channel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/mpchist/transport"
)

func Test_Channel_Dial_Accept(t *testing.T) {
	tr := NewTransport()

	l, err := tr.Listen("127.0.0.1:7000")
	require.NoError(t, err)
	defer l.Close()
	require.Equal(t, "127.0.0.1:7000", l.GetAddress())

	_, err = tr.Listen("127.0.0.1:7000")
	require.Error(t, err)

	accepted := make(chan transport.Conn, 1)
	go func() {
		conn, err := l.Accept()
		if err == nil {
			accepted <- conn
		}
		close(accepted)
	}()

	conn, err := tr.Dial(context.Background(), "127.0.0.1:7000")
	require.NoError(t, err)
	defer conn.Close()

	other := <-accepted
	require.NotNil(t, other)
	defer other.Close()

	header := transport.NewHeader(1, 0, 1)
	pkt := transport.Packet{Header: &header, Msg: &transport.Message{Type: "ready", Payload: []byte("{}")}}

	go conn.Send(pkt, time.Second)

	received, err := other.Recv(time.Second)
	require.NoError(t, err)
	require.Equal(t, pkt, received)
}

func Test_Channel_Refused(t *testing.T) {
	tr := NewTransport()

	_, err := tr.Dial(context.Background(), "127.0.0.1:7000")
	require.Error(t, err)

	// a closed listener frees its address
	l, err := tr.Listen("127.0.0.1:7000")
	require.NoError(t, err)
	require.NoError(t, l.Close())

	_, err = l.Accept()
	require.Error(t, err)

	_, err = tr.Dial(context.Background(), "127.0.0.1:7000")
	require.Error(t, err)

	l, err = tr.Listen("127.0.0.1:7000")
	require.NoError(t, err)
	l.Close()
}

func Test_Channel_Dial_Canceled(t *testing.T) {
	tr := NewTransport()

	l, err := tr.Listen("127.0.0.1:7000")
	require.NoError(t, err)
	defer l.Close()

	// nobody accepts
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond*50)
	defer cancel()

	_, err = tr.Dial(ctx, "127.0.0.1:7000")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
