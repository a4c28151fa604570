package tcp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/mpchist/transport"
)

func Test_TCP_Dial_Accept(t *testing.T) {
	tr := NewTCP()

	l, err := tr.Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	accepted := make(chan transport.Conn, 1)
	go func() {
		conn, err := l.Accept()
		if err == nil {
			accepted <- conn
		}
		close(accepted)
	}()

	conn, err := tr.Dial(context.Background(), l.GetAddress())
	require.NoError(t, err)
	defer conn.Close()

	other := <-accepted
	require.NotNil(t, other)
	defer other.Close()

	header := transport.NewHeader(0, 1, 2)
	pkt := transport.Packet{Header: &header, Msg: &transport.Message{Type: "open", Payload: []byte(`{"Values":[1,2]}`)}}

	require.NoError(t, conn.Send(pkt, time.Second))

	received, err := other.Recv(time.Second)
	require.NoError(t, err)
	require.Equal(t, pkt, received)
}

func Test_TCP_Invalid_Address(t *testing.T) {
	tr := NewTCP()

	for _, address := range []string{"", "127.0.0.1", ":7000", "127.0.0.1:port", "127.0.0.1:70000"} {
		_, err := tr.Listen(address)
		require.Error(t, err, address)

		_, err = tr.Dial(context.Background(), address)
		require.Error(t, err, address)
	}
}
