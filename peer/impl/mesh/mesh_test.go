package mesh

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
	"go.dedis.ch/mpchist/peer"
	"go.dedis.ch/mpchist/transport"
	"go.dedis.ch/mpchist/transport/channel"
)

// countingTransport records whether the network was touched.
type countingTransport struct {
	transport.Transport

	sync.Mutex
	calls int
}

func (t *countingTransport) Listen(address string) (transport.Listener, error) {
	t.Lock()
	t.calls++
	t.Unlock()
	return t.Transport.Listen(address)
}

func (t *countingTransport) Dial(ctx context.Context, address string) (transport.Conn, error) {
	t.Lock()
	t.calls++
	t.Unlock()
	return t.Transport.Dial(ctx, address)
}

func localParties(n int) []peer.Party {
	parties := make([]peer.Party, n)
	for i := range parties {
		parties[i] = peer.Party{ID: i, Address: "127.0.0.1", Port: uint16(7000 + i)}
	}
	return parties
}

// bootstrapAll runs Bootstrap for every configuration concurrently.
func bootstrapAll(confs []peer.Configuration) ([]*Mesh, []error) {
	meshes := make([]*Mesh, len(confs))
	errs := make([]error, len(confs))

	wg := sync.WaitGroup{}
	wg.Add(len(confs))
	for i, conf := range confs {
		go func(i int, conf peer.Configuration) {
			defer wg.Done()
			meshes[i], errs[i] = Bootstrap(context.Background(), conf)
		}(i, conf)
	}
	wg.Wait()

	return meshes, errs
}

func requireKind(t *testing.T, err error, kind error, party int) {
	require.True(t, errors.Is(err, kind), "expected %v, got %v", kind, err)

	var runErr *peer.RunError
	require.True(t, errors.As(err, &runErr))
	require.Equal(t, party, runErr.Party)
	require.Equal(t, peer.StageBootstrap, runErr.Stage)
}

func Test_Validate_Invalid_Party_ID(t *testing.T) {
	dup := localParties(3)
	dup[2].ID = 1

	outOfRange := localParties(3)
	outOfRange[2].ID = 3

	table := []struct {
		name    string
		myID    int
		parties []peer.Party
		party   int
	}{
		{"own id too big", 3, localParties(3), 3},
		{"negative own id", -1, localParties(3), -1},
		{"duplicated id", 0, dup, 1},
		{"listed id out of range", 0, outOfRange, 3},
		{"single party", 0, localParties(1), 0},
	}

	for _, entry := range table {
		t.Run(entry.name, func(t *testing.T) {
			tr := &countingTransport{Transport: channel.NewTransport()}

			_, err := Bootstrap(context.Background(), peer.Configuration{
				MyID:      entry.myID,
				Parties:   entry.parties,
				Transport: tr,
			})

			requireKind(t, err, peer.ErrInvalidPartyID, entry.party)
			require.Equal(t, 0, tr.calls)
		})
	}
}

func Test_Validate_Invalid_Address(t *testing.T) {
	badHost := localParties(2)
	badHost[1].Address = "1.2.3"

	badIdentity := localParties(2)
	badIdentity[0].Identity = "not an address"

	for _, parties := range [][]peer.Party{badHost, badIdentity} {
		tr := &countingTransport{Transport: channel.NewTransport()}

		_, err := Bootstrap(context.Background(), peer.Configuration{
			MyID:      0,
			Parties:   parties,
			Transport: tr,
		})

		require.True(t, errors.Is(err, peer.ErrInvalidAddress), err)
		require.Equal(t, 0, tr.calls)
	}
}

func Test_ValidHost(t *testing.T) {
	valid := []string{"127.0.0.1", "0.0.0.0", "255.255.255.255", "localhost", "party-1.example.org", "a1", "1a.example"}
	invalid := []string{"", "1.2.3", "256.1.1.1", "1.2.3.4.5", "-host", "host-", "a..b", "under_score", "with space",
		"::1", strings.Repeat("a", 64)}

	for _, host := range valid {
		require.True(t, ValidHost(host), host)
	}
	for _, host := range invalid {
		require.False(t, ValidHost(host), host)
	}
}

func Test_Party_Table_Normalizes_Identity(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	addr := crypto.PubkeyToAddress(key.PublicKey).Hex()

	lower := localParties(2)
	lower[1].Identity = strings.ToLower(addr)

	mixed := localParties(2)
	mixed[1].Identity = addr

	require.Equal(t, PartyTable(lower).Digest(), PartyTable(mixed).Digest())
	require.NotEqual(t, PartyTable(localParties(2)).Digest(), PartyTable(mixed).Digest())
}

func Test_Bootstrap_Full_Mesh(t *testing.T) {
	n := 4
	tr := channel.NewTransport()
	parties := localParties(n)

	confs := make([]peer.Configuration, n)
	for i := range confs {
		confs[i] = peer.Configuration{MyID: i, Parties: parties, Transport: tr, BootstrapTimeout: time.Second * 10}
	}

	meshes, errs := bootstrapAll(confs)
	for i, err := range errs {
		require.NoError(t, err, "party %d", i)
	}
	defer func() {
		for _, m := range meshes {
			m.Close()
		}
	}()

	for i, m := range meshes {
		require.Equal(t, i, m.MyID())
		require.Equal(t, n, m.NumParties())
		require.Len(t, m.Peers(), n-1)
		require.NotContains(t, m.Peers(), i)
		require.NotEmpty(t, m.Session())

		for _, j := range m.Peers() {
			mine, ok := m.Seeds(j)
			require.True(t, ok)
			theirs, ok := meshes[j].Seeds(i)
			require.True(t, ok)

			require.Equal(t, mine.Out, theirs.In)
			require.Equal(t, mine.In, theirs.Out)
			require.NotEqual(t, mine.Out, mine.In)
		}
	}

	// the channels are sealed with matching keys
	header := transport.NewHeader(0, 3, 1)
	pkt := transport.Packet{Header: &header, Msg: &transport.Message{Type: "ready", Payload: []byte("{}")}}

	done := make(chan error, 1)
	go func() {
		done <- meshes[0].Conns()[3].Send(pkt, time.Second)
	}()

	received, err := meshes[3].Conns()[0].Recv(time.Second)
	require.NoError(t, err)
	require.NoError(t, <-done)
	require.Equal(t, pkt.String(), received.String())
}

func Test_Bootstrap_Timeout(t *testing.T) {
	tr := channel.NewTransport()
	parties := localParties(2)

	// party 1 waits for party 0, which never comes
	start := time.Now()
	_, err := Bootstrap(context.Background(), peer.Configuration{
		MyID:             1,
		Parties:          parties,
		Transport:        tr,
		BootstrapTimeout: time.Millisecond * 300,
	})
	requireKind(t, err, peer.ErrConnectionFailed, 0)
	require.True(t, errors.Is(err, context.DeadlineExceeded), err)
	require.Less(t, time.Since(start), time.Second*5)

	// party 0 waits to be dialed by party 1
	_, err = Bootstrap(context.Background(), peer.Configuration{
		MyID:             0,
		Parties:          parties,
		Transport:        tr,
		BootstrapTimeout: time.Millisecond * 300,
	})
	requireKind(t, err, peer.ErrConnectionFailed, 1)
	require.True(t, errors.Is(err, context.DeadlineExceeded), err)

	// the listeners are released
	l, err := tr.Listen(parties[0].HostPort())
	require.NoError(t, err)
	l.Close()
}

func Test_Bootstrap_Pinned_Identity(t *testing.T) {
	tr := channel.NewTransport()

	keys := make([]*ecdsa.PrivateKey, 2)
	for i := range keys {
		k, err := crypto.GenerateKey()
		require.NoError(t, err)
		keys[i] = k
	}

	parties := localParties(2)
	parties[0].Identity = crypto.PubkeyToAddress(keys[0].PublicKey).Hex()
	parties[1].Identity = crypto.PubkeyToAddress(keys[1].PublicKey).Hex()

	confs := []peer.Configuration{
		{MyID: 0, Parties: parties, Transport: tr, IdentityKey: keys[0], BootstrapTimeout: time.Second * 5},
		{MyID: 1, Parties: parties, Transport: tr, IdentityKey: keys[1], BootstrapTimeout: time.Second * 5},
	}

	meshes, errs := bootstrapAll(confs)
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	meshes[0].Close()
	meshes[1].Close()

	// party 1 signs with another key
	other, err := crypto.GenerateKey()
	require.NoError(t, err)
	confs[1].IdentityKey = other

	_, errs = bootstrapAll(confs)
	requireKind(t, errs[0], peer.ErrConnectionFailed, 1)
	requireKind(t, errs[1], peer.ErrConnectionFailed, 0)
}

func Test_Bootstrap_Party_Table_Mismatch(t *testing.T) {
	tr := channel.NewTransport()

	parties := localParties(2)
	other := localParties(2)
	other[1].Port = 7005

	_, errs := bootstrapAll([]peer.Configuration{
		{MyID: 0, Parties: parties, Transport: tr, BootstrapTimeout: time.Second * 5},
		{MyID: 1, Parties: other, Transport: tr, BootstrapTimeout: time.Second * 5},
	})

	requireKind(t, errs[0], peer.ErrConnectionFailed, 1)
	requireKind(t, errs[1], peer.ErrConnectionFailed, 0)
}
