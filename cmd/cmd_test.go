package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
	"go.dedis.ch/mpchist/peer"
	"go.dedis.ch/mpchist/types"
)

func Test_Parse_Parties(t *testing.T) {
	parties, err := ParseParties("0@127.0.0.1:7000;1@party-1.example.org:7001; 2@10.0.0.3:7002/0xAbC;")
	require.NoError(t, err)

	require.Equal(t, []peer.Party{
		{ID: 0, Address: "127.0.0.1", Port: 7000},
		{ID: 1, Address: "party-1.example.org", Port: 7001},
		{ID: 2, Address: "10.0.0.3", Port: 7002, Identity: "0xAbC"},
	}, parties)
}

func Test_Parse_Parties_Invalid(t *testing.T) {
	invalid := []string{
		"",
		";;",
		"127.0.0.1:7000",
		"a@127.0.0.1:7000",
		"0@127.0.0.1",
		"0@127.0.0.1:70000",
		"0@127.0.0.1:port",
	}

	for _, s := range invalid {
		_, err := ParseParties(s)
		require.Error(t, err, s)
	}
}

func Test_Read_Record(t *testing.T) {
	input := `# age pyramid, male
3, 0 ,7
1;  2
# empty line follows

42 # last bin
`
	record, err := ReadRecord(strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, types.Record{3, 0, 7, 1, 2, 42}, record)

	record, err = ReadRecord(strings.NewReader(""))
	require.NoError(t, err)
	require.Empty(t, record)

	_, err = ReadRecord(strings.NewReader("1\n-2\n"))
	require.ErrorContains(t, err, "line 2")

	_, err = ReadRecord(strings.NewReader("18446744073709551616"))
	require.Error(t, err)
}

func Test_Print_Result(t *testing.T) {
	buf := new(bytes.Buffer)
	PrintResult(buf, "ages", 3, types.Result{0, 10, 6}, 5)

	out := buf.String()
	require.Contains(t, out, "between 3 parties")
	require.Contains(t, out, "bin 1: 10")
	require.Contains(t, out, "less or equal 5 counts have been suppressed")
}

func Test_Config_From_YAML(t *testing.T) {
	dir := t.TempDir()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	keyFile := filepath.Join(dir, "identity.key")
	require.NoError(t, crypto.SaveECDSA(keyFile, key))

	path := filepath.Join(dir, "conf.yaml")
	err = os.WriteFile(path, []byte(fmt.Sprintf(`
id: 1
parties:
  - id: 0
    address: 127.0.0.1
    port: 7000
  - id: 1
    address: 127.0.0.1
    port: 7001
    identity: "%s"
keyfile: %s
inputs: [male.txt, female.txt]
stepTimeout: 10s
`, crypto.PubkeyToAddress(key.PublicKey).Hex(), keyFile)), 0600)
	require.NoError(t, err)

	c, err := ConfigFromYAML(path)
	require.NoError(t, err)
	require.Equal(t, 1, c.ID)
	require.Equal(t, uint64(peer.DefaultThreshold), c.Threshold)
	require.Equal(t, []string{"male.txt", "female.txt"}, c.Inputs)
	require.Empty(t, c.Missing())

	conf, err := c.PeerConfiguration()
	require.NoError(t, err)
	require.Equal(t, 2, conf.NumParties())
	require.Equal(t, "127.0.0.1:7001", conf.Parties[1].HostPort())
	require.NotNil(t, conf.Transport)
	require.Equal(t, int64(10e9), int64(conf.StepTimeout))
	require.Zero(t, conf.BootstrapTimeout)
	require.Equal(t, crypto.PubkeyToAddress(key.PublicKey), crypto.PubkeyToAddress(conf.IdentityKey.PublicKey))

	// the flags override the file
	require.NoError(t, c.SetParties("0@10.0.0.1:8000;1@10.0.0.2:8000;2@10.0.0.3:8000"))
	conf, err = c.PeerConfiguration()
	require.NoError(t, err)
	require.Equal(t, 3, conf.NumParties())
}

func Test_Config_Invalid(t *testing.T) {
	dir := t.TempDir()

	_, err := ConfigFromYAML(filepath.Join(dir, "nope.yaml"))
	require.True(t, errors.Is(err, os.ErrNotExist), err)

	_, err = RecordFromFile(filepath.Join(dir, "nope.txt"))
	require.True(t, errors.Is(err, os.ErrNotExist), err)

	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("id: [1"), 0600))
	_, err = ConfigFromYAML(path)
	require.Error(t, err)

	c := NewConfig()
	require.Equal(t, "id", c.Missing())
	c.ID = 0
	require.Equal(t, "parties", c.Missing())
	require.NoError(t, c.SetParties("0@127.0.0.1:7000;1@127.0.0.1:7001"))
	require.Equal(t, "input", c.Missing())

	c.StepTimeout = "soon"
	_, err = c.PeerConfiguration()
	require.Error(t, err)

	c.StepTimeout = ""
	c.KeyFile = filepath.Join(dir, "missing.key")
	_, err = c.PeerConfiguration()
	require.Error(t, err)
}

func Test_Run_Two_Parties(t *testing.T) {
	dir := t.TempDir()
	ports := freePorts(t, 2)

	parties := fmt.Sprintf("0@127.0.0.1:%d;1@127.0.0.1:%d", ports[0], ports[1])
	records := []string{"1,10,0\n", "2\n0\n0\n"}

	configs := make([]*Config, 2)
	for i := range configs {
		input := filepath.Join(dir, fmt.Sprintf("record-%d.txt", i))
		require.NoError(t, os.WriteFile(input, []byte(records[i]), 0600))

		c := NewConfig()
		c.ID = i
		c.Inputs = []string{input, input}
		require.NoError(t, c.SetParties(parties))
		configs[i] = c
	}

	outputs := make([]*bytes.Buffer, 2)
	errs := make([]error, 2)

	wg := sync.WaitGroup{}
	wg.Add(2)
	for i, c := range configs {
		outputs[i] = new(bytes.Buffer)
		go func(i int, c *Config) {
			defer wg.Done()
			errs[i] = Run(context.Background(), c, outputs[i])
		}(i, c)
	}
	wg.Wait()

	for i := range configs {
		require.NoError(t, errs[i])

		out := outputs[i].String()
		require.Equal(t, 2, strings.Count(out, "between 2 parties"))
		require.Contains(t, out, "bin 0: 0")
		require.Contains(t, out, "bin 1: 10")
		require.Contains(t, out, "bin 2: 0")
	}
}

// freePorts reserves n ports on the loopback interface and releases them.
func freePorts(t *testing.T, n int) []int {
	ports := make([]int, n)
	listeners := make([]net.Listener, n)

	for i := range ports {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		listeners[i] = l
		ports[i] = l.Addr().(*net.TCPAddr).Port
	}

	for _, l := range listeners {
		l.Close()
	}

	return ports
}
