package cmd

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"go.dedis.ch/mpchist/peer"
	"go.dedis.ch/mpchist/transport/tcp"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------
// Config

// PartyEntry is a party as written in the configuration file.
type PartyEntry struct {
	ID       int    `yaml:"id"`
	Address  string `yaml:"address"`
	Port     uint16 `yaml:"port"`
	Identity string `yaml:"identity,omitempty"`
}

// Config is the configuration of a party, read from a YAML file and
// completed by the command line.
type Config struct {
	ID        int          `yaml:"id"`
	Parties   []PartyEntry `yaml:"parties"`
	Threshold uint64       `yaml:"threshold"`

	// KeyFile is the path to the identity key, as written by keygen.
	KeyFile string `yaml:"keyfile,omitempty"`

	// Inputs are the paths of the records. One run is performed per input.
	Inputs []string `yaml:"inputs,omitempty"`

	BootstrapTimeout string `yaml:"bootstrapTimeout,omitempty"`
	StepTimeout      string `yaml:"stepTimeout,omitempty"`
}

// NewConfig returns an empty configuration with the default threshold.
func NewConfig() *Config {
	return &Config{
		ID:        -1,
		Threshold: peer.DefaultThreshold,
	}
}

// ConfigFromYAML loads a configuration file. Unset values keep their
// defaults.
func ConfigFromYAML(path string) (*Config, error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.Errorf("failed to read config: %w", err)
	}

	c := NewConfig()
	err = yaml.Unmarshal(yamlFile, c)
	if err != nil {
		return nil, xerrors.Errorf("failed to parse config %s: %w", path, err)
	}

	return c, nil
}

// SetParties replaces the parties with the ones of a party string.
func (c *Config) SetParties(s string) error {
	parties, err := ParseParties(s)
	if err != nil {
		return err
	}

	c.Parties = make([]PartyEntry, len(parties))
	for i, p := range parties {
		c.Parties[i] = PartyEntry{ID: p.ID, Address: p.Address, Port: p.Port, Identity: p.Identity}
	}

	return nil
}

// Missing returns the name of the first mandatory setting that is not set, or
// an empty string.
func (c *Config) Missing() string {
	switch {
	case c.ID < 0:
		return "id"
	case len(c.Parties) == 0:
		return "parties"
	case len(c.Inputs) == 0:
		return "input"
	default:
		return ""
	}
}

// PeerConfiguration builds the configuration of the party, using TCP.
func (c *Config) PeerConfiguration() (peer.Configuration, error) {
	conf := peer.Configuration{
		MyID:      c.ID,
		Threshold: c.Threshold,
		Transport: tcp.NewTCP(),
	}

	for _, p := range c.Parties {
		conf.Parties = append(conf.Parties, peer.Party{
			ID:       p.ID,
			Address:  p.Address,
			Port:     p.Port,
			Identity: p.Identity,
		})
	}

	var err error

	conf.BootstrapTimeout, err = parseDuration(c.BootstrapTimeout)
	if err != nil {
		return conf, xerrors.Errorf("invalid bootstrap timeout: %w", err)
	}

	conf.StepTimeout, err = parseDuration(c.StepTimeout)
	if err != nil {
		return conf, xerrors.Errorf("invalid step timeout: %w", err)
	}

	if c.KeyFile != "" {
		conf.IdentityKey, err = crypto.LoadECDSA(c.KeyFile)
		if err != nil {
			return conf, xerrors.Errorf("failed to load key %s: %w", c.KeyFile, err)
		}
	}

	return conf, nil
}

// -----------------------------------------------------------------------------
// Party string

// ParseParties parses a party string of the form "ID@HOST:PORT;ID@HOST:PORT".
// A party may pin its identity with a trailing "/0xADDRESS". Empty entries
// are ignored. Hosts are checked later, when the run is validated.
func ParseParties(s string) ([]peer.Party, error) {
	var parties []peer.Party

	for _, entry := range strings.Split(s, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		p, err := parseParty(entry)
		if err != nil {
			return nil, xerrors.Errorf("invalid party %q: %w", entry, err)
		}

		parties = append(parties, p)
	}

	if len(parties) == 0 {
		return nil, xerrors.Errorf("no party in %q", s)
	}

	return parties, nil
}

func parseParty(entry string) (peer.Party, error) {
	p := peer.Party{}

	entry, identity, found := strings.Cut(entry, "/")
	if found {
		p.Identity = identity
	}

	id, hostPort, found := strings.Cut(entry, "@")
	if !found {
		return p, xerrors.New("missing '@'")
	}

	i, err := strconv.Atoi(id)
	if err != nil {
		return p, xerrors.Errorf("bad id: %w", err)
	}
	p.ID = i

	sep := strings.LastIndex(hostPort, ":")
	if sep < 0 {
		return p, xerrors.New("missing ':'")
	}
	p.Address = hostPort[:sep]

	port, err := strconv.ParseUint(hostPort[sep+1:], 10, 16)
	if err != nil {
		return p, xerrors.Errorf("bad port: %w", err)
	}
	p.Port = uint16(port)

	return p, nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
