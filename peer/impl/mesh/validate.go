package mesh

import (
	"fmt"
	"net"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.dedis.ch/mpchist/peer"
	"go.dedis.ch/mpchist/storage"
	"golang.org/x/xerrors"
)

const maxHostnameLength = 253
const maxLabelLength = 63

// Validate checks a configuration without any network I/O. The returned error
// is a *peer.RunError of kind peer.ErrInvalidPartyID or peer.ErrInvalidAddress.
func Validate(conf peer.Configuration) error {
	n := conf.NumParties()

	if n < 2 {
		return invalidID(conf.MyID, xerrors.Errorf("at least 2 parties are needed, got %d", n))
	}
	if conf.MyID < 0 || conf.MyID >= n {
		return invalidID(conf.MyID, xerrors.Errorf("own id %d not in [0, %d)", conf.MyID, n))
	}

	seen := make(map[int]struct{}, n)
	for _, p := range conf.Parties {
		if p.ID < 0 || p.ID >= n {
			return invalidID(p.ID, xerrors.Errorf("id %d not in [0, %d)", p.ID, n))
		}
		_, dup := seen[p.ID]
		if dup {
			return invalidID(p.ID, xerrors.Errorf("id %d listed twice", p.ID))
		}
		seen[p.ID] = struct{}{}

		if !ValidHost(p.Address) {
			return peer.NewRunError(peer.ErrInvalidAddress, peer.StageBootstrap, p.ID,
				xerrors.Errorf("%q is neither an IPv4 address nor a hostname", p.Address))
		}
		if p.Identity != "" && !common.IsHexAddress(p.Identity) {
			return peer.NewRunError(peer.ErrInvalidAddress, peer.StageBootstrap, p.ID,
				xerrors.Errorf("%q is not a hex identity", p.Identity))
		}
	}

	return nil
}

// ValidHost tells if host is an IPv4 literal or a hostname as of RFC 1123.
// Dotted numbers that don't form an IPv4 address are rejected.
func ValidHost(host string) bool {
	if host == "" || len(host) > maxHostnameLength {
		return false
	}

	numeric := strings.Trim(host, "0123456789.") == ""
	if numeric {
		ip := net.ParseIP(host)
		return ip != nil && ip.To4() != nil
	}

	for _, label := range strings.Split(host, ".") {
		if len(label) == 0 || len(label) > maxLabelLength {
			return false
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for _, c := range label {
			alnum := c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
			if !alnum && c != '-' {
				return false
			}
		}
	}

	return true
}

// PartyTable returns the table of the parties, whose digest is compared during
// the handshake. Identities are normalized so that their case doesn't matter.
func PartyTable(parties []peer.Party) *storage.Table {
	table := storage.NewTable()

	for _, p := range parties {
		identity := ""
		if p.Identity != "" {
			identity = common.HexToAddress(p.Identity).Hex()
		}
		table.Put(fmt.Sprintf("party/%d", p.ID), p.HostPort()+"|"+identity)
	}

	return table
}

func invalidID(id int, err error) error {
	return peer.NewRunError(peer.ErrInvalidPartyID, peer.StageBootstrap, id, err)
}
