package mesh

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/binary"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.dedis.ch/mpchist/peer"
	"go.dedis.ch/mpchist/peer/impl/message"
	"go.dedis.ch/mpchist/peer/impl/prg"
	"go.dedis.ch/mpchist/transport"
	"go.dedis.ch/mpchist/types"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/xerrors"
)

const nonceSize = 32

const keyInfo = "mpchist/channel-keys"

// Seeds are the PRG seeds shared with one peer. Out seeds the randomness this
// party sends the peer, In the randomness the peer sends this party.
type Seeds struct {
	Out []byte
	In  []byte
}

// handshake authenticates a fresh channel and derives its keys. The dialer
// speaks first in each step. expected is the id of the dialed party, or
// peer.NoParty on the accepting side.
type handshake struct {
	myID     int
	n        int
	session  string
	digest   []byte
	key      *ecdsa.PrivateKey
	parties  map[int]peer.Party
	dialer   bool
	expected int
	deadline time.Time
}

type link struct {
	peer  int
	conn  transport.Conn
	seeds Seeds
	err   error
}

func (h handshake) run(conn transport.Conn) link {
	res := link{peer: h.expected, conn: conn}

	secret, mine, err := h.hello()
	if err != nil {
		res.err = err
		return res
	}

	theirs, err := exchange(h, conn, mine)
	if err != nil {
		res.err = xerrors.Errorf("hello: %w", err)
		return res
	}

	if !h.dialer {
		res.peer = theirs.PartyID
	}

	err = h.checkHello(theirs)
	if err != nil {
		res.err = err
		return res
	}

	lo, hi := mine, theirs
	if theirs.PartyID < h.myID {
		lo, hi = theirs, mine
	}
	transcript := transcriptHash(lo, hi)

	sig, err := crypto.Sign(signedHash(transcript, h.myID), h.key)
	if err != nil {
		res.err = xerrors.Errorf("failed to sign transcript: %w", err)
		return res
	}

	auth, err := exchange(h, conn, types.AuthMessage{Signature: sig})
	if err != nil {
		res.err = xerrors.Errorf("auth: %w", err)
		return res
	}

	err = h.checkAuth(theirs.PartyID, transcript, auth)
	if err != nil {
		res.err = err
		return res
	}

	shared, err := curve25519.X25519(secret, theirs.Ephemeral)
	if err != nil {
		res.err = xerrors.Errorf("key agreement failed: %w", err)
		return res
	}

	res.seeds, err = seal(conn, shared, transcript, h.myID < theirs.PartyID)
	if err != nil {
		res.err = err
		return res
	}

	// a party that rejected the handshake closes the channel instead
	_, err = exchange(h, conn, types.ReadyMessage{})
	if err != nil {
		res.err = xerrors.Errorf("party %d didn't confirm the channel: %w", theirs.PartyID, err)
		return res
	}

	return res
}

func (h handshake) hello() ([]byte, types.HelloMessage, error) {
	secret := make([]byte, curve25519.ScalarSize)
	nonce := make([]byte, nonceSize)

	_, err := rand.Read(secret)
	if err != nil {
		return nil, types.HelloMessage{}, xerrors.Errorf("failed to generate ephemeral key: %w", err)
	}
	_, err = rand.Read(nonce)
	if err != nil {
		return nil, types.HelloMessage{}, xerrors.Errorf("failed to generate nonce: %w", err)
	}

	public, err := curve25519.X25519(secret, curve25519.Basepoint)
	if err != nil {
		return nil, types.HelloMessage{}, xerrors.Errorf("failed to generate ephemeral key: %w", err)
	}

	return secret, types.HelloMessage{
		PartyID:     h.myID,
		Session:     h.session,
		Ephemeral:   public,
		Nonce:       nonce,
		TableDigest: h.digest,
	}, nil
}

func (h handshake) checkHello(theirs types.HelloMessage) error {
	if theirs.PartyID < 0 || theirs.PartyID >= h.n || theirs.PartyID == h.myID {
		return xerrors.Errorf("unexpected party id %d", theirs.PartyID)
	}
	if h.dialer && theirs.PartyID != h.expected {
		return xerrors.Errorf("dialed party %d but party %d answered", h.expected, theirs.PartyID)
	}
	if !h.dialer && theirs.PartyID < h.myID {
		return xerrors.Errorf("party %d should be accepted by %d, not dial it", theirs.PartyID, h.myID)
	}
	if !bytes.Equal(theirs.TableDigest, h.digest) {
		return xerrors.Errorf("party %d was started with another party table", theirs.PartyID)
	}
	if len(theirs.Ephemeral) != curve25519.PointSize || len(theirs.Nonce) != nonceSize {
		return xerrors.Errorf("malformed hello from party %d", theirs.PartyID)
	}
	return nil
}

func (h handshake) checkAuth(id int, transcript []byte, auth types.AuthMessage) error {
	pub, err := crypto.SigToPub(signedHash(transcript, id), auth.Signature)
	if err != nil {
		return xerrors.Errorf("invalid signature of party %d: %w", id, err)
	}

	pinned := h.parties[id].Identity
	if pinned != "" && crypto.PubkeyToAddress(*pub) != common.HexToAddress(pinned) {
		return xerrors.Errorf("party %d signed with %s, expected %s",
			id, crypto.PubkeyToAddress(*pub).Hex(), common.HexToAddress(pinned).Hex())
	}

	return nil
}

// exchange sends mine and receives the peer's message of the same type, the
// dialer sending first.
func exchange[T types.Message](h handshake, conn transport.Conn, mine T) (T, error) {
	var zero T

	timeout := time.Until(h.deadline)
	if timeout <= 0 {
		return zero, transport.TimeoutError(0)
	}

	msg, err := message.Encode(mine)
	if err != nil {
		return zero, err
	}
	header := transport.NewHeader(h.myID, h.expected, 0)
	pkt := transport.Packet{Header: &header, Msg: &msg}

	if h.dialer {
		err = conn.Send(pkt, timeout)
		if err != nil {
			return zero, err
		}
	}

	received, err := conn.Recv(timeout)
	if err != nil {
		return zero, err
	}

	if !h.dialer {
		err = conn.Send(pkt, timeout)
		if err != nil {
			return zero, err
		}
	}

	return message.Decode[T](received.Msg)
}

// transcriptHash binds both hellos, ordered by party id.
func transcriptHash(lo, hi types.HelloMessage) []byte {
	return crypto.Keccak256(
		[]byte("mpchist/handshake"),
		idBytes(lo.PartyID), lo.Ephemeral, lo.Nonce,
		idBytes(hi.PartyID), hi.Ephemeral, hi.Nonce,
		lo.TableDigest,
	)
}

// signedHash is what party id signs: a signature can't be replayed by the
// other end of the channel.
func signedHash(transcript []byte, id int) []byte {
	return crypto.Keccak256(transcript, idBytes(id))
}

// seal derives the channel keys and the PRG seeds of the pair, and switches
// the channel to authenticated encryption.
func seal(conn transport.Conn, shared, transcript []byte, isLow bool) (Seeds, error) {
	const size = chacha20poly1305.KeySize

	material, err := prg.Derive(shared, transcript, keyInfo, 2*size+2*prg.SeedSize)
	if err != nil {
		return Seeds{}, err
	}

	loToHi := material[:size]
	hiToLo := material[size : 2*size]
	seedLoToHi := material[2*size : 2*size+prg.SeedSize]
	seedHiToLo := material[2*size+prg.SeedSize:]

	sendKey, recvKey := loToHi, hiToLo
	seeds := Seeds{Out: seedLoToHi, In: seedHiToLo}
	if !isLow {
		sendKey, recvKey = hiToLo, loToHi
		seeds = Seeds{Out: seedHiToLo, In: seedLoToHi}
	}

	send, err := chacha20poly1305.New(sendKey)
	if err != nil {
		return Seeds{}, xerrors.Errorf("failed to create channel cipher: %w", err)
	}
	recv, err := chacha20poly1305.New(recvKey)
	if err != nil {
		return Seeds{}, xerrors.Errorf("failed to create channel cipher: %w", err)
	}

	conn.Seal(send, recv)

	return seeds, nil
}

func idBytes(id int) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(id))
	return buf[:]
}
