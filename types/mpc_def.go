package types

// HelloMessage opens the handshake of a party channel.
type HelloMessage struct {
	PartyID int

	// Session is the sender's run tag, only used to correlate logs.
	Session string

	// Ephemeral is the sender's X25519 public key for this channel.
	Ephemeral []byte

	Nonce []byte

	// TableDigest is the digest of the party table the sender was started
	// with. Both ends must agree on it.
	TableDigest []byte
}

// AuthMessage carries the signature over the handshake transcript.
type AuthMessage struct {
	Signature []byte
}

// ReadyMessage confirms, over the sealed channel, that the handshake
// succeeded on the sender's side.
type ReadyMessage struct{}

// BinCountMessage announces the number of histogram bins of the sender.
type BinCountMessage struct {
	Bins int
}

// OpenMessage reveals the sender's shares of a vector.
type OpenMessage struct {
	Domain uint8
	Values []uint64
}

// BeaverMessage carries the masked inputs of a batch of AND gates.
type BeaverMessage struct {
	D []uint64
	E []uint64
}

// BaseOTSetupMessage is the first base OT message: the sender's public point.
type BaseOTSetupMessage struct {
	Point []byte
}

// BaseOTChoiceMessage carries the receiver's blinded choice points.
type BaseOTChoiceMessage struct {
	Points [][]byte
}

// OTExtendMessage carries the extension receiver's column matrix.
type OTExtendMessage struct {
	Columns [][]byte
}

// OTCorrectMessage carries the extension sender's correction bits.
type OTCorrectMessage struct {
	Corrections []byte
}
