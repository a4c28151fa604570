package types

// Message defines the type of message that can be marshalled/unmarshalled over
// the network.
type Message interface {
	NewEmpty() Message
	Name() string
	String() string
}

// Record is a party's private input: one count per histogram bin. It is never
// transmitted.
type Record []uint64

// Result is the opened histogram: the aggregated count of every bin whose
// count is strictly above the threshold, 0 otherwise.
type Result []uint64
