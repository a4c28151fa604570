package message

import (
	"encoding/json"

	"go.dedis.ch/mpchist/transport"
	"go.dedis.ch/mpchist/types"
	"golang.org/x/xerrors"
)

// Encode creates a new transport message for the given payload
func Encode(payload types.Message) (transport.Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return transport.Message{}, err
	}
	return transport.Message{Type: payload.Name(), Payload: data}, nil
}

// Decode parses a transport message into a T. It fails if the message is of
// another type.
func Decode[T types.Message](msg *transport.Message) (T, error) {
	var zero T

	if msg == nil {
		return zero, xerrors.Errorf("empty message, expected %s", zero.Name())
	}
	if msg.Type != zero.Name() {
		return zero, xerrors.Errorf("unexpected message %s, expected %s", msg.Type, zero.Name())
	}

	empty := zero.NewEmpty()
	err := json.Unmarshal(msg.Payload, empty)
	if err != nil {
		return zero, xerrors.Errorf("failed to unmarshal %s: %w", msg.Type, err)
	}

	typed, ok := any(empty).(*T)
	if !ok {
		return zero, xerrors.Errorf("wrong type: %T", empty)
	}

	return *typed, nil
}
