package ot

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_BaseOT_Receiver_Learns_Chosen_Key(t *testing.T) {
	choices := []bool{false, true, true, false, true}

	sender, err := NewBaseSender(nil)
	require.NoError(t, err)

	receiver := NewBaseReceiver(choices)
	points, err := receiver.Choose(sender.Point(), nil)
	require.NoError(t, err)
	require.Len(t, points, len(choices))

	keys, err := sender.Keys(points)
	require.NoError(t, err)

	for j, c := range choices {
		chosen := keys[j][bit(c)]
		other := keys[j][1-bit(c)]

		require.Len(t, chosen, KeySize)
		require.Equal(t, chosen, receiver.Keys()[j])
		require.NotEqual(t, other, receiver.Keys()[j])
	}
}

func Test_BaseOT_Invalid_Points(t *testing.T) {
	receiver := NewBaseReceiver([]bool{true})
	_, err := receiver.Choose([]byte{4, 1, 2, 3}, nil)
	require.Error(t, err)

	sender, err := NewBaseSender(nil)
	require.NoError(t, err)
	_, err = sender.Keys([][]byte{{1, 2, 3}})
	require.Error(t, err)
}

func Test_Transpose(t *testing.T) {
	columns := make([][]byte, Kappa)
	for j := range columns {
		columns[j] = make([]byte, 2)
	}
	// bit 9 of column 3, bit 0 of column 127
	columns[3][1] = 0x02
	columns[127][0] = 0x01

	rows := transpose(columns, 16)
	require.Len(t, rows, 16)

	require.Equal(t, byte(0x08), rows[9][0])
	require.Equal(t, byte(0x80), rows[0][15])

	for i, r := range rows {
		if i == 0 || i == 9 {
			continue
		}
		require.Equal(t, row{}, r)
	}
}

func Test_Extension_Correlation(t *testing.T) {
	sender, receiver := setupExtension(t)

	// several calls keep both sides in step
	for _, size := range []int{1, 16, 40} {
		choices := randomBytes(t, size)
		x := randomBytes(t, size)

		columns, pending := receiver.Extend(choices)
		corrections, senderOut, err := sender.Correlate(columns, x)
		require.NoError(t, err)

		receiverOut, err := receiver.Finish(pending, corrections)
		require.NoError(t, err)

		for y := 0; y < size; y++ {
			require.Equal(t, choices[y]&x[y], senderOut[y]^receiverOut[y])
		}
	}
}

func Test_Extension_Size_Mismatch(t *testing.T) {
	sender, receiver := setupExtension(t)

	columns, pending := receiver.Extend(make([]byte, 4))

	_, _, err := sender.Correlate(columns, make([]byte, 3))
	require.Error(t, err)

	_, _, err = sender.Correlate(columns[:10], make([]byte, 4))
	require.Error(t, err)

	_, err = receiver.Finish(pending, make([]byte, 5))
	require.Error(t, err)
}

func Test_ExtSender_Invalid_Setup(t *testing.T) {
	_, err := NewExtSender(make([]byte, 3), nil)
	require.Error(t, err)

	_, err = NewExtSender(make([]byte, rowSize), make([][]byte, 3))
	require.Error(t, err)

	_, err = NewExtReceiver(make([][2][]byte, 3))
	require.Error(t, err)
}

// setupExtension runs the base OTs with roles reversed and returns both ends
// of the extension.
func setupExtension(t *testing.T) (*ExtSender, *ExtReceiver) {
	delta := randomBytes(t, rowSize)

	base, err := NewBaseSender(nil)
	require.NoError(t, err)

	choice := NewBaseReceiver(DeltaChoices(delta))
	points, err := choice.Choose(base.Point(), nil)
	require.NoError(t, err)

	keys, err := base.Keys(points)
	require.NoError(t, err)

	sender, err := NewExtSender(delta, choice.Keys())
	require.NoError(t, err)

	receiver, err := NewExtReceiver(keys)
	require.NoError(t, err)

	return sender, receiver
}

func randomBytes(t *testing.T, n int) []byte {
	buf := make([]byte, n)
	_, err := rand.Read(buf)
	require.NoError(t, err)
	return buf
}
