package ot

import (
	"encoding/binary"
	"math/bits"

	"github.com/zeebo/blake3"
	"go.dedis.ch/mpchist/peer/impl/prg"
	"golang.org/x/xerrors"
)

const rowSize = Kappa / 8

const columnLabel = "mpchist/iknp-column"

type row [rowSize]byte

// ExtSender is the sender of an IKNP extension. It plays the receiver of the
// base OTs, with its secret delta as choice bits.
//
// For every extended OT i with receiver choice r_i and sender input x_i, the
// sender outputs s_i and the receiver outputs s_i ^ (r_i & x_i).
type ExtSender struct {
	delta   row
	columns []*prg.Stream
	calls   uint64
}

// NewExtSender returns the sender of delta, where keys[j] is the base OT key
// of index delta_j.
func NewExtSender(delta []byte, keys [][]byte) (*ExtSender, error) {
	if len(delta) != rowSize {
		return nil, xerrors.Errorf("delta must be %d bytes, got %d", rowSize, len(delta))
	}
	if len(keys) != Kappa {
		return nil, xerrors.Errorf("expected %d base keys, got %d", Kappa, len(keys))
	}

	s := &ExtSender{
		columns: make([]*prg.Stream, Kappa),
	}
	copy(s.delta[:], delta)

	for j, key := range keys {
		stream, err := prg.NewStream(key, columnLabel)
		if err != nil {
			return nil, xerrors.Errorf("column %d: %w", j, err)
		}
		s.columns[j] = stream
	}

	return s, nil
}

// DeltaChoices returns the bits of delta as base OT choices.
func DeltaChoices(delta []byte) []bool {
	choices := make([]bool, 8*len(delta))
	for j := range choices {
		choices[j] = delta[j/8]>>(j%8)&1 == 1
	}
	return choices
}

// Correlate consumes the receiver's columns and the sender's input bits x, one
// bit per OT. It returns the corrections to send back and the sender's output
// bits.
func (s *ExtSender) Correlate(columns [][]byte, x []byte) (corrections, out []byte, err error) {
	size := len(x)
	if len(columns) != Kappa {
		return nil, nil, xerrors.Errorf("expected %d columns, got %d", Kappa, len(columns))
	}

	q := make([][]byte, Kappa)
	for j, u := range columns {
		if len(u) != size {
			return nil, nil, xerrors.Errorf("column %d has %d bytes, expected %d", j, len(u), size)
		}

		// q_j = G(k_j) ^ delta_j * u_j
		mask := -(s.delta[j/8] >> (j % 8) & 1)
		q[j] = s.columns[j].Bytes(size)
		for y := range q[j] {
			q[j][y] ^= u[y] & mask
		}
	}

	rows := transpose(q, 8*size)
	call := s.calls
	s.calls++

	corrections = make([]byte, size)
	out = make([]byte, size)

	for i, qi := range rows {
		var qd row
		for b := range qd {
			qd[b] = qi[b] ^ s.delta[b]
		}

		m0 := hashRow(call, i, qi)
		m1 := hashRow(call, i, qd)
		xi := x[i/8] >> (i % 8) & 1

		corrections[i/8] |= (m0 ^ m1 ^ xi) << (i % 8)
		out[i/8] |= m0 << (i % 8)
	}

	return corrections, out, nil
}

// ExtReceiver is the receiver of an IKNP extension. It plays the sender of the
// base OTs.
type ExtReceiver struct {
	columns [][2]*prg.Stream
	calls   uint64
}

// Pending is an extension waiting for the sender's corrections.
type Pending struct {
	call    uint64
	choices []byte
	rows    []row
}

// NewExtReceiver returns the receiver from both keys of every base OT.
func NewExtReceiver(keys [][2][]byte) (*ExtReceiver, error) {
	if len(keys) != Kappa {
		return nil, xerrors.Errorf("expected %d base keys, got %d", Kappa, len(keys))
	}

	r := &ExtReceiver{
		columns: make([][2]*prg.Stream, Kappa),
	}

	for j, pair := range keys {
		for c, key := range pair {
			stream, err := prg.NewStream(key, columnLabel)
			if err != nil {
				return nil, xerrors.Errorf("column %d/%d: %w", j, c, err)
			}
			r.columns[j][c] = stream
		}
	}

	return r, nil
}

// Extend starts len(choices)*8 OTs with the given choice bits. The returned
// columns are sent to the sender.
func (r *ExtReceiver) Extend(choices []byte) ([][]byte, *Pending) {
	size := len(choices)

	t := make([][]byte, Kappa)
	u := make([][]byte, Kappa)

	for j := range r.columns {
		t[j] = r.columns[j][0].Bytes(size)
		g1 := r.columns[j][1].Bytes(size)

		// u_j = G(k_j^0) ^ G(k_j^1) ^ r
		u[j] = make([]byte, size)
		for y := range u[j] {
			u[j][y] = t[j][y] ^ g1[y] ^ choices[y]
		}
	}

	pending := &Pending{
		call:    r.calls,
		choices: append([]byte(nil), choices...),
		rows:    transpose(t, 8*size),
	}
	r.calls++

	return u, pending
}

// Finish returns the receiver's output bits from the sender's corrections.
func (r *ExtReceiver) Finish(p *Pending, corrections []byte) ([]byte, error) {
	size := len(p.choices)
	if len(corrections) != size {
		return nil, xerrors.Errorf("expected %d correction bytes, got %d", size, len(corrections))
	}

	out := make([]byte, size)
	for i, ti := range p.rows {
		ri := p.choices[i/8] >> (i % 8) & 1
		yi := corrections[i/8] >> (i % 8) & 1

		out[i/8] |= (hashRow(p.call, i, ti) ^ (ri & yi)) << (i % 8)
	}

	return out, nil
}

// transpose turns Kappa columns of m bits into m rows of Kappa bits.
func transpose(columns [][]byte, m int) []row {
	rows := make([]row, m)

	for j, col := range columns {
		for y, b := range col {
			for b != 0 {
				i := 8*y + bits.TrailingZeros8(b)
				rows[i][j/8] |= 1 << (j % 8)
				b &= b - 1
			}
		}
	}

	return rows
}

// hashRow is the correlation-robust hash of row i of extension call, reduced
// to one bit.
func hashRow(call uint64, i int, r row) byte {
	var buf [16 + rowSize]byte
	binary.LittleEndian.PutUint64(buf[0:], call)
	binary.LittleEndian.PutUint64(buf[8:], uint64(i))
	copy(buf[16:], r[:])

	sum := blake3.Sum256(buf[:])
	return sum[0] & 1
}
