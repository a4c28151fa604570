package mpc

import (
	"math"
	"testing"

	"github.com/montanaflynn/stats"
	"github.com/stretchr/testify/require"
)

func Test_Split_Combine(t *testing.T) {
	values := []uint64{0, 1, 42, math.MaxUint64, 1 << 63}

	for _, domain := range []Domain{Arithmetic, Boolean} {
		for _, n := range []int{1, 2, 5} {
			shares, err := Split(values, n, domain, nil)
			require.NoError(t, err)
			require.Len(t, shares, n)

			for _, s := range shares {
				require.Equal(t, domain, s.Domain())
				require.Equal(t, len(values), s.Len())
			}

			res, err := Combine(shares...)
			require.NoError(t, err)
			require.Equal(t, values, res)
		}
	}
}

func Test_Split_Invalid(t *testing.T) {
	_, err := Split([]uint64{1}, 0, Arithmetic, nil)
	require.Error(t, err)

	_, err = Split([]uint64{1}, 2, Domain(7), nil)
	require.Error(t, err)
}

// every single share of a constant must look uniformly random
func Test_Split_Shares_Uniform(t *testing.T) {
	values := make([]uint64, 4096)

	shares, err := Split(values, 3, Arithmetic, nil)
	require.NoError(t, err)

	for _, s := range shares {
		top := make(stats.Float64Data, s.Len())
		for i, v := range s.Values() {
			top[i] = float64(v >> 56)
		}

		mean, err := stats.Mean(top)
		require.NoError(t, err)
		require.InDelta(t, 127.5, mean, 8)

		stdev, err := stats.StandardDeviation(top)
		require.NoError(t, err)
		// uniform on [0, 255]: 73.9
		require.InDelta(t, 73.9, stdev, 6)
	}
}

func Test_Combine_Mismatch(t *testing.T) {
	a := NewShareVector(Arithmetic, []uint64{1, 2})
	b := NewShareVector(Boolean, []uint64{1, 2})
	c := NewShareVector(Arithmetic, []uint64{1})

	_, err := Combine()
	require.Error(t, err)

	_, err = Combine(a, b)
	require.Error(t, err)

	_, err = Combine(a, c)
	require.Error(t, err)
}

func Test_ShareVector_Copies(t *testing.T) {
	values := []uint64{1, 2, 3}
	s := NewShareVector(Arithmetic, values)

	values[0] = 100
	require.Equal(t, []uint64{1, 2, 3}, s.Values())

	out := s.Values()
	out[1] = 100
	require.Equal(t, []uint64{1, 2, 3}, s.Values())

	require.Equal(t, "{arithmetic shares of 3 bins}", s.String())
}

func Test_Sum_Wraparound(t *testing.T) {
	a := NewShareVector(Arithmetic, []uint64{math.MaxUint64, 3})
	b := NewShareVector(Arithmetic, []uint64{2, 4})

	total, err := Sum(a, b)
	require.NoError(t, err)
	require.Equal(t, Arithmetic, total.Domain())
	require.Equal(t, []uint64{1, 7}, total.Values())
}

func Test_Sum_Invalid(t *testing.T) {
	_, err := Sum()
	require.Error(t, err)

	_, err = Sum(NewShareVector(Boolean, []uint64{1}), NewShareVector(Boolean, []uint64{1}))
	require.Error(t, err)

	_, err = Sum(NewShareVector(Arithmetic, []uint64{1}), NewShareVector(Arithmetic, []uint64{1, 2}))
	require.Error(t, err)
}

func Test_Sum_Of_Shares_Is_Share_Of_Sum(t *testing.T) {
	x := []uint64{5, math.MaxUint64, 0}
	y := []uint64{7, 10, 0}

	xs, err := Split(x, 3, Arithmetic, nil)
	require.NoError(t, err)
	ys, err := Split(y, 3, Arithmetic, nil)
	require.NoError(t, err)

	totals := make([]ShareVector, 3)
	for i := range totals {
		totals[i], err = Sum(xs[i], ys[i])
		require.NoError(t, err)
	}

	res, err := Combine(totals...)
	require.NoError(t, err)
	require.Equal(t, []uint64{12, 9, 0}, res)
}

func Test_Mask_Words(t *testing.T) {
	require.Equal(t, []uint64{0, math.MaxUint64, math.MaxUint64, 0}, maskWords([]uint64{0, 1, 3, 2}))
}
