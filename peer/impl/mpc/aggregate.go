package mpc

import "golang.org/x/xerrors"

// Sum adds arithmetic share vectors bin by bin, mod 2^64. It is local: the
// sum of the shares is a share of the sum.
func Sum(shares ...ShareVector) (ShareVector, error) {
	if len(shares) == 0 {
		return ShareVector{}, xerrors.Errorf("nothing to sum")
	}

	err := checkCompatible(shares)
	if err != nil {
		return ShareVector{}, err
	}
	if shares[0].domain != Arithmetic {
		return ShareVector{}, xerrors.Errorf("can't sum %s shares", shares[0].domain)
	}

	total := make([]uint64, shares[0].Len())
	for _, s := range shares {
		total = addZ2k(total, s.values)
	}

	return ShareVector{domain: Arithmetic, values: total}, nil
}
