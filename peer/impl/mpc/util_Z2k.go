package mpc

// Word-wise helpers over Z_2^64 and GF(2)^64. All of them allocate their
// result and never modify their inputs.

// addZ2k adds two vectors in Z_2^64, returns a + b mod 2^64
func addZ2k(a, b []uint64) []uint64 {
	res := make([]uint64, len(a))
	for i := range a {
		res[i] = a[i] + b[i]
	}
	return res
}

// subZ2k subtracts two vectors in Z_2^64, returns a - b mod 2^64
func subZ2k(a, b []uint64) []uint64 {
	res := make([]uint64, len(a))
	for i := range a {
		res[i] = a[i] - b[i]
	}
	return res
}

func xorWords(a, b []uint64) []uint64 {
	res := make([]uint64, len(a))
	for i := range a {
		res[i] = a[i] ^ b[i]
	}
	return res
}

func andWords(a, b []uint64) []uint64 {
	res := make([]uint64, len(a))
	for i := range a {
		res[i] = a[i] & b[i]
	}
	return res
}

func shlWords(a []uint64, s uint) []uint64 {
	res := make([]uint64, len(a))
	for i := range a {
		res[i] = a[i] << s
	}
	return res
}

func shrWords(a []uint64, s uint) []uint64 {
	res := make([]uint64, len(a))
	for i := range a {
		res[i] = a[i] >> s
	}
	return res
}

// maskWords expands bit 0 of every word to the whole word. Applied to every
// XOR share of a bit, it gives XOR shares of the expanded bit.
func maskWords(a []uint64) []uint64 {
	res := make([]uint64, len(a))
	for i := range a {
		res[i] = -(a[i] & 1)
	}
	return res
}

func concatWords(parts ...[]uint64) []uint64 {
	size := 0
	for _, p := range parts {
		size += len(p)
	}

	res := make([]uint64, 0, size)
	for _, p := range parts {
		res = append(res, p...)
	}
	return res
}

// splitWords cuts a into consecutive chunks of the given sizes.
func splitWords(a []uint64, sizes ...int) [][]uint64 {
	res := make([][]uint64, len(sizes))
	offset := 0
	for i, size := range sizes {
		res[i] = a[offset : offset+size]
		offset += size
	}
	return res
}
