package fec

import "math/rand"

// ldpcStaircase implements the LDPC-Staircase inner code described in
// SPEC_FULL.md §4.1: for repair index i (symbol esi = k+i), the parity
// check ties repair[i] to pseudo-randomly selected source symbols (N1 of
// them for i=0, N1-1 plus the previous repair symbol for i>0), forming the RFC 5170-style
// "staircase" bidiagonal structure in the repair-to-repair dependency and a
// sparse random structure in the repair-to-source dependency.
//
// The selection of which source indices feed each repair symbol is a
// function of (k, r, N1) alone, seeded from a fixed internal constant --
// NOT the caller-supplied seed. This is what makes SPEC_FULL.md's Open
// Question 3 resolution possible: the decoder can reconstruct the same
// parity-check structure the encoder used without the encoder's PRNG seed
// ever crossing the wire, exactly as the historical "stable" LDPC-Staircase
// profile the original project used.
//
// Decoding recovers missing symbols by iterative peeling over the parity
// equations: whenever an equation has exactly one unknown term, that term
// is solved for by XOR-ing the other (known) terms. This is the standard
// decoding strategy for LDPC codes on an erasure channel (a dropped frame
// is either fully present or fully absent by the time it reaches this
// layer -- bit errors within a received frame were already corrected by
// the Reed-Solomon outer code), and converges in one pass over the
// staircase-ordered repair indices plus any extra passes needed once more
// source symbols become known. Decoding fails once every remaining
// equation has two or more unknown terms; equations are not combined with
// each other to eliminate unknowns.
type ldpcStaircase struct {
	k, r       uint32
	symbolSize int
	n1         int
	selections [][]uint32 // per repair index i: source indices selected for repair[i]

	known map[uint32][]byte // symbol id -> symbol bytes, accumulated during decode
}

const ldpcInternalSeedBase int64 = 0x4458574946 // "DXWIF" -- fixed, not the caller's seed

func internalMatrixSeed(k, r uint32, n1 int) int64 {
	return ldpcInternalSeedBase ^ int64(k)<<1 ^ int64(r)<<21 ^ int64(n1)<<41
}

func newLDPCStaircase(k, r uint32, symbolSize int, _ int64, n1 int) *ldpcStaircase {
	l := &ldpcStaircase{
		k:          k,
		r:          r,
		symbolSize: symbolSize,
		n1:         n1,
		selections: make([][]uint32, r),
		known:      make(map[uint32][]byte, k+r),
	}

	rng := rand.New(rand.NewSource(internalMatrixSeed(k, r, n1)))
	for i := uint32(0); i < r; i++ {
		want := n1
		if i > 0 {
			want-- // one slot goes to the staircase link to the previous repair
		}
		l.selections[i] = selectDistinct(rng, k, want)
	}
	return l
}

// selectDistinct draws up to count distinct values from [0, limit), or all
// of [0, limit) if count >= limit.
func selectDistinct(rng *rand.Rand, limit uint32, count int) []uint32 {
	if count <= 0 || limit == 0 {
		return nil
	}
	if uint32(count) >= limit {
		all := make([]uint32, limit)
		for i := range all {
			all[i] = uint32(i)
		}
		return all
	}

	seen := make(map[uint32]bool, count)
	out := make([]uint32, 0, count)
	for len(out) < count {
		v := uint32(rng.Int63n(int64(limit)))
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// termsFor returns every symbol id participating in repair index i's parity
// equation, including the repair symbol itself (k+i).
func (l *ldpcStaircase) termsFor(i uint32) []uint32 {
	terms := make([]uint32, 0, l.n1+1)
	terms = append(terms, l.selections[i]...)
	if i > 0 {
		terms = append(terms, l.k+i-1)
	}
	terms = append(terms, l.k+i)
	return terms
}

func xorInto(dst, src []byte) {
	for i := range dst {
		dst[i] ^= src[i]
	}
}

// buildRepairSymbol computes repair symbol esi (k <= esi < n) from the
// already-populated symbols table, where symbols[0:k) are source bodies and
// symbols[k:esi) are previously built repair bodies.
func (l *ldpcStaircase) buildRepairSymbol(symbols [][]byte, esi uint32) []byte {
	i := esi - l.k
	out := make([]byte, l.symbolSize)
	for _, idx := range l.selections[i] {
		xorInto(out, symbols[idx])
	}
	if i > 0 {
		xorInto(out, symbols[l.k+i-1])
	}
	return out
}

// submit records a received symbol (source or repair) for decoding.
func (l *ldpcStaircase) submit(symbol []byte, esi uint32) {
	cp := make([]byte, len(symbol))
	copy(cp, symbol)
	l.known[esi] = cp
}

// finish runs the peeling decoder to completion and returns the k source
// symbols in order, or false if some could not be recovered.
func (l *ldpcStaircase) finish() ([][]byte, bool) {
	for progress := true; progress; {
		progress = false
		for i := uint32(0); i < l.r; i++ {
			terms := l.termsFor(i)

			var missing uint32
			missingCount := 0
			for _, t := range terms {
				if _, ok := l.known[t]; !ok {
					missing = t
					missingCount++
					if missingCount > 1 {
						break
					}
				}
			}
			if missingCount != 1 {
				continue
			}

			val := make([]byte, l.symbolSize)
			for _, t := range terms {
				if t == missing {
					continue
				}
				xorInto(val, l.known[t])
			}
			l.known[missing] = val
			progress = true
		}
	}

	out := make([][]byte, l.k)
	for esi := uint32(0); esi < l.k; esi++ {
		sym, ok := l.known[esi]
		if !ok {
			return nil, false
		}
		out[esi] = sym
	}
	return out, true
}
