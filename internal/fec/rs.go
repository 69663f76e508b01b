package fec

// Reed-Solomon(255,223) byte-oriented codec used as the RS-LDPC frame's
// outer code. This is a from-scratch Go port of the classic Phil Karn
// (KA9Q) GF(256) Reed-Solomon codec that fx25_init.go/fx25_encode.go wrap
// via cgo for FX.25 (RS(255,239) / RS(255,223) / RS(255,191)). The table
// construction and systematic encode below follow fx25_init.go's
// init_rs_char and fx25_encode.go's encode_rs_char one-for-one, translated
// off the C struct rs/cgo calls onto plain Go slices. The decode half
// (syndromes, Berlekamp-Massey, Chien search, Forney) is the companion
// half of the same public-domain algorithm, linked in as rscode/ecc.h by
// the cgo build this ports; no Go package wraps it, so it is reimplemented
// here in native arithmetic rather than dropped.
//
// SPDX-FileCopyrightText: 2002 Phil Karn, KA9Q

const (
	rsSymbolBits = 8
	rsGFPoly     = 0x11d // field generator polynomial, same as FX.25's table
	rsFCR        = 1     // first consecutive root
	rsPrim       = 1     // primitive element
	rsNN         = 255    // 2^8 - 1
	rsA0         = rsNN   // index-of(0)
)

// rsCodec holds the precomputed Galois-field tables for one (255, 255-nroots)
// Reed-Solomon code. M and P in fec.go (223 message bytes, 32 parity bytes) are
// fixed; nroots is always 32 in this module, but the table builder keeps
// the general shape init_rs_char has.
type rsCodec struct {
	nroots  int
	alphaTo []byte // nn+1 entries
	indexOf []byte // nn+1 entries
	genpoly []byte // nroots+1 entries, in index form
	iprim   int
}

// newRSCodec builds the GF(256) log/antilog tables and generator polynomial
// for an RS code with the given number of parity (root) bytes.
func newRSCodec(nroots int) *rsCodec {
	rs := &rsCodec{
		nroots:  nroots,
		alphaTo: make([]byte, rsNN+1),
		indexOf: make([]byte, rsNN+1),
		genpoly: make([]byte, nroots+1),
	}

	rs.indexOf[0] = byte(rsNN)
	rs.alphaTo[rsNN] = 0
	sr := 1
	for i := 0; i < rsNN; i++ {
		rs.indexOf[sr] = byte(i)
		rs.alphaTo[i] = byte(sr)
		sr <<= 1
		if sr&(1<<rsSymbolBits) != 0 {
			sr ^= rsGFPoly
		}
		sr &= rsNN
	}
	if sr != 1 {
		panic("fec: RS field generator polynomial is not primitive")
	}

	iprim := 1
	for (iprim % rsPrim) != 0 {
		iprim += rsNN
	}
	rs.iprim = iprim / rsPrim

	rs.genpoly[0] = 1
	for i, root := 0, rsFCR*rsPrim; i < nroots; i, root = i+1, root+rsPrim {
		rs.genpoly[i+1] = 1
		for j := i; j > 0; j-- {
			if rs.genpoly[j] != 0 {
				rs.genpoly[j] = rs.genpoly[j-1] ^ rs.alphaTo[rs.modnn(int(rs.indexOf[rs.genpoly[j]])+root)]
			} else {
				rs.genpoly[j] = rs.genpoly[j-1]
			}
		}
		rs.genpoly[0] = rs.alphaTo[rs.modnn(int(rs.indexOf[rs.genpoly[0]])+root)]
	}
	for i := 0; i <= nroots; i++ {
		rs.genpoly[i] = rs.indexOf[rs.genpoly[i]]
	}

	return rs
}

func (rs *rsCodec) modnn(x int) int {
	for x >= rsNN {
		x -= rsNN
		x = (x >> rsSymbolBits) + (x & rsNN)
	}
	return x
}

// encode computes the nroots parity bytes for a dataLen-byte systematic
// message, mirroring encode_rs_char.
func (rs *rsCodec) encode(data []byte) []byte {
	nroots := rs.nroots
	parity := make([]byte, nroots)

	for i := range data {
		feedback := int(rs.indexOf[data[i]^parity[0]])
		if feedback != rsA0 {
			for j := 1; j < nroots; j++ {
				parity[j] ^= rs.alphaTo[rs.modnn(feedback+int(rs.genpoly[nroots-j]))]
			}
		}
		copy(parity, parity[1:])
		if feedback != rsA0 {
			parity[nroots-1] = rs.alphaTo[rs.modnn(feedback+int(rs.genpoly[0]))]
		} else {
			parity[nroots-1] = 0
		}
	}
	return parity
}

// decode performs errors-only RS decoding of codeword (data||parity) in
// place, returning the number of corrected symbols, or -1 if the block is
// uncorrectable (too many errors to locate uniquely). This is the standard
// Berlekamp-Massey / Chien-search / Forney decoder from the same
// public-domain Karn codec fx25_init.go/fx25_encode.go link in via cgo.
func (rs *rsCodec) decode(codeword []byte) int {
	nn := rsNN
	nroots := rs.nroots

	syn := make([]int, nroots)
	for i := 0; i < nroots; i++ {
		syn[i] = int(codeword[0])
	}
	for j := 1; j < nn; j++ {
		for i := 0; i < nroots; i++ {
			if syn[i] == 0 {
				syn[i] = int(codeword[j])
			} else {
				syn[i] = int(codeword[j]) ^ int(rs.alphaTo[rs.modnn(int(rs.indexOf[syn[i]])+(rsFCR+i)*rsPrim)])
			}
		}
	}

	synError := 0
	s := make([]int, nroots)
	for i := 0; i < nroots; i++ {
		synError |= syn[i]
		s[i] = int(rs.indexOf[syn[i]])
	}
	if synError == 0 {
		// Codeword is already consistent; nothing to correct.
		return 0
	}

	lambda := make([]int, nroots+1)
	lambda[0] = 1

	b := make([]int, nroots+1)
	for i := 0; i <= nroots; i++ {
		b[i] = int(rs.indexOf[byte(lambda[i])])
	}

	r, el := 0, 0
	t := make([]int, nroots+1)
	for r < nroots {
		r++
		discrR := 0
		for i := 0; i < r; i++ {
			if lambda[i] != 0 && s[r-i-1] != rsA0 {
				discrR ^= int(rs.alphaTo[rs.modnn(int(rs.indexOf[byte(lambda[i])])+s[r-i-1])])
			}
		}
		discrR = int(rs.indexOf[byte(discrR)])

		if discrR == rsA0 {
			copy(b[1:], b[:nroots])
			b[0] = rsA0
		} else {
			t[0] = lambda[0]
			for i := 0; i < nroots; i++ {
				if b[i] != rsA0 {
					t[i+1] = lambda[i+1] ^ int(rs.alphaTo[rs.modnn(discrR+b[i])])
				} else {
					t[i+1] = lambda[i+1]
				}
			}
			if 2*el <= r-1 {
				el = r - el
				for i := 0; i <= nroots; i++ {
					if lambda[i] == 0 {
						b[i] = rsA0
					} else {
						b[i] = rs.modnn(int(rs.indexOf[byte(lambda[i])]) - discrR + nn)
					}
				}
			} else {
				copy(b[1:], b[:nroots])
				b[0] = rsA0
			}
			copy(lambda, t)
		}
	}

	degLambda := 0
	for i := 0; i <= nroots; i++ {
		lambda[i] = int(rs.indexOf[byte(lambda[i])])
		if lambda[i] != rsA0 {
			degLambda = i
		}
	}

	reg := make([]int, nroots+1)
	copy(reg[1:], lambda[1:nroots+1])

	root := make([]int, nroots)
	loc := make([]int, nroots)
	count := 0
	for i, k := 1, rs.iprim-1; i <= nn; i, k = i+1, rs.modnn(k+rs.iprim) {
		q := 1
		for j := degLambda; j > 0; j-- {
			if reg[j] != rsA0 {
				reg[j] = rs.modnn(reg[j] + j)
				q ^= int(rs.alphaTo[reg[j]])
			}
		}
		if q != 0 {
			continue
		}
		root[count] = i
		loc[count] = k
		count++
		if count == degLambda {
			break
		}
	}
	if degLambda != count {
		return -1 // uncorrectable: too many errors
	}

	omega := make([]int, nroots+1)
	degOmega := 0
	for i := 0; i < nroots; i++ {
		tmp := 0
		lim := degLambda
		if i < lim {
			lim = i
		}
		for j := lim; j >= 0; j-- {
			if s[i-j] != rsA0 && lambda[j] != rsA0 {
				tmp ^= int(rs.alphaTo[rs.modnn(s[i-j]+lambda[j])])
			}
		}
		if tmp != 0 {
			degOmega = i
		}
		omega[i] = int(rs.indexOf[byte(tmp)])
	}
	omega[nroots] = rsA0

	for j := count - 1; j >= 0; j-- {
		num1 := 0
		for i := degOmega; i >= 0; i-- {
			if omega[i] != rsA0 {
				num1 ^= int(rs.alphaTo[rs.modnn(omega[i]+i*root[j])])
			}
		}
		num2 := int(rs.alphaTo[rs.modnn(root[j]*(rsFCR-1)+nn)])
		den := 0

		limit := degLambda
		if nroots-1 < limit {
			limit = nroots - 1
		}
		limit &^= 1
		for i := limit; i >= 0; i -= 2 {
			if lambda[i+1] != rsA0 {
				den ^= int(rs.alphaTo[rs.modnn(lambda[i+1]+i*root[j])])
			}
		}
		if den == 0 {
			return -1
		}
		if num1 != 0 {
			idx := rs.modnn(int(rs.indexOf[byte(num1)]) + int(rs.indexOf[byte(num2)]) + nn - int(rs.indexOf[byte(den)]))
			codeword[loc[j]] ^= rs.alphaTo[idx]
		}
	}

	return count
}
