// Package curve implements the secp256k1 point and scalar arithmetic used
// by the threshold scan/decrypt engine: compressed/uncompressed point
// codecs, point multiplication and addition, and scalar reduction and
// inversion modulo the group order.
package curve

import (
	"crypto/rand"
	"errors"
	"math/big"

	gethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// N is the order of the secp256k1 group. All Scalar values are kept
// reduced into [0, N).
var N = gethcrypto.S256().Params().N

// two is reused by Inverse's Fermat exponentiation.
var two = big.NewInt(2)

// ErrInvalidShareValue is returned when a share scalar falls outside the
// required range [1, N-1].
var ErrInvalidShareValue = errors.New("curve: share value must be in [1, N-1]")

// Scalar is a value in GF(N), always kept reduced. The zero value is the
// scalar 0; use ScalarFromBytes/ScalarFromInt to build non-zero values.
type Scalar struct {
	v *big.Int
}

// ScalarFromBytes interprets b as a big-endian integer and reduces it mod N.
func ScalarFromBytes(b []byte) Scalar {
	v := new(big.Int).SetBytes(b)
	v.Mod(v, N)
	return Scalar{v: v}
}

// ScalarFromInt builds a Scalar from a small signed integer, reduced mod N.
func ScalarFromInt(i int64) Scalar {
	v := big.NewInt(i)
	v.Mod(v, N)
	if v.Sign() < 0 {
		v.Add(v, N)
	}
	return Scalar{v: v}
}

// RandomScalar draws a uniformly random non-zero scalar in [1, N-1].
func RandomScalar() (Scalar, error) {
	for {
		v, err := rand.Int(rand.Reader, N)
		if err != nil {
			return Scalar{}, err
		}
		if v.Sign() != 0 {
			return Scalar{v: v}, nil
		}
	}
}

// Bytes32 serializes the scalar as 32-byte big-endian.
func (s Scalar) Bytes32() [32]byte {
	var out [32]byte
	if s.v == nil {
		return out
	}
	b := s.v.Bytes()
	copy(out[32-len(b):], b)
	return out
}

// IsZero reports whether the scalar is 0.
func (s Scalar) IsZero() bool {
	return s.v == nil || s.v.Sign() == 0
}

// Add returns s + o mod N.
func (s Scalar) Add(o Scalar) Scalar {
	r := new(big.Int).Add(s.big(), o.big())
	r.Mod(r, N)
	return Scalar{v: r}
}

// Sub returns s - o mod N.
func (s Scalar) Sub(o Scalar) Scalar {
	r := new(big.Int).Sub(s.big(), o.big())
	r.Mod(r, N)
	return Scalar{v: r}
}

// Mul returns s * o mod N.
func (s Scalar) Mul(o Scalar) Scalar {
	r := new(big.Int).Mul(s.big(), o.big())
	r.Mod(r, N)
	return Scalar{v: r}
}

// Negate returns -s mod N.
func (s Scalar) Negate() Scalar {
	r := new(big.Int).Neg(s.big())
	r.Mod(r, N)
	return Scalar{v: r}
}

// Inverse returns the multiplicative inverse of s mod N, computed via
// Fermat's little theorem (s^(N-2) mod N). Panics if s is zero; callers
// must not invert a zero share.
func (s Scalar) Inverse() Scalar {
	if s.IsZero() {
		panic("curve: inverse of zero scalar")
	}
	exp := new(big.Int).Sub(N, two)
	r := new(big.Int).Exp(s.big(), exp, N)
	return Scalar{v: r}
}

// ValidateShareRange checks that the scalar lies in [1, N-1], the valid
// range for a Shamir share s_i.
func (s Scalar) ValidateShareRange() error {
	if s.v == nil || s.v.Sign() <= 0 || s.v.Cmp(N) >= 0 {
		return ErrInvalidShareValue
	}
	return nil
}

// Zeroize overwrites the scalar's backing storage with zero. Best effort:
// Go's garbage collector may retain other copies, but this removes the
// value from the one big.Int we control once the caller is done with it.
func (s *Scalar) Zeroize() {
	if s.v != nil {
		s.v.SetInt64(0)
	}
}

func (s Scalar) big() *big.Int {
	if s.v == nil {
		return big.NewInt(0)
	}
	return s.v
}
