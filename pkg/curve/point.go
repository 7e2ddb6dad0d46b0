package curve

import (
	"crypto/ecdsa"
	"errors"

	gethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Errors returned by point decoding and by Combine. A valid compressed
// point is exactly 33 bytes, prefix 0x02/0x03, and on curve.
var (
	ErrInvalidLength   = errors.New("curve: compressed point must be 33 bytes")
	ErrInvalidPrefix   = errors.New("curve: compressed point prefix must be 0x02 or 0x03")
	ErrOffCurve        = errors.New("curve: point is not on the curve")
	ErrEmptyPointSet   = errors.New("curve: cannot combine an empty point set")
	ErrPointAtInfinity = errors.New("curve: unexpected point at infinity")
)

// Point is a secp256k1 curve point. The zero value is not a valid point;
// always construct via DecodeCompressed, Mul, Add, or ScalarBaseMult.
type Point struct {
	pub *ecdsa.PublicKey
}

// DecodeCompressed parses a 33-byte compressed secp256k1 point, rejecting
// anything that isn't exactly 33 bytes, doesn't start with 0x02/0x03, or
// doesn't decode to a point on the curve.
func DecodeCompressed(b []byte) (Point, error) {
	if len(b) != 33 {
		return Point{}, ErrInvalidLength
	}
	if b[0] != 0x02 && b[0] != 0x03 {
		return Point{}, ErrInvalidPrefix
	}
	pub, err := gethcrypto.DecompressPubkey(b)
	if err != nil {
		return Point{}, ErrOffCurve
	}
	return Point{pub: pub}, nil
}

// EncodeCompressed serializes the point as 33 bytes: prefix || X.
func (p Point) EncodeCompressed() [33]byte {
	var out [33]byte
	copy(out[:], gethcrypto.CompressPubkey(p.pub))
	return out
}

// EncodeUncompressed serializes the point as 65 bytes: 0x04 || X || Y.
func (p Point) EncodeUncompressed() [65]byte {
	var out [65]byte
	copy(out[:], gethcrypto.FromECDSAPub(p.pub))
	return out
}

// X32 returns the 32-byte big-endian affine X coordinate, the input to the
// tag KDF and the ECIES key derivation.
func (p Point) X32() [32]byte {
	var out [32]byte
	b := p.pub.X.Bytes()
	copy(out[32-len(b):], b)
	return out
}

// IsValid reports whether the point carries a non-nil public key.
func (p Point) IsValid() bool {
	return p.pub != nil && p.pub.X != nil && p.pub.Y != nil
}

// Zeroize overwrites the point's coordinates with zero. Used on the
// coordinator's reconstructed shared secret S.
func (p *Point) Zeroize() {
	if p.pub == nil {
		return
	}
	if p.pub.X != nil {
		p.pub.X.SetInt64(0)
	}
	if p.pub.Y != nil {
		p.pub.Y.SetInt64(0)
	}
}

// Mul computes k*P via the curve's scalar multiplication. The scalar is
// serialized as 32-byte big-endian before multiplication; the transient
// buffer is wiped afterwards so share material does not linger.
func Mul(p Point, k Scalar) Point {
	curve := gethcrypto.S256()
	kb := k.Bytes32()
	x, y := curve.ScalarMult(p.pub.X, p.pub.Y, kb[:])
	for i := range kb {
		kb[i] = 0
	}
	return Point{pub: &ecdsa.PublicKey{Curve: curve, X: x, Y: y}}
}

// ScalarBaseMult computes k*G, the curve's base point generator.
func ScalarBaseMult(k Scalar) Point {
	curve := gethcrypto.S256()
	kb := k.Bytes32()
	x, y := curve.ScalarBaseMult(kb[:])
	for i := range kb {
		kb[i] = 0
	}
	return Point{pub: &ecdsa.PublicKey{Curve: curve, X: x, Y: y}}
}

// Add computes a+b via the curve's point addition.
func Add(a, b Point) Point {
	curve := gethcrypto.S256()
	x, y := curve.Add(a.pub.X, a.pub.Y, b.pub.X, b.pub.Y)
	return Point{pub: &ecdsa.PublicKey{Curve: curve, X: x, Y: y}}
}

// Combine aggregates a set of points by repeated addition, initializing
// the accumulator from the first point so no identity value is needed.
func Combine(points []Point) (Point, error) {
	if len(points) == 0 {
		return Point{}, ErrEmptyPointSet
	}
	acc := points[0]
	for _, p := range points[1:] {
		acc = Add(acc, p)
	}
	if acc.pub.X.Sign() == 0 && acc.pub.Y.Sign() == 0 {
		return Point{}, ErrPointAtInfinity
	}
	return acc, nil
}
