// Package dealer implements one-time key generation for the view key v:
// a Shamir split over the secp256k1 group order with Feldman VSS
// commitments so each resulting share can be verified against a public
// commitment before it is handed to its share node. This is dealer-side
// tooling only; no verification occurs on the scan/decrypt hot path.
package dealer

import (
	"errors"

	"github.com/stealthscan/threshold-wallet/pkg/curve"
)

var (
	ErrInvalidThreshold = errors.New("dealer: threshold t must satisfy 2 <= t <= n")
	ErrNoCommitments    = errors.New("dealer: no commitments supplied")
)

// Share is one party's secret share, keyed by 1-based participant index.
type Share struct {
	Index int
	Value curve.Scalar
}

// KeyGenResult holds the output of KeyGeneration: the per-node shares, the
// view public key V = v*G, and the Feldman VSS commitments to the
// polynomial's coefficients.
type KeyGenResult struct {
	Shares      []Share
	ViewPublic  curve.Point // V = v*G
	Commitments []curve.Point
}

// KeyGeneration draws a random secret v and a degree-(t-1) polynomial over
// GF(curve.N), evaluates it at indices 1..n to produce the share set, and
// computes Feldman commitments C_j = a_j*G for each coefficient a_j.
func KeyGeneration(t, n int) (*KeyGenResult, error) {
	if t < 2 || t > n {
		return nil, ErrInvalidThreshold
	}

	coeffs := make([]curve.Scalar, t)
	for i := range coeffs {
		c, err := curve.RandomScalar()
		if err != nil {
			return nil, err
		}
		coeffs[i] = c
	}

	commitments := make([]curve.Point, t)
	for i, c := range coeffs {
		commitments[i] = curve.ScalarBaseMult(c)
	}

	shares := make([]Share, n)
	for i := 0; i < n; i++ {
		x := int64(i + 1)
		shares[i] = Share{Index: i + 1, Value: evaluatePolynomial(coeffs, x)}
	}

	return &KeyGenResult{
		Shares:      shares,
		ViewPublic:  commitments[0],
		Commitments: commitments,
	}, nil
}

// VerifyShare checks share against the dealer's public commitments:
//
//	s_i * G  ==  sum_{j=0}^{t-1} (i^j mod n) * C_j
//
// A mismatch means the dealer distributed an inconsistent share.
func VerifyShare(share Share, commitments []curve.Point) (bool, error) {
	if len(commitments) == 0 {
		return false, ErrNoCommitments
	}

	lhs := curve.ScalarBaseMult(share.Value)

	x := curve.ScalarFromInt(int64(share.Index))
	xPow := curve.ScalarFromInt(1)
	terms := make([]curve.Point, len(commitments))
	for j, cj := range commitments {
		terms[j] = curve.Mul(cj, xPow)
		xPow = xPow.Mul(x)
	}
	rhs, err := curve.Combine(terms)
	if err != nil {
		return false, err
	}

	return lhs.EncodeUncompressed() == rhs.EncodeUncompressed(), nil
}

// evaluatePolynomial computes f(x) = sum(coeffs[i] * x^i) mod N.
func evaluatePolynomial(coeffs []curve.Scalar, x int64) curve.Scalar {
	result := curve.ScalarFromInt(0)
	xPow := curve.ScalarFromInt(1)
	xs := curve.ScalarFromInt(x)
	for _, c := range coeffs {
		result = result.Add(c.Mul(xPow))
		xPow = xPow.Mul(xs)
	}
	return result
}
