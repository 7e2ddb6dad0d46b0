// Package shamir computes Lagrange coefficients for reconstructing a
// Shamir-shared secret at x=0, evaluated over the secp256k1 group order.
//
// Multiple incompatible Shamir moduli can appear in an MPC codebase (a
// demo modulus for toy examples vs. the real curve order for production
// scanning). This package only ever operates mod curve.N, the secp256k1
// group order, and must never be pointed at a different field.
package shamir

import (
	"errors"

	"github.com/stealthscan/threshold-wallet/pkg/curve"
)

var (
	// ErrDuplicateShareIndex is returned when the same participant index
	// appears twice in the collected set.
	ErrDuplicateShareIndex = errors.New("shamir: duplicate share index")
	// ErrInvalidIndex is returned for a non-positive participant index.
	ErrInvalidIndex = errors.New("shamir: participant index must be positive")
)

// Coefficients computes the Lagrange coefficients lambda_i, evaluated at
// x=0, for the given ordered set of distinct positive participant indices:
//
//	lambda_i = prod_{j in I, j != i} ( (-j mod n) * (i - j)^-1 mod n ) mod n
//
// The order of indices is preserved in the returned slice (coefficients[k]
// corresponds to indices[k]) so callers can pair each coefficient with the
// share it was collected alongside: indices are taken in the order the
// shares arrived.
func Coefficients(indices []int) ([]curve.Scalar, error) {
	seen := make(map[int]bool, len(indices))
	for _, idx := range indices {
		if idx <= 0 {
			return nil, ErrInvalidIndex
		}
		if seen[idx] {
			return nil, ErrDuplicateShareIndex
		}
		seen[idx] = true
	}

	coeffs := make([]curve.Scalar, len(indices))
	for i, idx := range indices {
		num := curve.ScalarFromInt(1)
		den := curve.ScalarFromInt(1)
		xi := curve.ScalarFromInt(int64(idx))

		for j, jdx := range indices {
			if i == j {
				continue
			}
			xj := curve.ScalarFromInt(int64(jdx))

			num = num.Mul(xj.Negate())
			den = den.Mul(xi.Sub(xj))
		}

		coeffs[i] = num.Mul(den.Inverse())
	}
	return coeffs, nil
}
