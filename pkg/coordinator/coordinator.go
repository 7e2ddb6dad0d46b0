// Package coordinator implements the threshold scan/decrypt engine:
// parallel share gathering from a fleet of share nodes, point-wise Lagrange
// aggregation into the shared secret S, tag derivation, and ECIES memo
// decryption. It never reassembles the view key v.
package coordinator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/stealthscan/threshold-wallet/pkg/curve"
	"github.com/stealthscan/threshold-wallet/pkg/kdf"
	"github.com/stealthscan/threshold-wallet/pkg/log"
	"github.com/stealthscan/threshold-wallet/pkg/metrics"
	"github.com/stealthscan/threshold-wallet/pkg/shamir"
)

var (
	ErrInsufficientShares   = errors.New("coordinator: insufficient shares for threshold")
	ErrThresholdUnavailable = errors.New("coordinator: threshold unavailable (strict mode)")
	ErrDecryptionFailed     = errors.New("coordinator: decryption failed")
	ErrInvalidConfig        = errors.New("coordinator: invalid configuration")
)

// CipherMode selects the symmetric cipher used for memo decryption.
type CipherMode string

const (
	CipherCTR CipherMode = "ctr"
	CipherGCM CipherMode = "gcm"
)

// Share is a single node's response to a scan-share request.
type Share struct {
	Index int
	Yi    curve.Point
}

// NodeClient abstracts a single share node's /scan_share endpoint so the
// coordinator's aggregation logic can be tested without real HTTP servers.
type NodeClient interface {
	// RequestShare returns this node's Y_i = s_i * R for the given R.
	RequestShare(ctx context.Context, r curve.Point) (Share, error)
}

// Config holds the coordinator's deployment-scoped parameters.
type Config struct {
	Threshold   int // t
	Nodes       []NodeClient
	HTTPTimeout time.Duration
	Codec       kdf.Codec
	CipherMode  CipherMode

	// StrictMPC disables local fallback: any MPC-level failure surfaces as
	// ErrThresholdUnavailable instead of falling back to LocalViewKey.
	StrictMPC bool
	// LocalViewKey, if set and StrictMPC is false, is v itself, used for
	// direct local computation S = v*R when the node fleet cannot meet
	// threshold (single-node/dev mode).
	LocalViewKey *curve.Scalar
}

func (c Config) validate() error {
	if c.Threshold < 2 {
		return ErrInvalidConfig
	}
	if len(c.Nodes) < c.Threshold {
		return ErrInvalidConfig
	}
	if c.HTTPTimeout <= 0 {
		return ErrInvalidConfig
	}
	switch c.Codec {
	case kdf.CodecX32, kdf.CodecComp33, kdf.CodecAuto:
	default:
		return ErrInvalidConfig
	}
	return nil
}

// Coordinator is the threshold scan/decrypt engine.
type Coordinator struct {
	cfg     Config
	log     *log.Logger
	metrics *metrics.Registry
}

// New validates cfg and constructs a Coordinator.
func New(cfg Config, logger *log.Logger, reg *metrics.Registry) (*Coordinator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	if reg == nil {
		reg = metrics.DefaultRegistry
	}
	return &Coordinator{cfg: cfg, log: logger.Module("coordinator"), metrics: reg}, nil
}

// DeriveTag computes the tag(s) for ephemeral point R by gathering t
// distinct shares, Lagrange-aggregating them on the curve, and hashing the
// result per the configured codec.
func (c *Coordinator) DeriveTag(ctx context.Context, r curve.Point) (primary kdf.Tag, alternate *kdf.Tag, err error) {
	s, err := c.reconstructSharedSecret(ctx, r)
	if err != nil {
		return kdf.Tag{}, nil, err
	}
	defer s.Zeroize()
	return kdf.DeriveTag(s, c.cfg.Codec)
}

// DecryptECIES re-derives S for R and decrypts ct under the HKDF-derived
// key with the configured cipher mode.
func (c *Coordinator) DecryptECIES(ctx context.Context, r curve.Point, iv, ct []byte) ([]byte, error) {
	s, err := c.reconstructSharedSecret(ctx, r)
	if err != nil {
		return nil, err
	}
	defer s.Zeroize()

	key, err := kdf.DeriveECIESKey(s)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	defer func() {
		for i := range key {
			key[i] = 0
		}
	}()

	var plaintext []byte
	switch c.cfg.CipherMode {
	case CipherGCM:
		plaintext, err = kdf.DecryptGCM(key[:], iv, ct)
	default:
		plaintext, err = kdf.DecryptCTR(key[:], iv, ct)
	}
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

// reconstructSharedSecret runs the gather-then-aggregate pipeline shared by
// DeriveTag and DecryptECIES, applying the strict/permissive fallback
// policy when the node fleet cannot meet threshold.
func (c *Coordinator) reconstructSharedSecret(ctx context.Context, r curve.Point) (curve.Point, error) {
	shares, err := c.gather(ctx, r)
	if err != nil {
		if c.cfg.StrictMPC || c.cfg.LocalViewKey == nil {
			if c.cfg.StrictMPC {
				return curve.Point{}, ErrThresholdUnavailable
			}
			return curve.Point{}, err
		}
		c.log.Warn("falling back to local view key after threshold failure", "err", err)
		c.metrics.Counter("coordinator_local_fallback_total").Inc()
		return curve.Mul(r, *c.cfg.LocalViewKey), nil
	}

	return aggregate(shares)
}

// gather requests shares from every configured node concurrently and
// returns as soon as t distinct indices have responded validly, cancelling
// the remaining in-flight requests.
func (c *Coordinator) gather(ctx context.Context, r curve.Point) ([]Share, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.HTTPTimeout)
	defer cancel()

	type result struct {
		share Share
		err   error
	}

	results := make(chan result, len(c.cfg.Nodes))
	var wg sync.WaitGroup
	for _, node := range c.cfg.Nodes {
		wg.Add(1)
		go func(n NodeClient) {
			defer wg.Done()
			share, err := n.RequestShare(ctx, r)
			select {
			case results <- result{share, err}:
			case <-ctx.Done():
			}
		}(node)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	collected := make(map[int]Share)
	ordered := make([]Share, 0, c.cfg.Threshold)
	for res := range results {
		if res.err != nil {
			c.log.Warn("share request failed", "err", res.err)
			continue
		}
		if _, seen := collected[res.share.Index]; seen {
			continue
		}
		collected[res.share.Index] = res.share
		ordered = append(ordered, res.share)
		if len(ordered) >= c.cfg.Threshold {
			cancel()
			break
		}
	}

	if len(ordered) < c.cfg.Threshold {
		return nil, ErrInsufficientShares
	}
	return ordered, nil
}

// aggregate computes S = sum(lambda_i * Y_i) over the collected shares.
func aggregate(shares []Share) (curve.Point, error) {
	indices := make([]int, len(shares))
	for i, sh := range shares {
		indices[i] = sh.Index
	}
	coeffs, err := shamir.Coefficients(indices)
	if err != nil {
		return curve.Point{}, err
	}

	weighted := make([]curve.Point, len(shares))
	for i, sh := range shares {
		weighted[i] = curve.Mul(sh.Yi, coeffs[i])
	}
	return curve.Combine(weighted)
}
