package coordinator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stealthscan/threshold-wallet/pkg/curve"
	"github.com/stealthscan/threshold-wallet/pkg/kdf"
)

// evalPoly evaluates f(x) = sum(coeffs[i] * x^i) mod N, mirroring the
// dealer's share-generation polynomial.
func evalPoly(coeffs []curve.Scalar, x int64) curve.Scalar {
	result := curve.ScalarFromInt(0)
	xPow := curve.ScalarFromInt(1)
	xs := curve.ScalarFromInt(x)
	for _, c := range coeffs {
		result = result.Add(c.Mul(xPow))
		xPow = xPow.Mul(xs)
	}
	return result
}

// fakeNode simulates a share node holding s_i = f(i) for a fixed dealer
// polynomial, computing Y_i = s_i * R exactly as the real node would.
type fakeNode struct {
	index int
	share curve.Scalar
}

func (n *fakeNode) RequestShare(ctx context.Context, r curve.Point) (Share, error) {
	return Share{Index: n.index, Yi: curve.Mul(r, n.share)}, nil
}

type failingNode struct{ err error }

func (n *failingNode) RequestShare(ctx context.Context, r curve.Point) (Share, error) {
	return Share{}, n.err
}

type slowNode struct{ share fakeNode }

func (n *slowNode) RequestShare(ctx context.Context, r curve.Point) (Share, error) {
	select {
	case <-time.After(time.Hour):
		return n.share.RequestShare(ctx, r)
	case <-ctx.Done():
		return Share{}, ctx.Err()
	}
}

func buildNodes(t *testing.T, secret curve.Scalar, n int) ([]*fakeNode, []curve.Scalar) {
	t.Helper()
	coeffs := []curve.Scalar{secret, curve.ScalarFromInt(17), curve.ScalarFromInt(9)}
	nodes := make([]*fakeNode, n)
	for i := 1; i <= n; i++ {
		nodes[i-1] = &fakeNode{index: i, share: evalPoly(coeffs, int64(i))}
	}
	return nodes, coeffs
}

func TestDeriveTagMatchesAcrossSubsets(t *testing.T) {
	secret, err := curve.RandomScalar()
	if err != nil {
		t.Fatal(err)
	}
	nodes, _ := buildNodes(t, secret, 5)

	k, _ := curve.RandomScalar()
	r := curve.ScalarBaseMult(k)

	subsets := [][]int{{0, 1, 2}, {0, 2, 4}, {1, 3, 4}}
	var firstTag kdf.Tag
	for si, subset := range subsets {
		clients := make([]NodeClient, len(subset))
		for i, idx := range subset {
			clients[i] = nodes[idx]
		}
		c, err := New(Config{
			Threshold:   3,
			Nodes:       clients,
			HTTPTimeout: time.Second,
			Codec:       kdf.CodecX32,
		}, nil, nil)
		if err != nil {
			t.Fatal(err)
		}
		tag, alt, err := c.DeriveTag(context.Background(), r)
		if err != nil {
			t.Fatalf("subset %v: %v", subset, err)
		}
		if alt != nil {
			t.Errorf("subset %v: unexpected alternate tag", subset)
		}
		if si == 0 {
			firstTag = tag
		} else if tag != firstTag {
			t.Errorf("subset %v produced a different tag than subset %v", subset, subsets[0])
		}
	}
}

func TestDeriveTagInsufficientShares(t *testing.T) {
	secret, err := curve.RandomScalar()
	if err != nil {
		t.Fatal(err)
	}
	nodes, _ := buildNodes(t, secret, 3)

	c, err := New(Config{
		Threshold:   2,
		Nodes:       []NodeClient{nodes[0], &failingNode{err: errors.New("down")}},
		HTTPTimeout: 50 * time.Millisecond,
		Codec:       kdf.CodecX32,
	}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	k, _ := curve.RandomScalar()
	r := curve.ScalarBaseMult(k)
	if _, _, err := c.DeriveTag(context.Background(), r); err != ErrInsufficientShares {
		t.Errorf("got %v, want ErrInsufficientShares", err)
	}
}

func TestStrictModeSurfacesThresholdUnavailable(t *testing.T) {
	secret, _ := curve.RandomScalar()
	nodes, _ := buildNodes(t, secret, 1)

	c, err := New(Config{
		Threshold:    2,
		Nodes:        []NodeClient{nodes[0], &failingNode{err: errors.New("down")}},
		HTTPTimeout:  50 * time.Millisecond,
		Codec:        kdf.CodecX32,
		StrictMPC:    true,
		LocalViewKey: &secret,
	}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	k, _ := curve.RandomScalar()
	r := curve.ScalarBaseMult(k)
	if _, _, err := c.DeriveTag(context.Background(), r); err != ErrThresholdUnavailable {
		t.Errorf("got %v, want ErrThresholdUnavailable", err)
	}
}

// TestFallbackParity verifies that a permissive (non-strict) fallback to
// the local view key produces the same tag the threshold path would have.
func TestFallbackParity(t *testing.T) {
	secret, _ := curve.RandomScalar()
	nodes, _ := buildNodes(t, secret, 3)

	k, _ := curve.RandomScalar()
	r := curve.ScalarBaseMult(k)

	full, err := New(Config{
		Threshold:   3,
		Nodes:       []NodeClient{nodes[0], nodes[1], nodes[2]},
		HTTPTimeout: time.Second,
		Codec:       kdf.CodecX32,
	}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	wantTag, _, err := full.DeriveTag(context.Background(), r)
	if err != nil {
		t.Fatal(err)
	}

	fallback, err := New(Config{
		Threshold:    2,
		Nodes:        []NodeClient{nodes[0], &failingNode{err: errors.New("down")}},
		HTTPTimeout:  50 * time.Millisecond,
		Codec:        kdf.CodecX32,
		StrictMPC:    false,
		LocalViewKey: &secret,
	}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	gotTag, _, err := fallback.DeriveTag(context.Background(), r)
	if err != nil {
		t.Fatal(err)
	}
	if gotTag != wantTag {
		t.Errorf("fallback tag %x != threshold tag %x", gotTag, wantTag)
	}
}

func TestDecryptECIESRoundTrip(t *testing.T) {
	secret, _ := curve.RandomScalar()
	nodes, _ := buildNodes(t, secret, 3)

	k, _ := curve.RandomScalar()
	r := curve.ScalarBaseMult(k)
	s := curve.Mul(r, secret)
	key, err := kdf.DeriveECIESKey(s)
	if err != nil {
		t.Fatal(err)
	}
	iv := make([]byte, 16)
	plaintext := []byte("1000")
	ct, err := kdf.EncryptCTR(key[:], iv, plaintext)
	if err != nil {
		t.Fatal(err)
	}

	c, err := New(Config{
		Threshold:   3,
		Nodes:       []NodeClient{nodes[0], nodes[1], nodes[2]},
		HTTPTimeout: time.Second,
		Codec:       kdf.CodecX32,
		CipherMode:  CipherCTR,
	}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	got, err := c.DecryptECIES(context.Background(), r, iv, ct)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "1000" {
		t.Errorf("got %q, want %q", got, "1000")
	}
}

func TestGatherCancelsOutstandingRequestsPastThreshold(t *testing.T) {
	secret, _ := curve.RandomScalar()
	nodes, _ := buildNodes(t, secret, 2)

	c, err := New(Config{
		Threshold:   2,
		Nodes:       []NodeClient{nodes[0], nodes[1], &slowNode{share: *nodes[0]}},
		HTTPTimeout: time.Second,
		Codec:       kdf.CodecX32,
	}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	k, _ := curve.RandomScalar()
	r := curve.ScalarBaseMult(k)

	done := make(chan struct{})
	go func() {
		if _, _, err := c.DeriveTag(context.Background(), r); err != nil {
			t.Error(err)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("DeriveTag did not return promptly; slow node was not cancelled")
	}
}
