package coordinator

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/stealthscan/threshold-wallet/pkg/curve"
	"github.com/stealthscan/threshold-wallet/pkg/kdf"
	"github.com/stealthscan/threshold-wallet/pkg/metrics"
)

// ErrNodeRequest wraps a transport- or protocol-level failure talking to a
// share node, so callers can distinguish "this node failed" from a
// threshold-level failure.
var ErrNodeRequest = errors.New("coordinator: share node request failed")

// HTTPNodeClient implements NodeClient against a single share node's
// /scan_share endpoint. One HTTPNodeClient is
// constructed per configured node URL.
type HTTPNodeClient struct {
	baseURL    string
	authSecret []byte
	httpClient *http.Client
	metrics    *metrics.Registry
}

// NewHTTPNodeClient builds a client for the share node at baseURL. If
// authSecret is non-empty, every request is signed with
// auth = KECCAK256(authSecret || R), binding each authorization to R.
func NewHTTPNodeClient(baseURL string, authSecret []byte, httpClient *http.Client, reg *metrics.Registry) *HTTPNodeClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if reg == nil {
		reg = metrics.DefaultRegistry
	}
	return &HTTPNodeClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		authSecret: authSecret,
		httpClient: httpClient,
		metrics:    reg,
	}
}

type scanShareWireRequest struct {
	R    string `json:"R"`
	Auth string `json:"auth,omitempty"`
}

type scanShareWireResponse struct {
	I  int    `json:"i"`
	Yi string `json:"Yi"`
}

type wireErrorResponse struct {
	Error string `json:"error"`
}

// RequestShare posts R to the node's /scan_share endpoint and parses the
// returned (i, Y_i) pair.
func (c *HTTPNodeClient) RequestShare(ctx context.Context, r curve.Point) (Share, error) {
	start := time.Now()
	defer func() {
		c.metrics.Histogram("node_request_latency_ms").Observe(float64(time.Since(start).Milliseconds()))
	}()

	compressed := r.EncodeCompressed()
	rHex := "0x" + hex.EncodeToString(compressed[:])

	wireReq := scanShareWireRequest{R: rHex}
	if len(c.authSecret) > 0 {
		auth := kdf.Keccak256(c.authSecret, compressed[:])
		wireReq.Auth = "0x" + hex.EncodeToString(auth)
	}

	body, err := json.Marshal(wireReq)
	if err != nil {
		return Share{}, fmt.Errorf("%w: %v", ErrNodeRequest, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/scan_share", bytes.NewReader(body))
	if err != nil {
		return Share{}, fmt.Errorf("%w: %v", ErrNodeRequest, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Share{}, fmt.Errorf("%w: %v", ErrNodeRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var wireErr wireErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&wireErr)
		return Share{}, fmt.Errorf("%w: node returned %d: %s", ErrNodeRequest, resp.StatusCode, wireErr.Error)
	}

	var wireResp scanShareWireResponse
	if err := json.NewDecoder(resp.Body).Decode(&wireResp); err != nil {
		return Share{}, fmt.Errorf("%w: %v", ErrNodeRequest, err)
	}
	if wireResp.I < 1 {
		return Share{}, fmt.Errorf("%w: node returned invalid index %d", ErrNodeRequest, wireResp.I)
	}

	yiBytes, err := decodeHexPoint(wireResp.Yi)
	if err != nil {
		return Share{}, fmt.Errorf("%w: %v", ErrNodeRequest, err)
	}
	yi, err := curve.DecodeCompressed(yiBytes)
	if err != nil {
		return Share{}, fmt.Errorf("%w: %v", ErrNodeRequest, err)
	}

	return Share{Index: wireResp.I, Yi: yi}, nil
}

func decodeHexPoint(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0X")
	return hex.DecodeString(s)
}
