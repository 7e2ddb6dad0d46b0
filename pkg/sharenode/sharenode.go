// Package sharenode implements the share-node HTTP service:
// a minimal (R) -> (i, Y_i) contract backed by a single secp256k1 scalar
// share that never leaves the process.
package sharenode

import (
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"net/http"

	"github.com/stealthscan/threshold-wallet/pkg/curve"
	"github.com/stealthscan/threshold-wallet/pkg/kdf"
	"github.com/stealthscan/threshold-wallet/pkg/log"
	"github.com/stealthscan/threshold-wallet/pkg/metrics"
)

// Config holds a share node's startup configuration. Share is never
// logged or exposed by any endpoint.
type Config struct {
	NodeIndex  int
	Share      curve.Scalar // s_i, in [1, N-1]
	AuthSecret []byte       // optional pre-shared secret A
}

// Server serves the /scan_share and /health endpoints over HTTP.
type Server struct {
	cfg     Config
	log     *log.Logger
	metrics *metrics.Registry
}

// New validates cfg and constructs a Server. Returns an error, fatal at
// startup, if the share is out of range.
func New(cfg Config, logger *log.Logger, reg *metrics.Registry) (*Server, error) {
	if err := cfg.Share.ValidateShareRange(); err != nil {
		return nil, err
	}
	if cfg.NodeIndex < 1 {
		return nil, errInvalidNodeIndex
	}
	if logger == nil {
		logger = log.Default()
	}
	if reg == nil {
		reg = metrics.DefaultRegistry
	}
	return &Server{cfg: cfg, log: logger.Module("sharenode"), metrics: reg}, nil
}

// Handler returns the http.Handler exposing /scan_share and /health.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/scan_share", s.handleScanShare)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

type scanShareRequest struct {
	R    string `json:"R"`
	Auth string `json:"auth,omitempty"`
}

type scanShareResponse struct {
	I  int    `json:"i"`
	Yi string `json:"Yi"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleScanShare(w http.ResponseWriter, r *http.Request) {
	s.metrics.Counter("scan_share_requests_total").Inc()

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req scanShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	rBytes, err := decodeHex(req.R)
	if err != nil {
		writeError(w, http.StatusBadRequest, "R must be 0x-prefixed hex")
		return
	}

	point, err := curve.DecodeCompressed(rBytes)
	if err != nil {
		s.log.Warn("rejected malformed R", "err", err)
		writeError(w, http.StatusBadRequest, "invalid R")
		return
	}

	if len(s.cfg.AuthSecret) > 0 {
		if !s.checkAuth(req.Auth, rBytes) {
			s.metrics.Counter("scan_share_auth_failures_total").Inc()
			writeError(w, http.StatusUnauthorized, "bad auth")
			return
		}
	}

	yi := curve.Mul(point, s.cfg.Share)
	encoded := yi.EncodeCompressed()

	writeJSON(w, http.StatusOK, scanShareResponse{
		I:  s.cfg.NodeIndex,
		Yi: "0x" + hex.EncodeToString(encoded[:]),
	})
}

// checkAuth verifies auth = KECCAK256(A || R), binding the authorization to
// this specific R and preventing replay across different scans.
func (s *Server) checkAuth(authHex string, r []byte) bool {
	authBytes, err := decodeHex(authHex)
	if err != nil || len(authBytes) != 32 {
		return false
	}
	expected := kdf.Keccak256(s.cfg.AuthSecret, r)
	return subtle.ConstantTimeCompare(authBytes, expected) == 1
}

type healthResponse struct {
	OK    bool `json:"ok"`
	Index int  `json:"index"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	// MUST NOT reveal the share: only the node index and a liveness flag.
	writeJSON(w, http.StatusOK, healthResponse{OK: true, Index: s.cfg.NodeIndex})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
