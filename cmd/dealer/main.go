// Command dealer runs one-time Shamir key-generation tooling for the
// recipient's view key v: it splits a fresh
// random v into n shares over the secp256k1 group order, one per share
// node, with Feldman VSS commitments so each share can be verified before
// distribution. This tool touches the secret only at generation time; it
// is never part of the scan/decrypt hot path and is not a long-running
// service.
//
// Usage:
//
//	dealer [flags]
//	dealer --verify --out-dir <dir>
//
// Flags:
//
//	--threshold   threshold t (>= 2)
//	--parties     number of share nodes n (>= t)
//	--out-dir     directory for share_<i>.hex and commitments.json
//	--verify      verify existing shares instead of generating new ones
package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/stealthscan/threshold-wallet/pkg/curve"
	"github.com/stealthscan/threshold-wallet/pkg/dealer"
)

// commitmentBundle is the public output of key generation: the view public
// key and the Feldman commitments to the dealer's polynomial coefficients.
// Holds no secret material and is safe to distribute to all share nodes.
type commitmentBundle struct {
	ViewPublicHex  string   `json:"view_public"`
	CommitmentsHex []string `json:"commitments"`
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg := DefaultConfig()
	fs := newFlagSet(&cfg)
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if cfg.VerifyOnly {
		return runVerify(cfg)
	}
	return runGenerate(cfg)
}

func runGenerate(cfg Config) int {
	result, err := dealer.KeyGeneration(cfg.Threshold, cfg.Parties)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: key generation failed: %v\n", err)
		return 1
	}

	if err := os.MkdirAll(cfg.OutDir, 0o700); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	bundle := commitmentBundle{
		ViewPublicHex:  encodePointHex(result.ViewPublic),
		CommitmentsHex: make([]string, len(result.Commitments)),
	}
	for i, c := range result.Commitments {
		bundle.CommitmentsHex[i] = encodePointHex(c)
	}
	if err := writeJSON(filepath.Join(cfg.OutDir, "commitments.json"), bundle); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	for _, sh := range result.Shares {
		path := filepath.Join(cfg.OutDir, fmt.Sprintf("share_%d.hex", sh.Index))
		b := sh.Value.Bytes32()
		contents := "0x" + hex.EncodeToString(b[:]) + "\n"
		if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to write %s: %v\n", path, err)
			return 1
		}
		// Best-effort zeroization of the in-memory scalar once persisted;
		// it is never logged or printed.
		sh.Value.Zeroize()
	}

	fmt.Printf("generated %d-of-%d shares in %s\n", cfg.Threshold, cfg.Parties, cfg.OutDir)
	fmt.Printf("view public key: %s\n", bundle.ViewPublicHex)
	return 0
}

func runVerify(cfg Config) int {
	var bundle commitmentBundle
	if err := readJSON(filepath.Join(cfg.OutDir, "commitments.json"), &bundle); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	commitments := make([]curve.Point, len(bundle.CommitmentsHex))
	for i, h := range bundle.CommitmentsHex {
		p, err := decodePointHex(h)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid commitment %d: %v\n", i, err)
			return 1
		}
		commitments[i] = p
	}

	ok := true
	for i := 1; i <= cfg.Parties; i++ {
		path := filepath.Join(cfg.OutDir, fmt.Sprintf("share_%d.hex", i))
		raw, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to read %s: %v\n", path, err)
			return 1
		}
		b, err := decodeHex(trimNewline(string(raw)))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid share %d: %v\n", i, err)
			return 1
		}
		share := dealer.Share{Index: i, Value: curve.ScalarFromBytes(b)}
		valid, err := dealer.VerifyShare(share, commitments)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: verification error for share %d: %v\n", i, err)
			return 1
		}
		fmt.Printf("share %d: %s\n", i, verdict(valid))
		if !valid {
			ok = false
		}
		share.Value.Zeroize()
	}

	if !ok {
		return 1
	}
	return 0
}

func verdict(ok bool) string {
	if ok {
		return "OK"
	}
	return "INVALID"
}

func encodePointHex(p curve.Point) string {
	b := p.EncodeCompressed()
	return "0x" + hex.EncodeToString(b[:])
}

func decodePointHex(s string) (curve.Point, error) {
	b, err := decodeHex(s)
	if err != nil {
		return curve.Point{}, err
	}
	return curve.DecodeCompressed(b)
}

func decodeHex(s string) ([]byte, error) {
	for _, prefix := range []string{"0x", "0X"} {
		if len(s) >= 2 && s[:2] == prefix {
			s = s[2:]
			break
		}
	}
	return hex.DecodeString(s)
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}
