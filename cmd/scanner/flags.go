package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// flagSet wraps flag.FlagSet to add support for uint64 flags, mirroring
// cmd/share-node's flagSet.
type flagSet struct {
	*flag.FlagSet
}

func newCustomFlagSet(name string) *flagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	return &flagSet{FlagSet: fs}
}

func (fs *flagSet) Uint64Var(p *uint64, name string, value uint64, usage string) {
	fs.FlagSet.Var(&uint64Value{p: p}, name, usage)
	*p = value
}

type uint64Value struct{ p *uint64 }

func (v *uint64Value) String() string {
	if v.p == nil {
		return "0"
	}
	return strconv.FormatUint(*v.p, 10)
}

func (v *uint64Value) Set(s string) error {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid uint64 value %q", s)
	}
	*v.p = n
	return nil
}

// Config holds the scanner daemon's resolved CLI configuration.
type Config struct {
	Nodes         string // comma-separated share node base URLs
	Threshold     uint64
	HTTPTimeoutS  float64
	AuthSecret    string
	TagCodec      string
	StrictMPC     bool
	LocalViewKey  string // 0x-prefixed hex, dev-mode fallback only
	CipherMode    string
	LoopIntervalS float64
	BatchSize     uint64
	DBPath        string
	UserID        string
	MetricsAddr   string
	Verbosity     int
}

// DefaultConfig returns the scanner's zero-value-safe starting
// configuration, then applies ENV > flag-default precedence for the
// fields that may carry deployment secrets.
func DefaultConfig() Config {
	cfg := Config{
		Threshold:     2,
		HTTPTimeoutS:  5.0,
		TagCodec:      "x32",
		CipherMode:    "ctr",
		LoopIntervalS: 2.0,
		BatchSize:     100,
		DBPath:        "scanner.db",
		UserID:        "default",
		MetricsAddr:   "",
		Verbosity:     3,
	}
	if v := os.Getenv("SCANNER_NODES"); v != "" {
		cfg.Nodes = v
	}
	if v := os.Getenv("SCANNER_AUTH_SECRET"); v != "" {
		cfg.AuthSecret = v
	}
	if v := os.Getenv("SCANNER_LOCAL_VIEW_KEY"); v != "" {
		cfg.LocalViewKey = v
	}
	return cfg
}

// Validate checks the resolved configuration before the loop starts;
// configuration errors are fatal at startup.
func (c Config) Validate() error {
	if c.nodeList() == nil {
		return fmt.Errorf("at least one share node URL is required via --nodes or SCANNER_NODES")
	}
	if c.Threshold < 2 {
		return fmt.Errorf("threshold must be >= 2")
	}
	if uint64(len(c.nodeList())) < c.Threshold {
		return fmt.Errorf("fewer configured nodes (%d) than threshold (%d)", len(c.nodeList()), c.Threshold)
	}
	if c.HTTPTimeoutS <= 0 {
		return fmt.Errorf("http-timeout-s must be > 0")
	}
	switch c.TagCodec {
	case "x32", "comp33", "auto":
	default:
		return fmt.Errorf("tag-codec must be one of x32, comp33, auto")
	}
	switch c.CipherMode {
	case "ctr", "gcm":
	default:
		return fmt.Errorf("cipher-mode must be one of ctr, gcm")
	}
	if c.LoopIntervalS <= 0 {
		return fmt.Errorf("loop-interval-s must be > 0")
	}
	if c.DBPath == "" {
		return fmt.Errorf("db-path must be provided")
	}
	if c.UserID == "" {
		return fmt.Errorf("user-id must be provided")
	}
	return nil
}

func (c Config) nodeList() []string {
	if strings.TrimSpace(c.Nodes) == "" {
		return nil
	}
	parts := strings.Split(c.Nodes, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (c Config) httpTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutS * float64(time.Second))
}

func (c Config) loopInterval() time.Duration {
	return time.Duration(c.LoopIntervalS * float64(time.Second))
}

func newFlagSet(cfg *Config) *flagSet {
	fs := newCustomFlagSet("scanner")
	fs.StringVar(&cfg.Nodes, "nodes", cfg.Nodes, "comma-separated share node base URLs")
	fs.Uint64Var(&cfg.Threshold, "threshold", cfg.Threshold, "threshold t (>= 2)")
	fs.Float64Var(&cfg.HTTPTimeoutS, "http-timeout-s", cfg.HTTPTimeoutS, "per-request timeout to share nodes, in seconds")
	fs.StringVar(&cfg.AuthSecret, "auth-secret", cfg.AuthSecret, "optional pre-shared authentication secret matching the share nodes")
	fs.StringVar(&cfg.TagCodec, "tag-codec", cfg.TagCodec, "tag derivation codec: x32, comp33, or auto")
	fs.BoolVar(&cfg.StrictMPC, "strict-mpc", cfg.StrictMPC, "disable local view-key fallback; surface ThresholdUnavailable instead")
	fs.StringVar(&cfg.LocalViewKey, "local-view-key", cfg.LocalViewKey, "0x-prefixed hex view key v, for single-node/dev-mode fallback only (ignored when --strict-mpc)")
	fs.StringVar(&cfg.CipherMode, "cipher-mode", cfg.CipherMode, "memo cipher mode: ctr or gcm")
	fs.Float64Var(&cfg.LoopIntervalS, "loop-interval-s", cfg.LoopIntervalS, "scanner poll cadence, in seconds")
	fs.Uint64Var(&cfg.BatchSize, "batch-size", cfg.BatchSize, "max unscanned events fetched per iteration (0 = unbounded)")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "sqlite database path for the events/inbox store")
	fs.StringVar(&cfg.UserID, "user-id", cfg.UserID, "user id that matched events are promoted to")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "if set, serve Prometheus metrics on this address (e.g. :9090)")
	fs.IntVar(&cfg.Verbosity, "verbosity", cfg.Verbosity, "log level 0-4 (0=error, 4=debug)")
	return fs
}
