package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
)

// flagSet wraps flag.FlagSet to add support for uint64 flags.
type flagSet struct {
	*flag.FlagSet
}

// newCustomFlagSet creates a flagSet with ContinueOnError behavior.
func newCustomFlagSet(name string) *flagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	return &flagSet{FlagSet: fs}
}

// Uint64Var defines a uint64 flag. Go's standard flag package lacks uint64
// support, so we use a custom Value implementation.
func (fs *flagSet) Uint64Var(p *uint64, name string, value uint64, usage string) {
	fs.FlagSet.Var(&uint64Value{p: p}, name, usage)
	*p = value
}

type uint64Value struct {
	p *uint64
}

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

// Config holds share-node's resolved CLI configuration.
type Config struct {
	Addr        string
	NodeIndex   uint64
	ShareHex    string // 0x-prefixed 32-byte big-endian s_i
	AuthSecret  string
	MetricsAddr string
	Verbosity   int
}

// DefaultConfig returns the zero-value-safe starting configuration, then
// applies ENV > flag-default precedence for the share and auth secret so
// they need not be passed on a process's command line (visible via `ps`).
func DefaultConfig() Config {
	cfg := Config{
		Addr:      ":8090",
		NodeIndex: 1,
		Verbosity: 3,
	}
	if v := os.Getenv("SHARE_NODE_SHARE"); v != "" {
		cfg.ShareHex = v
	}
	if v := os.Getenv("SHARE_NODE_AUTH_SECRET"); v != "" {
		cfg.AuthSecret = v
	}
	return cfg
}

// Validate checks the resolved configuration before the server starts.
func (c Config) Validate() error {
	if c.NodeIndex < 1 {
		return fmt.Errorf("node index must be >= 1")
	}
	if c.ShareHex == "" {
		return fmt.Errorf("share must be provided via --share or SHARE_NODE_SHARE")
	}
	return nil
}

func newFlagSet(cfg *Config) *flagSet {
	fs := newCustomFlagSet("share-node")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address")
	fs.Uint64Var(&cfg.NodeIndex, "index", cfg.NodeIndex, "this node's participant index (i >= 1)")
	fs.StringVar(&cfg.ShareHex, "share", cfg.ShareHex, "0x-prefixed hex scalar share s_i")
	fs.StringVar(&cfg.AuthSecret, "auth-secret", cfg.AuthSecret, "optional pre-shared authentication secret")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "if set, serve Prometheus metrics on this address (e.g. :9091)")
	fs.IntVar(&cfg.Verbosity, "verbosity", cfg.Verbosity, "log level 0-4 (0=error, 4=debug)")
	return fs
}
