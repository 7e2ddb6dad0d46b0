package main

import (
	"flag"
	"fmt"
)

// newCustomFlagSet creates a flag.FlagSet with ContinueOnError behavior,
// mirroring cmd/share-node and cmd/scanner's flag-parsing shape.
func newCustomFlagSet(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ContinueOnError)
}

// Config holds the dealer tool's resolved CLI configuration. This is
// one-time key-generation tooling, never part of the
// scan/decrypt hot path.
type Config struct {
	Threshold  int
	Parties    int
	OutDir     string
	VerifyOnly bool
}

// DefaultConfig returns the dealer's zero-value-safe starting configuration.
func DefaultConfig() Config {
	return Config{
		Threshold: 2,
		Parties:   3,
		OutDir:    ".",
	}
}

// Validate checks the resolved configuration before key generation runs.
func (c Config) Validate() error {
	if c.Threshold < 2 {
		return fmt.Errorf("threshold must be >= 2")
	}
	if c.Parties < c.Threshold {
		return fmt.Errorf("parties (%d) must be >= threshold (%d)", c.Parties, c.Threshold)
	}
	if c.OutDir == "" {
		return fmt.Errorf("out-dir must be provided")
	}
	return nil
}

func newFlagSet(cfg *Config) *flag.FlagSet {
	fs := newCustomFlagSet("dealer")
	fs.IntVar(&cfg.Threshold, "threshold", cfg.Threshold, "threshold t (>= 2)")
	fs.IntVar(&cfg.Parties, "parties", cfg.Parties, "number of share nodes n (>= t)")
	fs.StringVar(&cfg.OutDir, "out-dir", cfg.OutDir, "directory to write per-node share files and the public commitment bundle")
	fs.BoolVar(&cfg.VerifyOnly, "verify", cfg.VerifyOnly, "verify previously written shares against commitments.json in --out-dir, instead of generating new ones")
	return fs
}
