package main

import (
	"testing"

	"github.com/stealthscan/threshold-wallet/pkg/metrics"
)

func TestBuildCoordinatorRejectsBadLocalViewKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Nodes = "http://a:8090,http://b:8090"
	cfg.LocalViewKey = "not-hex"
	reg := metrics.NewRegistry()
	if _, err := buildCoordinator(cfg, reg); err == nil {
		t.Fatal("expected error for invalid --local-view-key")
	}
}

func TestBuildCoordinatorAcceptsWellFormedConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Nodes = "http://a:8090,http://b:8090"
	reg := metrics.NewRegistry()
	c, err := buildCoordinator(cfg, reg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c == nil {
		t.Fatal("expected non-nil coordinator")
	}
}
