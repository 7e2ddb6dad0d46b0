// Command scanner runs the restartable event-scanning loop: it
// polls a sqlite-backed events table, asks the threshold coordinator to
// derive a scan tag for each event's ephemeral key R, and promotes matches
// into a per-user inbox.
//
// Usage:
//
//	scanner [flags]
//
// Flags:
//
//	--nodes           comma-separated share node base URLs
//	--threshold       threshold t (>= 2)
//	--http-timeout-s  per-request timeout to share nodes
//	--auth-secret     optional pre-shared authentication secret
//	--tag-codec       x32, comp33, or auto
//	--strict-mpc      disable local view-key fallback
//	--local-view-key  dev-mode fallback view key
//	--cipher-mode     ctr or gcm
//	--loop-interval-s scanner poll cadence
//	--batch-size      max unscanned events per iteration
//	--db-path         sqlite database path
//	--user-id         user id matched events are promoted to
//	--metrics-addr    optional Prometheus metrics listen address
//	--verbosity       log level 0-4
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/stealthscan/threshold-wallet/pkg/coordinator"
	"github.com/stealthscan/threshold-wallet/pkg/curve"
	"github.com/stealthscan/threshold-wallet/pkg/kdf"
	applog "github.com/stealthscan/threshold-wallet/pkg/log"
	"github.com/stealthscan/threshold-wallet/pkg/metrics"
	"github.com/stealthscan/threshold-wallet/pkg/scanner"
	"github.com/stealthscan/threshold-wallet/pkg/store"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, exit, code := parseFlags(args)
	if exit {
		return code
	}

	applog.SetDefault(applog.New(verbosityToLevel(cfg.Verbosity)))
	logger := applog.Default().Module("scanner-cmd")

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "err", err)
		return 1
	}

	reg := metrics.NewRegistry()

	st, err := store.Open(cfg.DBPath, applog.Default())
	if err != nil {
		logger.Error("failed to open event store", "err", err)
		return 1
	}
	defer st.Close()

	coord, err := buildCoordinator(cfg, reg)
	if err != nil {
		logger.Error("invalid coordinator configuration", "err", err)
		return 1
	}

	loop := scanner.New(scanner.Config{
		LoopInterval: cfg.loopInterval(),
		BatchSize:    int(cfg.BatchSize),
		StrictMPC:    cfg.StrictMPC,
		UserID:       cfg.UserID,
	}, st, coord, applog.Default(), reg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		exporter := metrics.NewPrometheusExporter(reg, metrics.DefaultPrometheusConfig())
		metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: exporter.Handler()}
		go func() {
			logger.Info("metrics listening", "addr", cfg.MetricsAddr)
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server error", "err", err)
			}
		}()
		go func() {
			<-ctx.Done()
			_ = metricsSrv.Close()
		}()
	}

	logger.Info("scanner starting", "nodes", len(cfg.nodeList()), "threshold", cfg.Threshold, "db", cfg.DBPath)
	if err := loop.Run(ctx); err != nil {
		logger.Error("scanner loop exited with error", "err", err)
		return 1
	}
	return 0
}

// buildCoordinator wires one HTTPNodeClient per configured node URL into
// a coordinator.Coordinator.
func buildCoordinator(cfg Config, reg *metrics.Registry) (*coordinator.Coordinator, error) {
	var authSecret []byte
	if cfg.AuthSecret != "" {
		authSecret = []byte(cfg.AuthSecret)
	}

	httpClient := &http.Client{Timeout: cfg.httpTimeout()}

	nodes := make([]coordinator.NodeClient, 0, len(cfg.nodeList()))
	for _, url := range cfg.nodeList() {
		nodes = append(nodes, coordinator.NewHTTPNodeClient(url, authSecret, httpClient, reg))
	}

	var localKey *curve.Scalar
	if cfg.LocalViewKey != "" {
		b, err := decodeHex(cfg.LocalViewKey)
		if err != nil {
			return nil, fmt.Errorf("invalid --local-view-key: %w", err)
		}
		s := curve.ScalarFromBytes(b)
		localKey = &s
	}

	return coordinator.New(coordinator.Config{
		Threshold:    int(cfg.Threshold),
		Nodes:        nodes,
		HTTPTimeout:  cfg.httpTimeout(),
		Codec:        kdf.Codec(cfg.TagCodec),
		CipherMode:   coordinator.CipherMode(cfg.CipherMode),
		StrictMPC:    cfg.StrictMPC,
		LocalViewKey: localKey,
	}, applog.Default(), reg)
}

func parseFlags(args []string) (Config, bool, int) {
	cfg := DefaultConfig()
	fs := newFlagSet(&cfg)

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return cfg, true, 2
	}
	return cfg, false, 0
}

func decodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0X")
	return hex.DecodeString(s)
}

func verbosityToLevel(v int) slog.Level {
	switch {
	case v <= 1:
		return slog.LevelError
	case v == 2:
		return slog.LevelWarn
	case v == 3:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
