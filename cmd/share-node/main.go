// Command share-node runs a single threshold share node: it holds one
// Shamir share s_i of a recipient's view key and answers scan-share
// requests with Y_i = s_i * R.
//
// Usage:
//
//	share-node [flags]
//
// Flags:
//
//	--addr         HTTP listen address (default: :8090)
//	--index        participant index i (default: 1)
//	--share        0x-prefixed hex scalar share s_i
//	--auth-secret  optional pre-shared authentication secret
//	--metrics-addr optional Prometheus metrics listen address
//	--verbosity    log level 0-4 (default: 3)
//
// SHARE_NODE_SHARE and SHARE_NODE_AUTH_SECRET environment variables are
// read as defaults for --share/--auth-secret before flags are parsed.
package main

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/stealthscan/threshold-wallet/pkg/curve"
	applog "github.com/stealthscan/threshold-wallet/pkg/log"
	"github.com/stealthscan/threshold-wallet/pkg/metrics"
	"github.com/stealthscan/threshold-wallet/pkg/sharenode"
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
	logger := applog.Default().Module("share-node")

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "err", err)
		return 1
	}

	shareBytes, err := decodeHex(cfg.ShareHex)
	if err != nil {
		logger.Error("invalid --share", "err", err)
		return 1
	}
	share := curve.ScalarFromBytes(shareBytes)

	reg := metrics.NewRegistry()
	srv, err := sharenode.New(sharenode.Config{
		NodeIndex:  int(cfg.NodeIndex),
		Share:      share,
		AuthSecret: []byte(cfg.AuthSecret),
	}, logger, reg)
	if err != nil {
		logger.Error("failed to construct share node", "err", err)
		return 1
	}

	httpSrv := &http.Server{Addr: cfg.Addr, Handler: srv.Handler()}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("share node listening", "addr", cfg.Addr, "index", cfg.NodeIndex)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	var metricsSrv *http.Server
	if cfg.MetricsAddr != "" {
		exporter := metrics.NewPrometheusExporter(reg, metrics.DefaultPrometheusConfig())
		metricsSrv = &http.Server{Addr: cfg.MetricsAddr, Handler: exporter.Handler()}
		go func() {
			logger.Info("metrics listening", "addr", cfg.MetricsAddr)
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server error", "err", err)
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", "signal", sig.String())
	case err := <-errCh:
		logger.Error("server error", "err", err)
		return 1
	}

	if metricsSrv != nil {
		_ = metricsSrv.Close()
	}
	if err := httpSrv.Close(); err != nil {
		logger.Error("error during shutdown", "err", err)
		return 1
	}
	return 0
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
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
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
