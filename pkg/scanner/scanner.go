// Package scanner implements the restartable polling loop: pull
// scanned=0 events, derive a candidate tag via the threshold engine,
// compare against the stored tag, and promote matches into the inbox.
package scanner

import (
	"context"
	"errors"
	"time"

	"github.com/stealthscan/threshold-wallet/pkg/coordinator"
	"github.com/stealthscan/threshold-wallet/pkg/curve"
	"github.com/stealthscan/threshold-wallet/pkg/kdf"
	"github.com/stealthscan/threshold-wallet/pkg/log"
	"github.com/stealthscan/threshold-wallet/pkg/metrics"
	"github.com/stealthscan/threshold-wallet/pkg/store"
)

// Config holds the scanner's deployment-scoped parameters.
type Config struct {
	LoopInterval time.Duration
	BatchSize    int  // <= 0 means unbounded
	StrictMPC    bool // mirrors coordinator.Config.StrictMPC for the "Error" vs no-promote decision
	UserID       string
}

// Loop is the single-threaded cooperative polling loop.
type Loop struct {
	cfg   Config
	store *store.Store
	coord *coordinator.Coordinator
	log   *log.Logger
	met   *metrics.Registry
}

// New constructs a Loop.
func New(cfg Config, st *store.Store, coord *coordinator.Coordinator, logger *log.Logger, reg *metrics.Registry) *Loop {
	if logger == nil {
		logger = log.Default()
	}
	if reg == nil {
		reg = metrics.DefaultRegistry
	}
	return &Loop{cfg: cfg, store: st, coord: coord, log: logger.Module("scanner"), met: reg}
}

// Run executes the polling loop until ctx is cancelled, sleeping
// LoopInterval between iterations. It exits cleanly after the current
// event completes.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if err := l.runOnce(ctx); err != nil {
			// Loop exceptions must not crash the process.
			l.log.Error("scan iteration failed", "err", err)
		}

		select {
		case <-ctx.Done():
			l.log.Info("scanner shutting down")
			return nil
		case <-time.After(l.cfg.LoopInterval):
		}
	}
}

// runOnce processes a single batch of unscanned events.
func (l *Loop) runOnce(ctx context.Context) error {
	events, err := l.store.UnscannedEvents(ctx, l.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, e := range events {
		if ctx.Err() != nil {
			return nil
		}
		l.processEvent(ctx, e)
	}
	return nil
}

// processEvent runs the per-event state machine: Pending -> InFlight ->
// Matched | NoMatch | Error.
func (l *Loop) processEvent(ctx context.Context, e store.Event) {
	l.met.Counter("scanner_events_processed_total").Inc()

	r, err := curve.DecodeCompressed(e.R)
	if err != nil {
		l.log.Warn("malformed R, skipping event", "event_id", e.ID, "err", err)
		l.finish(ctx, e, false)
		return
	}

	primary, alternate, err := l.coord.DeriveTag(ctx, r)
	if err != nil {
		if errors.Is(err, coordinator.ErrThresholdUnavailable) || l.cfg.StrictMPC {
			l.log.Error("threshold unavailable for event", "event_id", e.ID, "err", err)
			l.met.Counter("scanner_errors_total").Inc()
			l.finish(ctx, e, false)
			return
		}
		l.log.Error("derive_tag failed, marking no-match", "event_id", e.ID, "err", err)
		l.finish(ctx, e, false)
		return
	}

	var want kdf.Tag
	copy(want[:], e.Tag)
	matched := kdf.Matches(want, primary, alternate)

	if matched {
		entry := store.InboxEntry{
			UserID:     l.cfg.UserID,
			EventID:    e.ID,
			Tag:        e.Tag,
			R:          e.R,
			Memo:       e.Memo,
			Commitment: e.Commitment,
		}
		if err := l.store.InsertInbox(ctx, entry); err != nil {
			l.log.Error("failed to insert inbox entry", "event_id", e.ID, "err", err)
			l.met.Counter("scanner_errors_total").Inc()
			l.finish(ctx, e, false)
			return
		}
		l.met.Counter("scanner_matched_total").Inc()
	}
	l.finish(ctx, e, matched)
}

func (l *Loop) finish(ctx context.Context, e store.Event, matched bool) {
	if err := l.store.MarkScanned(ctx, e.ID, matched); err != nil {
		l.log.Error("failed to mark event scanned", "event_id", e.ID, "err", err)
	}
}
