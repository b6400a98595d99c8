package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// AnalyzeFunc summarizes an expired conversation into an intent label and a
// purpose string. Empty results mean the analysis produced nothing usable.
type AnalyzeFunc func(ctx context.Context, turns []Turn) (intent, purpose string)

// LedgerUpdater receives the analysis results for an evicted session.
// Implemented by storage.Store.
type LedgerUpdater interface {
	UpdateChatInfo(identity, intent, purpose string) error
}

// Sweeper periodically evicts idle sessions, runs conversation analysis on
// each evicted history, and forwards the results to the customer ledger.
type Sweeper struct {
	store   *Store
	analyze AnalyzeFunc
	ledger  LedgerUpdater
	timeout time.Duration
	cron    *cron.Cron
	logger  *slog.Logger
}

// NewSweeper creates a Sweeper over the given store. timeout is the idle
// duration after which a session expires.
func NewSweeper(store *Store, analyze AnalyzeFunc, ledger LedgerUpdater, timeout time.Duration) *Sweeper {
	return &Sweeper{
		store:   store,
		analyze: analyze,
		ledger:  ledger,
		timeout: timeout,
		logger:  slog.Default(),
	}
}

// Start schedules the sweep at the given interval and returns once the
// scheduler is running. Call Stop to halt it.
func (w *Sweeper) Start(interval time.Duration) error {
	if w.cron != nil {
		return fmt.Errorf("sweeper already started")
	}
	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		w.Sweep(context.Background())
	}); err != nil {
		return fmt.Errorf("scheduling sweep: %w", err)
	}
	c.Start()
	w.cron = c
	w.logger.Info("session sweeper started", "interval", interval, "timeout", w.timeout)
	return nil
}

// Stop halts the schedule. A sweep already in flight runs to completion.
func (w *Sweeper) Stop() {
	if w.cron != nil {
		w.cron.Stop()
	}
}

// Sweep runs one expiry pass. Exported so tests (and shutdown paths) can
// trigger it directly.
func (w *Sweeper) Sweep(ctx context.Context) {
	expired := w.store.CollectExpired(w.timeout)
	for _, e := range expired {
		w.logger.Info("session expired",
			"identity", e.Identity, "endpoint", e.Endpoint, "turns", len(e.Turns))

		intent, purpose := w.analyze(ctx, e.Turns)
		if intent == "" && purpose == "" {
			// Nothing extracted; leave the ledger untouched.
			continue
		}

		if err := w.ledger.UpdateChatInfo(e.Identity, intent, purpose); err != nil {
			w.logger.Warn("failed to persist conversation analysis",
				"identity", e.Identity, "error", err)
			continue
		}
		w.logger.Info("conversation analysis persisted",
			"identity", e.Identity, "intent", intent)
	}
}
