package pricesync

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/haulbound/billing/internal/pkg/billing"
	"github.com/haulbound/billing/internal/pkg/env"
)

const (
	defaultSyncInterval = 24 * time.Hour
	errorRetryInterval  = 30 * time.Minute
)

// Syncer is the slice of the billing service the worker drives.
type Syncer interface {
	SyncPrices(ctx context.Context) billing.Result[billing.SyncSummary]
}

// Worker resyncs the price catalog on a fixed schedule so locally cached
// prices cannot drift for long even when price webhooks are lost. A failed
// cycle reschedules on the shorter retry interval.
type Worker struct {
	service  Syncer
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
}

// NewWorker creates a price sync worker. The interval comes from
// PRICE_SYNC_INTERVAL_MINUTES; zero or unset means the 24 hour default.
func NewWorker(service Syncer) *Worker {
	interval := defaultSyncInterval
	if raw := env.GetEnv("PRICE_SYNC_INTERVAL_MINUTES", ""); raw != "" {
		if minutes, err := strconv.Atoi(raw); err == nil && minutes > 0 {
			interval = time.Duration(minutes) * time.Minute
		}
	}
	return &Worker{
		service:  service,
		interval: interval,
	}
}

// Start launches the background loop. The first sync runs immediately so a
// fresh deployment has a catalog before the first request needs one.
func (w *Worker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return
	}
	w.stopCh = make(chan struct{})
	w.running = true

	log.Infof("[PriceSync] Starting price sync worker (interval: %s)", w.interval)

	w.wg.Add(1)
	go w.loop()
}

// Stop halts the background loop and waits for an in-flight sync to finish.
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	close(w.stopCh)
	w.running = false
	w.wg.Wait()

	log.Info("[PriceSync] Price sync worker stopped")
}

// IsRunning returns whether the worker loop is active.
func (w *Worker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Worker) loop() {
	defer w.wg.Done()

	next := w.runOnce()
	timer := time.NewTimer(next)
	defer timer.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-timer.C:
			timer.Reset(w.runOnce())
		}
	}
}

// runOnce performs one sync cycle and returns the delay until the next one.
func (w *Worker) runOnce() time.Duration {
	result := w.service.SyncPrices(context.Background())
	if !result.IsSuccess {
		log.Errorf("[PriceSync] Sync failed, retrying in %s: %s", errorRetryInterval, result.Message)
		return errorRetryInterval
	}
	log.Infof("[PriceSync] %s", result.Message)
	return w.interval
}
