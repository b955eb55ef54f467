package pricesync

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/haulbound/billing/internal/pkg/billing"
	"github.com/stretchr/testify/assert"
)

type fakeSyncer struct {
	calls atomic.Int32
	fail  bool
}

func (f *fakeSyncer) SyncPrices(_ context.Context) billing.Result[billing.SyncSummary] {
	f.calls.Add(1)
	if f.fail {
		return billing.Fail[billing.SyncSummary]("stripe down", billing.ErrorOther)
	}
	return billing.Success(billing.SyncSummary{}, "ok")
}

func TestWorkerRunsInitialSyncOnStart(t *testing.T) {
	syncer := &fakeSyncer{}
	w := NewWorker(syncer)
	w.interval = time.Hour

	w.Start()
	defer w.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for syncer.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	assert.GreaterOrEqual(t, syncer.calls.Load(), int32(1))
}

func TestWorkerStartStopLifecycle(t *testing.T) {
	w := NewWorker(&fakeSyncer{})
	w.interval = time.Hour

	assert.False(t, w.IsRunning())
	w.Start()
	assert.True(t, w.IsRunning())
	w.Start() // second start is a no-op
	w.Stop()
	assert.False(t, w.IsRunning())
	w.Stop() // second stop is a no-op
}

func TestWorkerFailedCycleUsesRetryDelay(t *testing.T) {
	syncer := &fakeSyncer{fail: true}
	w := NewWorker(syncer)

	delay := w.runOnce()
	assert.Equal(t, errorRetryInterval, delay)

	syncer.fail = false
	delay = w.runOnce()
	assert.Equal(t, w.interval, delay)
}
