package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"economy/models"
	"economy/service"

	log "github.com/sirupsen/logrus"
)

const settlementLockKey = "economy:settlement-sweep"

// ErrLockHeld is returned by a Locker when another process holds the lock
var ErrLockHeld = errors.New("lock held by another process")

// Locker provides a lease shared between processes
type Locker interface {
	// Obtain acquires key for ttl and returns a release func, or ErrLockHeld
	Obtain(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, err error)
}

// SettlementWorker runs the settlement sweep on a fixed interval. Only one
// process at a time sweeps; the others skip the tick.
type SettlementWorker struct {
	sweeper  service.SettlementService
	locker   Locker
	interval time.Duration
	lockTTL  time.Duration
}

// NewSettlementWorker creates a new settlement worker
func NewSettlementWorker(sweeper service.SettlementService, locker Locker, interval, lockTTL time.Duration) *SettlementWorker {
	return &SettlementWorker{
		sweeper:  sweeper,
		locker:   locker,
		interval: interval,
		lockTTL:  lockTTL,
	}
}

// Start sweeps immediately and then on every tick until ctx is done or the
// returned stop func is called. Stop waits for an in-flight sweep to finish.
func (w *SettlementWorker) Start(ctx context.Context) func() {
	stopChan := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		log.WithField("interval", w.interval).Info("Settlement worker started")

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			if _, err := w.RunOnce(ctx); err != nil {
				log.WithError(err).Error("Settlement sweep failed")
			}

			select {
			case <-ctx.Done():
				log.Info("Settlement worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Settlement worker shutting down (stop requested)...")
				return
			case <-ticker.C:
			}
		}
	}()

	return func() {
		close(stopChan)
		<-done
	}
}

// RunOnce performs one sweep under the cross-process lock
func (w *SettlementWorker) RunOnce(ctx context.Context) (*models.SettlementReport, error) {
	release, err := w.locker.Obtain(ctx, settlementLockKey, w.lockTTL)
	if errors.Is(err, ErrLockHeld) {
		log.Debug("Settlement lock held elsewhere, skipping sweep")
		return &models.SettlementReport{StartedAt: time.Now().UTC(), Skipped: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain settlement lock: %w", err)
	}
	defer func() {
		// the sweep may have cancelled ctx; release on a fresh one
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := release(releaseCtx); err != nil {
			log.WithError(err).Warn("Failed to release settlement lock")
		}
	}()

	report, err := w.sweeper.RunSettlementSweep(ctx)
	if err != nil {
		return nil, fmt.Errorf("settlement sweep: %w", err)
	}
	return report, nil
}

// LocalLocker never contends. Used when no Redis is configured, with a single process.
type LocalLocker struct{}

func (LocalLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	return func(context.Context) error { return nil }, nil
}
