package sweep

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nvkv/botfleet/internal/store"
)

// ErrSweepInProgress means another sweep pass holds the guard; the
// caller skips this tick rather than queueing behind it.
var ErrSweepInProgress = errors.New("sweep already in progress")

type CandidateStore interface {
	ListCandidates(ctx context.Context) ([]store.Subscription, error)
	Deactivate(ctx context.Context, tenantID string) error
}

type RuntimeBackend interface {
	Stop(ctx context.Context, tenantID string) error
	Remove(ctx context.Context, tenantID string) error
}

type Notifier interface {
	Notify(ctx context.Context, tenantID string) error
}

// Locker serializes sweeps across processes. Optional; nil degrades to
// the in-process guard only.
type Locker interface {
	AcquireSweepLease(ctx context.Context, ttl time.Duration) (bool, error)
	ReleaseSweepLease(ctx context.Context) error
}

type Metrics interface {
	RecordSweep(stats Stats, duration time.Duration)
	RecordRuntimeOpError(op string)
	RecordNotification(ok bool)
}

type Stats struct {
	Evaluated int
	Reclaimed int
	Failed    int
}

// Sweeper evaluates every subscription once per pass and reclaims the
// expired unpaid ones: stop, remove, deactivate, then best-effort
// notify. Each tenant is handled independently so one bad teardown
// never blocks the rest of the fleet.
type Sweeper struct {
	store    CandidateStore
	backend  RuntimeBackend
	notifier Notifier
	locker   Locker
	metrics  Metrics
	logger   *zap.Logger

	grace    time.Duration
	leaseTTL time.Duration

	mu  sync.Mutex
	now func() time.Time
}

func NewSweeper(st CandidateStore, backend RuntimeBackend, notifier Notifier, locker Locker, grace, leaseTTL time.Duration, metrics Metrics, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		store:    st,
		backend:  backend,
		notifier: notifier,
		locker:   locker,
		metrics:  metrics,
		logger:   logger,
		grace:    grace,
		leaseTTL: leaseTTL,
		now:      time.Now,
	}
}

// RunOnce performs one full sweep pass. Concurrent invocations are
// rejected with ErrSweepInProgress; two passes over the same snapshot
// could double-reclaim.
func (s *Sweeper) RunOnce(ctx context.Context) (Stats, error) {
	if !s.mu.TryLock() {
		return Stats{}, ErrSweepInProgress
	}
	defer s.mu.Unlock()

	if s.locker != nil {
		ok, err := s.locker.AcquireSweepLease(ctx, s.leaseTTL)
		if err != nil {
			return Stats{}, err
		}
		if !ok {
			return Stats{}, ErrSweepInProgress
		}
		defer func() {
			if err := s.locker.ReleaseSweepLease(context.Background()); err != nil {
				s.logger.Warn("Failed to release sweep lease", zap.Error(err))
			}
		}()
	}

	start := s.now()

	candidates, err := s.store.ListCandidates(ctx)
	if err != nil {
		return Stats{}, err
	}

	var stats Stats
	for _, sub := range candidates {
		// Cancel point between tenants only; a teardown in flight runs
		// to completion so no record is left half reclaimed.
		if ctx.Err() != nil {
			break
		}

		stats.Evaluated++
		if !s.due(sub) {
			continue
		}

		if err := s.reclaim(ctx, sub); err != nil {
			stats.Failed++
			s.logger.Error("Failed to reclaim tenant",
				zap.String("tenant_id", sub.TenantID),
				zap.Error(err),
			)
			continue
		}
		stats.Reclaimed++
	}

	s.metrics.RecordSweep(stats, s.now().Sub(start))
	s.logger.Info("Sweep pass finished",
		zap.Int("evaluated", stats.Evaluated),
		zap.Int("reclaimed", stats.Reclaimed),
		zap.Int("failed", stats.Failed),
	)
	return stats, nil
}

// due decides whether a record has crossed its expiry. Inactive rows are
// terminal. Unpaid rows get the fixed grace window from creation; paid
// rows last until the expiry stamped by their latest payment.
func (s *Sweeper) due(sub store.Subscription) bool {
	if !sub.Active {
		return false
	}
	now := s.now()
	if !sub.Paid {
		return now.Sub(sub.CreatedAt) >= s.grace
	}
	return sub.ExpiresAt != nil && now.After(*sub.ExpiresAt)
}

// reclaim tears one tenant down. Stop and remove errors are logged and
// skipped over: both are idempotent and the next pass retries them,
// while deactivation must commit now so the record never stays active
// past its expiry. Notification comes last and is best-effort.
func (s *Sweeper) reclaim(ctx context.Context, sub store.Subscription) error {
	s.logger.Info("Reclaiming expired tenant",
		zap.String("tenant_id", sub.TenantID),
		zap.Time("created_at", sub.CreatedAt),
		zap.Bool("paid", sub.Paid),
	)

	if err := s.backend.Stop(ctx, sub.TenantID); err != nil {
		s.metrics.RecordRuntimeOpError("stop")
		s.logger.Warn("Failed to stop instance",
			zap.String("tenant_id", sub.TenantID),
			zap.Error(err),
		)
	}
	if err := s.backend.Remove(ctx, sub.TenantID); err != nil {
		s.metrics.RecordRuntimeOpError("remove")
		s.logger.Warn("Failed to remove instance",
			zap.String("tenant_id", sub.TenantID),
			zap.Error(err),
		)
	}

	if err := s.store.Deactivate(ctx, sub.TenantID); err != nil {
		return err
	}

	if err := s.notifier.Notify(ctx, sub.TenantID); err != nil {
		s.metrics.RecordNotification(false)
		s.logger.Warn("Failed to notify tenant admin",
			zap.String("tenant_id", sub.TenantID),
			zap.Error(err),
		)
	} else {
		s.metrics.RecordNotification(true)
	}

	return nil
}
