package billing

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/nvkv/botfleet/internal/store"
)

// Plan is a fixed-price renewal option.
type Plan struct {
	Months int
	Amount int
}

var Plans = []Plan{
	{Months: 1, Amount: 300},
	{Months: 3, Amount: 800},
	{Months: 12, Amount: 3000},
}

func PlanFor(months int) (Plan, bool) {
	for _, p := range Plans {
		if p.Months == months {
			return p, true
		}
	}
	return Plan{}, false
}

type PaymentGateway interface {
	CreatePayment(ctx context.Context, amount int, description string, metadata map[string]string) (*Payment, error)
}

type PendingStore interface {
	CreatePending(ctx context.Context, p *store.PendingPayment) error
	TakePending(ctx context.Context, paymentID string) (*store.PendingPayment, error)
	MarkPaid(ctx context.Context, tenantID string, expiresAt time.Time) error
}

type Metrics interface {
	RecordPaymentLink()
	RecordPaymentConfirmed()
}

// Service owns the renewal money flow: it hands out payment links backed
// by a durable pending-payment row and turns gateway confirmations into
// paid subscriptions with a recomputed expiry.
type Service struct {
	gateway PaymentGateway
	store   PendingStore
	static  *StaticLinks
	metrics Metrics
	logger  *zap.Logger

	now func() time.Time
}

// NewService builds the billing service. A nil gateway means no payment
// provider is configured; renewal links then come from the static stubs
// and no pending row is recorded.
func NewService(gateway PaymentGateway, st PendingStore, metrics Metrics, logger *zap.Logger) *Service {
	return &Service{
		gateway: gateway,
		store:   st,
		static:  NewStaticLinks(),
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// RenewalLink creates a payment for the given plan and records it as
// pending. The returned URL is where the tenant admin pays.
func (s *Service) RenewalLink(ctx context.Context, tenantID string, adminID int64, months int) (string, error) {
	plan, ok := PlanFor(months)
	if !ok {
		return "", fmt.Errorf("no plan for %d months", months)
	}

	if s.gateway == nil {
		return s.static.RenewalLink(ctx, tenantID, adminID, months)
	}

	payment, err := s.gateway.CreatePayment(ctx, plan.Amount,
		fmt.Sprintf("Bot subscription %s", tenantID),
		map[string]string{
			"tenant_id": tenantID,
			"admin_id":  strconv.FormatInt(adminID, 10),
			"months":    strconv.Itoa(plan.Months),
		})
	if err != nil {
		return "", err
	}

	pending := &store.PendingPayment{
		PaymentID: payment.ID,
		TenantID:  tenantID,
		AdminID:   adminID,
		Months:    plan.Months,
		Amount:    plan.Amount,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.CreatePending(ctx, pending); err != nil {
		return "", fmt.Errorf("failed to record pending payment: %w", err)
	}

	s.metrics.RecordPaymentLink()
	s.logger.Info("Payment link created",
		zap.String("tenant_id", tenantID),
		zap.String("payment_id", payment.ID),
		zap.Int("months", plan.Months),
	)
	return payment.ConfirmationURL, nil
}

// ConfirmPayment applies a succeeded-payment event from the gateway
// webhook: claim the pending row, mark the subscription paid, and stamp
// expires_at = now + 30*months days. Replays find no pending row and
// return store.ErrNotFound.
func (s *Service) ConfirmPayment(ctx context.Context, paymentID string) error {
	pending, err := s.store.TakePending(ctx, paymentID)
	if err != nil {
		return err
	}

	expiresAt := s.now().UTC().Add(time.Duration(pending.Months) * 30 * 24 * time.Hour)
	if err := s.store.MarkPaid(ctx, pending.TenantID, expiresAt); err != nil {
		return fmt.Errorf("failed to mark tenant %s paid: %w", pending.TenantID, err)
	}

	s.metrics.RecordPaymentConfirmed()
	s.logger.Info("Payment confirmed",
		zap.String("tenant_id", pending.TenantID),
		zap.String("payment_id", paymentID),
		zap.Time("expires_at", expiresAt),
	)
	return nil
}

// StaticLinks serves fixed renewal URLs when no payment gateway is
// configured.
type StaticLinks struct {
	URLs map[int]string
}

func NewStaticLinks() *StaticLinks {
	return &StaticLinks{URLs: map[int]string{
		1:  "https://example.com/pay/1month",
		3:  "https://example.com/pay/3months",
		12: "https://example.com/pay/12months",
	}}
}

func (s *StaticLinks) RenewalLink(_ context.Context, _ string, _ int64, months int) (string, error) {
	url, ok := s.URLs[months]
	if !ok {
		return "", fmt.Errorf("no link for %d months", months)
	}
	return url, nil
}
