package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nvkv/botfleet/internal/store"
)

type fakeGateway struct {
	payments []map[string]string
	amounts  []int
	err      error
}

func (f *fakeGateway) CreatePayment(_ context.Context, amount int, _ string, metadata map[string]string) (*Payment, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.amounts = append(f.amounts, amount)
	f.payments = append(f.payments, metadata)
	return &Payment{ID: "pay-1", ConfirmationURL: "https://gateway.example.com/confirm/pay-1"}, nil
}

type fakePendingStore struct {
	pending map[string]*store.PendingPayment
	paid    map[string]time.Time
}

func newFakePendingStore() *fakePendingStore {
	return &fakePendingStore{
		pending: map[string]*store.PendingPayment{},
		paid:    map[string]time.Time{},
	}
}

func (f *fakePendingStore) CreatePending(_ context.Context, p *store.PendingPayment) error {
	f.pending[p.PaymentID] = p
	return nil
}

func (f *fakePendingStore) TakePending(_ context.Context, paymentID string) (*store.PendingPayment, error) {
	p, ok := f.pending[paymentID]
	if !ok {
		return nil, store.ErrNotFound
	}
	delete(f.pending, paymentID)
	return p, nil
}

func (f *fakePendingStore) MarkPaid(_ context.Context, tenantID string, expiresAt time.Time) error {
	f.paid[tenantID] = expiresAt
	return nil
}

type nopMetrics struct{}

func (nopMetrics) RecordPaymentLink()      {}
func (nopMetrics) RecordPaymentConfirmed() {}

func newTestService(gateway PaymentGateway, st PendingStore, now time.Time) *Service {
	s := NewService(gateway, st, nopMetrics{}, zap.NewNop())
	s.now = func() time.Time { return now }
	return s
}

func TestRenewalLink(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("creates payment and pending row", func(t *testing.T) {
		gateway := &fakeGateway{}
		st := newFakePendingStore()
		s := newTestService(gateway, st, now)

		url, err := s.RenewalLink(context.Background(), "ab12cd34", 111, 3)
		require.NoError(t, err)
		assert.Equal(t, "https://gateway.example.com/confirm/pay-1", url)
		assert.Equal(t, []int{800}, gateway.amounts)
		assert.Equal(t, "ab12cd34", gateway.payments[0]["tenant_id"])

		pending := st.pending["pay-1"]
		require.NotNil(t, pending)
		assert.Equal(t, 3, pending.Months)
		assert.Equal(t, 800, pending.Amount)
	})

	t.Run("unknown plan", func(t *testing.T) {
		s := newTestService(&fakeGateway{}, newFakePendingStore(), now)

		_, err := s.RenewalLink(context.Background(), "ab12cd34", 111, 7)
		assert.Error(t, err)
	})

	t.Run("gateway failure propagates", func(t *testing.T) {
		s := newTestService(&fakeGateway{err: errors.New("502")}, newFakePendingStore(), now)

		_, err := s.RenewalLink(context.Background(), "ab12cd34", 111, 1)
		assert.Error(t, err)
	})

	t.Run("falls back to static links without a gateway", func(t *testing.T) {
		st := newFakePendingStore()
		s := newTestService(nil, st, now)

		url, err := s.RenewalLink(context.Background(), "ab12cd34", 111, 12)
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/pay/12months", url)
		assert.Empty(t, st.pending)
	})
}

func TestConfirmPayment(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("marks paid and extends expiry", func(t *testing.T) {
		st := newFakePendingStore()
		s := newTestService(&fakeGateway{}, st, now)

		_, err := s.RenewalLink(context.Background(), "ab12cd34", 111, 3)
		require.NoError(t, err)

		require.NoError(t, s.ConfirmPayment(context.Background(), "pay-1"))

		expires, ok := st.paid["ab12cd34"]
		require.True(t, ok)
		assert.Equal(t, now.Add(90*24*time.Hour), expires)
	})

	t.Run("replayed confirmation finds nothing", func(t *testing.T) {
		st := newFakePendingStore()
		s := newTestService(&fakeGateway{}, st, now)

		_, err := s.RenewalLink(context.Background(), "ab12cd34", 111, 1)
		require.NoError(t, err)
		require.NoError(t, s.ConfirmPayment(context.Background(), "pay-1"))

		err = s.ConfirmPayment(context.Background(), "pay-1")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}
