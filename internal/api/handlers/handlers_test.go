package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nvkv/botfleet/internal/provision"
	"github.com/nvkv/botfleet/internal/store"
)

type fakeProvisioner struct {
	tenantID string
	err      error
}

func (f *fakeProvisioner) Provision(_ context.Context, botToken string, adminID int64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.tenantID, nil
}

type fakeSubs struct {
	subs map[string]*store.Subscription
}

func (f *fakeSubs) Get(_ context.Context, tenantID string) (*store.Subscription, error) {
	sub, ok := f.subs[tenantID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return sub, nil
}

type fakeBilling struct {
	url        string
	linkErr    error
	confirmErr error
	confirmed  []string
}

func (f *fakeBilling) RenewalLink(_ context.Context, tenantID string, _ int64, _ int) (string, error) {
	if f.linkErr != nil {
		return "", f.linkErr
	}
	return f.url, nil
}

func (f *fakeBilling) ConfirmPayment(_ context.Context, paymentID string) error {
	if f.confirmErr != nil {
		return f.confirmErr
	}
	f.confirmed = append(f.confirmed, paymentID)
	return nil
}

func setupRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/api/v1/bots", h.CreateBot)
	router.GET("/api/v1/subscriptions/:tenant_id", h.GetSubscription)
	router.POST("/api/v1/subscriptions/:tenant_id/payments", h.CreatePaymentLink)
	router.POST("/webhooks/payment", h.PaymentWebhook)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateBot(t *testing.T) {
	t.Run("returns tenant id", func(t *testing.T) {
		h := NewHandler(&fakeProvisioner{tenantID: "ab12cd34"}, &fakeSubs{}, &fakeBilling{}, nil, zap.NewNop())
		router := setupRouter(h)

		w := doJSON(t, router, http.MethodPost, "/api/v1/bots", gin.H{"bot_token": "T1", "admin_id": 111})
		require.Equal(t, http.StatusCreated, w.Code)

		var resp map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "ok", resp["status"])
		assert.Equal(t, "ab12cd34", resp["tenant_id"])
	})

	t.Run("rejects missing fields", func(t *testing.T) {
		h := NewHandler(&fakeProvisioner{}, &fakeSubs{}, &fakeBilling{}, nil, zap.NewNop())
		router := setupRouter(h)

		w := doJSON(t, router, http.MethodPost, "/api/v1/bots", gin.H{"bot_token": "T1"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("reports the failed step", func(t *testing.T) {
		provErr := &provision.StepError{Step: provision.StepStart, TenantID: "ab12cd34", Err: errors.New("boom")}
		h := NewHandler(&fakeProvisioner{err: provErr}, &fakeSubs{}, &fakeBilling{}, nil, zap.NewNop())
		router := setupRouter(h)

		w := doJSON(t, router, http.MethodPost, "/api/v1/bots", gin.H{"bot_token": "T1", "admin_id": 111})
		require.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "start")
	})
}

func TestGetSubscription(t *testing.T) {
	created := time.Now().Add(-24 * time.Hour)
	subs := &fakeSubs{subs: map[string]*store.Subscription{
		"ab12cd34": {TenantID: "ab12cd34", AdminID: 111, CreatedAt: created, Active: true},
	}}

	t.Run("found", func(t *testing.T) {
		h := NewHandler(&fakeProvisioner{}, subs, &fakeBilling{}, nil, zap.NewNop())
		router := setupRouter(h)

		w := doJSON(t, router, http.MethodGet, "/api/v1/subscriptions/ab12cd34", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var sub store.Subscription
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sub))
		assert.Equal(t, "ab12cd34", sub.TenantID)
		assert.True(t, sub.Active)
	})

	t.Run("not found", func(t *testing.T) {
		h := NewHandler(&fakeProvisioner{}, subs, &fakeBilling{}, nil, zap.NewNop())
		router := setupRouter(h)

		w := doJSON(t, router, http.MethodGet, "/api/v1/subscriptions/ghost", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestCreatePaymentLink(t *testing.T) {
	subs := &fakeSubs{subs: map[string]*store.Subscription{
		"ab12cd34": {TenantID: "ab12cd34", AdminID: 111, Active: true},
	}}

	t.Run("returns confirmation url", func(t *testing.T) {
		h := NewHandler(&fakeProvisioner{}, subs, &fakeBilling{url: "https://pay.example.com/1"}, nil, zap.NewNop())
		router := setupRouter(h)

		w := doJSON(t, router, http.MethodPost, "/api/v1/subscriptions/ab12cd34/payments", gin.H{"months": 3})
		require.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), "https://pay.example.com/1")
	})

	t.Run("rejects unknown plan", func(t *testing.T) {
		h := NewHandler(&fakeProvisioner{}, subs, &fakeBilling{}, nil, zap.NewNop())
		router := setupRouter(h)

		w := doJSON(t, router, http.MethodPost, "/api/v1/subscriptions/ab12cd34/payments", gin.H{"months": 7})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("gateway failure", func(t *testing.T) {
		h := NewHandler(&fakeProvisioner{}, subs, &fakeBilling{linkErr: errors.New("down")}, nil, zap.NewNop())
		router := setupRouter(h)

		w := doJSON(t, router, http.MethodPost, "/api/v1/subscriptions/ab12cd34/payments", gin.H{"months": 1})
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})
}

func TestPaymentWebhook(t *testing.T) {
	t.Run("confirms succeeded payment", func(t *testing.T) {
		billing := &fakeBilling{}
		h := NewHandler(&fakeProvisioner{}, &fakeSubs{}, billing, nil, zap.NewNop())
		router := setupRouter(h)

		w := doJSON(t, router, http.MethodPost, "/webhooks/payment", gin.H{
			"event":  "payment.succeeded",
			"object": gin.H{"id": "pay-1"},
		})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []string{"pay-1"}, billing.confirmed)
	})

	t.Run("ignores other events", func(t *testing.T) {
		billing := &fakeBilling{}
		h := NewHandler(&fakeProvisioner{}, &fakeSubs{}, billing, nil, zap.NewNop())
		router := setupRouter(h)

		w := doJSON(t, router, http.MethodPost, "/webhooks/payment", gin.H{
			"event":  "payment.canceled",
			"object": gin.H{"id": "pay-1"},
		})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, billing.confirmed)
	})

	t.Run("acknowledges replays", func(t *testing.T) {
		billing := &fakeBilling{confirmErr: store.ErrNotFound}
		h := NewHandler(&fakeProvisioner{}, &fakeSubs{}, billing, nil, zap.NewNop())
		router := setupRouter(h)

		w := doJSON(t, router, http.MethodPost, "/webhooks/payment", gin.H{
			"event":  "payment.succeeded",
			"object": gin.H{"id": "pay-1"},
		})
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
