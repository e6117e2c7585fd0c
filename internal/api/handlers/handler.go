package handlers

import (
	"context"

	"go.uber.org/zap"

	"github.com/nvkv/botfleet/internal/store"
)

type Provisioner interface {
	Provision(ctx context.Context, botToken string, adminID int64) (string, error)
}

type SubscriptionReader interface {
	Get(ctx context.Context, tenantID string) (*store.Subscription, error)
}

type BillingService interface {
	RenewalLink(ctx context.Context, tenantID string, adminID int64, months int) (string, error)
	ConfirmPayment(ctx context.Context, paymentID string) error
}

type SubscriptionCache interface {
	CacheSubscription(ctx context.Context, tenantID string, sub interface{}) error
	GetCachedSubscription(ctx context.Context, tenantID string, dest interface{}) error
}

type Handler struct {
	provisioner Provisioner
	subs        SubscriptionReader
	billing     BillingService
	cache       SubscriptionCache
	logger      *zap.Logger
}

func NewHandler(provisioner Provisioner, subs SubscriptionReader, billing BillingService, cache SubscriptionCache, logger *zap.Logger) *Handler {
	return &Handler{
		provisioner: provisioner,
		subs:        subs,
		billing:     billing,
		cache:       cache,
		logger:      logger,
	}
}
