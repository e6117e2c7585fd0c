package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nvkv/botfleet/internal/sweep"
)

type Collector struct {
	tenantsProvisioned prometheus.Counter
	provisionFailures  *prometheus.CounterVec

	sweepPasses      prometheus.Counter
	sweepDuration    prometheus.Histogram
	tenantsReclaimed prometheus.Counter
	reclaimFailures  prometheus.Counter
	runtimeOpErrors  *prometheus.CounterVec

	notificationsSent   prometheus.Counter
	notificationsFailed prometheus.Counter

	paymentLinksCreated prometheus.Counter
	paymentsConfirmed   prometheus.Counter
}

func NewCollector() *Collector {
	return &Collector{
		tenantsProvisioned: promauto.NewCounter(prometheus.CounterOpts{
			Name: "botfleet_tenants_provisioned_total",
			Help: "Tenants provisioned successfully",
		}),
		provisionFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "botfleet_provision_failures_total",
			Help: "Provisioning failures by step",
		}, []string{"step"}),
		sweepPasses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "botfleet_sweep_passes_total",
			Help: "Completed sweep passes",
		}),
		sweepDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "botfleet_sweep_duration_seconds",
			Help:    "Duration of a sweep pass",
			Buckets: prometheus.DefBuckets,
		}),
		tenantsReclaimed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "botfleet_tenants_reclaimed_total",
			Help: "Expired tenants reclaimed by the sweeper",
		}),
		reclaimFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "botfleet_reclaim_failures_total",
			Help: "Tenants whose reclamation failed and will be retried",
		}),
		runtimeOpErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "botfleet_runtime_op_errors_total",
			Help: "Runtime backend operation errors by op",
		}, []string{"op"}),
		notificationsSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "botfleet_notifications_sent_total",
			Help: "Renewal notifications delivered",
		}),
		notificationsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "botfleet_notifications_failed_total",
			Help: "Renewal notifications that failed to send",
		}),
		paymentLinksCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "botfleet_payment_links_created_total",
			Help: "Payment links handed out",
		}),
		paymentsConfirmed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "botfleet_payments_confirmed_total",
			Help: "Payments confirmed via webhook",
		}),
	}
}

func (c *Collector) RecordProvision(step string, err error) {
	if err == nil {
		c.tenantsProvisioned.Inc()
		return
	}
	c.provisionFailures.WithLabelValues(step).Inc()
}

func (c *Collector) RecordSweep(stats sweep.Stats, duration time.Duration) {
	c.sweepPasses.Inc()
	c.sweepDuration.Observe(duration.Seconds())
	c.tenantsReclaimed.Add(float64(stats.Reclaimed))
	c.reclaimFailures.Add(float64(stats.Failed))
}

func (c *Collector) RecordRuntimeOpError(op string) {
	c.runtimeOpErrors.WithLabelValues(op).Inc()
}

func (c *Collector) RecordNotification(ok bool) {
	if ok {
		c.notificationsSent.Inc()
		return
	}
	c.notificationsFailed.Inc()
}

func (c *Collector) RecordPaymentLink() {
	c.paymentLinksCreated.Inc()
}

func (c *Collector) RecordPaymentConfirmed() {
	c.paymentsConfirmed.Inc()
}
