// Package metrics exposes prometheus instruments for billing operations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts billing operations by outcome.
type Metrics struct {
	registry *prometheus.Registry

	CheckoutsCreated  *prometheus.CounterVec
	PaymentsSettled   prometheus.Counter
	PaymentsFailed    prometheus.Counter
	KeyValidations    *prometheus.CounterVec
	KeysRevoked       prometheus.Counter
	WebhookSignatures *prometheus.CounterVec
}

// New builds the billing collectors on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		CheckoutsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "billing",
			Name:      "checkouts_created_total",
			Help:      "Checkouts created, by provider and outcome.",
		}, []string{"provider", "outcome"}),
		PaymentsSettled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "billing",
			Name:      "payments_settled_total",
			Help:      "Payments settled successfully.",
		}),
		PaymentsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "billing",
			Name:      "payments_failed_total",
			Help:      "Payments marked failed.",
		}),
		KeyValidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "billing",
			Name:      "api_key_validations_total",
			Help:      "API key validations, by outcome.",
		}, []string{"outcome"}),
		KeysRevoked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "billing",
			Name:      "api_keys_revoked_total",
			Help:      "API keys revoked.",
		}),
		WebhookSignatures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "billing",
			Name:      "webhook_signatures_total",
			Help:      "Webhook signature checks, by provider and outcome.",
		}, []string{"provider", "outcome"}),
	}

	registry.MustRegister(
		m.CheckoutsCreated,
		m.PaymentsSettled,
		m.PaymentsFailed,
		m.KeyValidations,
		m.KeysRevoked,
		m.WebhookSignatures,
	)

	return m
}

// Registry exposes the underlying registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)
