package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service counters. A nil *Metrics is valid and records
// nothing, which keeps tests free of registry setup.
type Metrics struct {
	registry *prometheus.Registry

	MovementsTotal         *prometheus.CounterVec
	InsufficientStockTotal prometheus.Counter
	OrderTransitionsTotal  *prometheus.CounterVec
	VariantsCreatedTotal   prometheus.Counter
	NotificationsTotal     *prometheus.CounterVec
	EmailFailuresTotal     prometheus.Counter
}

func New(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		MovementsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_movements_total",
			Help:      "Stock movements appended to the ledger, by type.",
		}, []string{"type"}),
		InsufficientStockTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "insufficient_stock_total",
			Help:      "Appends rejected because the quantity would go negative.",
		}),
		OrderTransitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_transitions_total",
			Help:      "Order status transitions, by target status and outcome.",
		}, []string{"status", "outcome"}),
		VariantsCreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "variants_created_total",
			Help:      "Variants created by generation or manual creation.",
		}),
		NotificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_notifications_total",
			Help:      "Stock notifications raised, by type.",
		}, []string{"type"}),
		EmailFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_email_failures_total",
			Help:      "Notification emails that could not be handed to the mailer.",
		}),
	}

	registry.MustRegister(
		m.MovementsTotal,
		m.InsufficientStockTotal,
		m.OrderTransitionsTotal,
		m.VariantsCreatedTotal,
		m.NotificationsTotal,
		m.EmailFailuresTotal,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) MovementRecorded(typ string) {
	if m == nil {
		return
	}
	m.MovementsTotal.WithLabelValues(typ).Inc()
}

func (m *Metrics) InsufficientStock() {
	if m == nil {
		return
	}
	m.InsufficientStockTotal.Inc()
}

func (m *Metrics) OrderTransition(status, outcome string) {
	if m == nil {
		return
	}
	m.OrderTransitionsTotal.WithLabelValues(status, outcome).Inc()
}

func (m *Metrics) VariantsCreated(n int) {
	if m == nil {
		return
	}
	m.VariantsCreatedTotal.Add(float64(n))
}

func (m *Metrics) NotificationRaised(typ string) {
	if m == nil {
		return
	}
	m.NotificationsTotal.WithLabelValues(typ).Inc()
}

func (m *Metrics) EmailFailed() {
	if m == nil {
		return
	}
	m.EmailFailuresTotal.Inc()
}
