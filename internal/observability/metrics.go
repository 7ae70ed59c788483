// Package observability содержит метрики Prometheus сервиса аукциона.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Значения метки result.
const (
	ResultAccepted = "accepted"
	ResultRejected = "rejected"
	ResultSuccess  = "success"
	ResultFailure  = "failure"
)

// Metrics хранит метрики сервиса в собственном реестре.
type Metrics struct {
	registry *prometheus.Registry

	Bids         *prometheus.CounterVec
	Refunds      *prometheus.CounterVec
	Transfers    *prometheus.CounterVec
	Settlements  *prometheus.CounterVec
	HighestTotal prometheus.Gauge
	SinkErrors   *prometheus.CounterVec
}

// NewMetrics регистрирует метрики в новом реестре.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Bids: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "auction_bids_total",
			Help: "Bids processed by result and reason.",
		}, []string{"result", "reason"}),
		Refunds: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "auction_refunds_total",
			Help: "Partial refund requests by result.",
		}, []string{"result"}),
		Transfers: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "auction_transfers_total",
			Help: "Outgoing value transfers by result.",
		}, []string{"result"}),
		Settlements: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "auction_settlements_total",
			Help: "Settlement attempts by trigger and result.",
		}, []string{"trigger", "result"}),
		HighestTotal: factory.NewGauge(prometheus.GaugeOpts{
			Name: "auction_highest_total",
			Help: "Current highest escrowed total.",
		}),
		SinkErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "auction_notification_errors_total",
			Help: "Notification delivery failures by sink.",
		}, []string{"sink"}),
	}
}

// Handler возвращает HTTP-обработчик для экспорта метрик.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry возвращает реестр метрик.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
