// internal/metrics/metrics.go
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "crm"

// Metrics groups every collector the service exports.
type Metrics struct {
	CampaignSends   *prometheus.CounterVec
	ProspectImports *prometheus.CounterVec
	FormSubmissions *prometheus.CounterVec
	RelayEvents     *prometheus.CounterVec
	RelayDropped    *prometheus.CounterVec
	RelayViewers    prometheus.Gauge
}

// New registers the collectors on reg. Pass a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CampaignSends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "campaign_sends_total",
			Help:      "Campaign recipient deliveries by outcome.",
		}, []string{"status"}),
		ProspectImports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prospect_import_rows_total",
			Help:      "CSV import rows by outcome.",
		}, []string{"outcome"}),
		FormSubmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "landing_page_submissions_total",
			Help:      "Landing page form submissions by outcome.",
		}, []string{"outcome"}),
		RelayEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_events_total",
			Help:      "Realtime events published by type.",
		}, []string{"type"}),
		RelayDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_events_dropped_total",
			Help:      "Realtime events not delivered to a viewer, by type.",
		}, []string{"type"}),
		RelayViewers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "relay_viewers",
			Help:      "Connected realtime viewers.",
		}),
	}
	reg.MustRegister(m.CampaignSends, m.ProspectImports, m.FormSubmissions, m.RelayEvents, m.RelayDropped, m.RelayViewers)
	return m
}

// NewRegistry creates a registry with Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// NewNop returns metrics registered on a throwaway registry.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
