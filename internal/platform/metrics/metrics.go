// Package metrics holds the Prometheus collectors of the blood bank service.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups every collector. All methods are safe on a nil receiver so
// services can run without instrumentation in tests.
type Metrics struct {
	HTTPRequestDuration  *prometheus.HistogramVec
	CompatibilityLookups *prometheus.CounterVec
	DonationsRecorded    *prometheus.CounterVec
	RequestDecisions     *prometheus.CounterVec
	InventoryUnits       *prometheus.GaugeVec
	LoginAttempts        *prometheus.CounterVec
	HandlerPanics        *prometheus.CounterVec
}

// New registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bloodbank_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by method, route and status",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"method", "route", "status"}),
		CompatibilityLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bloodbank_compatibility_lookups_total",
			Help: "Compatibility lookups by result (found, not_found)",
		}, []string{"result"}),
		DonationsRecorded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bloodbank_donations_recorded_total",
			Help: "Donations recorded by blood group",
		}, []string{"blood_group"}),
		RequestDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bloodbank_request_decisions_total",
			Help: "Blood request transitions by decision (approved, rejected, fulfilled)",
		}, []string{"decision"}),
		InventoryUnits: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bloodbank_inventory_units",
			Help: "Units available per blood group as last observed",
		}, []string{"blood_group"}),
		LoginAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bloodbank_login_attempts_total",
			Help: "Login attempts by outcome (success, failure)",
		}, []string{"outcome"}),
		HandlerPanics: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bloodbank_handler_panics_total",
			Help: "Recovered handler panics by route",
		}, []string{"route"}),
	}
}

func (m *Metrics) ObserveLookup(found bool) {
	if m == nil {
		return
	}
	result := "found"
	if !found {
		result = "not_found"
	}
	m.CompatibilityLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) IncDonation(bloodGroup string) {
	if m == nil {
		return
	}
	m.DonationsRecorded.WithLabelValues(bloodGroup).Inc()
}

func (m *Metrics) IncDecision(decision string) {
	if m == nil {
		return
	}
	m.RequestDecisions.WithLabelValues(decision).Inc()
}

func (m *Metrics) SetInventory(bloodGroup string, units int) {
	if m == nil {
		return
	}
	m.InventoryUnits.WithLabelValues(bloodGroup).Set(float64(units))
}

func (m *Metrics) IncLogin(success bool) {
	if m == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.LoginAttempts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncPanic(route string) {
	if m == nil {
		return
	}
	m.HandlerPanics.WithLabelValues(route).Inc()
}

// ObserveRequest records the duration of an HTTP request.
// Call with time.Now() at the start of the request.
func (m *Metrics) ObserveRequest(method, route string, status int, start time.Time) {
	if m == nil {
		return
	}
	m.HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
}

// Handler exposes the gatherer in the Prometheus text format.
func Handler(g prometheus.Gatherer) echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}
