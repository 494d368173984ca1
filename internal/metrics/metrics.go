package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pricing metrics
	QuotesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_quotes_total",
			Help: "Calls priced by destination type and pricing path",
		},
		[]string{"destination_type", "path"}, // path: rated, default_rate, fallback
	)

	PricingFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "billing_pricing_fallbacks_total",
			Help: "Calls priced with the simplified table because rate lookup failed",
		},
	)

	CallsRecordedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_calls_recorded_total",
			Help: "Priced call records written by destination type",
		},
		[]string{"destination_type"},
	)

	// Invoicing metrics
	InvoiceRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_invoice_runs_total",
			Help: "Invoice generation runs by outcome",
		},
		[]string{"outcome"}, // generated, empty, busy, error
	)

	InvoicesGeneratedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "billing_invoices_generated_total",
			Help: "Invoice rows written by generation runs",
		},
	)

	InvoiceRunDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "billing_invoice_run_duration_seconds",
			Help:    "Wall time of one invoice generation run",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)
)

// RecordQuote counts one priced call.
func RecordQuote(destinationType, path string) {
	QuotesTotal.WithLabelValues(destinationType, path).Inc()
	if path == "fallback" {
		PricingFallbacksTotal.Inc()
	}
}

// RecordCall counts one persisted call.
func RecordCall(destinationType string) {
	CallsRecordedTotal.WithLabelValues(destinationType).Inc()
}

// RecordInvoiceRun counts a generation run and its invoices.
func RecordInvoiceRun(outcome string, invoices int, took time.Duration) {
	InvoiceRunsTotal.WithLabelValues(outcome).Inc()
	if invoices > 0 {
		InvoicesGeneratedTotal.Add(float64(invoices))
	}
	if took > 0 {
		InvoiceRunDurationSeconds.Observe(took.Seconds())
	}
}
