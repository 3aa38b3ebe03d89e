package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		paymentsTotal,
		paymentsRevenueTotal,
		paymentConfirmations,
		paymentVerifyDuration,
		webhookRequests,
	)
}

var (
	paymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_total",
			Help: "Payments by status (initiated/pending/success/failed).",
		},
		[]string{"status"},
	)

	paymentsRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_revenue_total",
			Help: "The total monetary value of PAID orders, labeled by currency.",
		},
		[]string{"currency"},
	)

	// channel: webhook|poll|reconcile
	// result: paid|already_paid|pending|failed|mismatch|not_found|provider_error|error
	paymentConfirmations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_confirmations_total",
			Help: "Confirmation signals processed by channel and result.",
		},
		[]string{"channel", "result"},
	)

	paymentVerifyDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_verify_duration_seconds",
			Help:    "Duration of server-to-server provider verification calls.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
		},
		[]string{"provider", "result"},
	)

	// result: accepted|unauthenticated|unparsed|unknown_provider|dropped
	webhookRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_requests_total",
			Help: "Inbound provider webhooks by provider and handling result.",
		},
		[]string{"provider", "result"},
	)
)

func IncPayment(status string) {
	paymentsTotal.WithLabelValues(norm(status)).Inc()
}

func AddPaymentRevenue(currency string, amount int64) {
	paymentsRevenueTotal.WithLabelValues(norm(currency)).Add(float64(amount))
}

func IncConfirmation(channel, result string) {
	paymentConfirmations.WithLabelValues(norm(channel), norm(result)).Inc()
}

func ObserveVerify(provider string, ok bool, d time.Duration) {
	result := "ok"
	if !ok {
		result = "fail"
	}
	paymentVerifyDuration.WithLabelValues(norm(provider), result).Observe(d.Seconds())
}

func IncWebhook(provider, result string) {
	webhookRequests.WithLabelValues(norm(provider), norm(result)).Inc()
}
