package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics records reconciliation outcomes per entry path
// ("verify" for the client-driven flow, "ipn" for gateway notifications).
type PaymentMetrics struct {
	reconciled *prometheus.CounterVec
	duplicates *prometheus.CounterVec
	mismatches *prometheus.CounterVec
	failures   *prometheus.CounterVec
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	reconciled := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_reconciled_total",
		Help: "Orders transitioned to Paid, by entry path.",
	}, []string{"path"})
	duplicates := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_duplicate_notifications_total",
		Help: "Payment notifications for already-processed orders.",
	}, []string{"path"})
	mismatches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_amount_mismatch_total",
		Help: "Notifications rejected for amount mismatch.",
	}, []string{"path"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_failed_total",
		Help: "Orders transitioned to Failed, by entry path.",
	}, []string{"path"})
	reg.MustRegister(reconciled, duplicates, mismatches, failures)
	return &PaymentMetrics{
		reconciled: reconciled,
		duplicates: duplicates,
		mismatches: mismatches,
		failures:   failures,
	}
}

// IncReconciled counts a successful Paid transition.
func (p *PaymentMetrics) IncReconciled(path string) {
	if p == nil || p.reconciled == nil {
		return
	}
	p.reconciled.WithLabelValues(normalizeLabel(path)).Inc()
}

// IncDuplicate counts a notification absorbed by the idempotency check.
func (p *PaymentMetrics) IncDuplicate(path string) {
	if p == nil || p.duplicates == nil {
		return
	}
	p.duplicates.WithLabelValues(normalizeLabel(path)).Inc()
}

// IncAmountMismatch counts an amount-integrity rejection.
func (p *PaymentMetrics) IncAmountMismatch(path string) {
	if p == nil || p.mismatches == nil {
		return
	}
	p.mismatches.WithLabelValues(normalizeLabel(path)).Inc()
}

// IncFailed counts a Failed transition.
func (p *PaymentMetrics) IncFailed(path string) {
	if p == nil || p.failures == nil {
		return
	}
	p.failures.WithLabelValues(normalizeLabel(path)).Inc()
}

func normalizeLabel(path string) string {
	if path == "" {
		return "unknown"
	}
	return path
}
