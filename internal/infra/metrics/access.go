package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(radiusActivations, nasAuthorizations, securityEvents)
}

var (
	// result: ok|error
	radiusActivations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radius_activations_total",
			Help: "RADIUS credential activations by result.",
		},
		[]string{"result"},
	)

	// outcome: success|skipped|failed
	nasAuthorizations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nas_authorizations_total",
			Help: "Device auto-authorizations on the NAS by outcome.",
		},
		[]string{"outcome"},
	)

	securityEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voucher_security_events_total",
			Help: "Voucher security events by type and severity.",
		},
		[]string{"event", "severity"},
	)
)

func IncRadiusActivation(ok bool) {
	if ok {
		radiusActivations.WithLabelValues("ok").Inc()
		return
	}
	radiusActivations.WithLabelValues("error").Inc()
}

func IncNASAuthorization(outcome string) {
	nasAuthorizations.WithLabelValues(norm(outcome)).Inc()
}

func IncSecurityEvent(event, severity string) {
	securityEvents.WithLabelValues(norm(event), norm(severity)).Inc()
}
