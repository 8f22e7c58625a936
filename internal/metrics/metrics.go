package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	LoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Login attempts by result.",
		},
		[]string{"result"},
	)

	ValidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_token_validations_total",
			Help: "Session token validations by outcome.",
		},
		[]string{"outcome"},
	)

	RevocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_revocations_total",
			Help: "Token revocations by result.",
		},
		[]string{"result"},
	)

	PolicyDenialsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_policy_denials_total",
			Help: "Requests neutralized by the access policy.",
		},
	)
)

// Init registers the auth metrics with the default registry.
func Init() {
	prometheus.MustRegister(LoginsTotal, ValidationsTotal, RevocationsTotal, PolicyDenialsTotal)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
