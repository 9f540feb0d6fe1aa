package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	loginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Login attempts by result.",
		},
		[]string{"result"},
	)

	registrationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_registrations_total",
		Help: "Successful registrations.",
	})

	tokenRedemptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_token_redemptions_total",
			Help: "Reset/verification token redemptions by kind and result.",
		},
		[]string{"kind", "result"},
	)
)

func Init() {
	prometheus.MustRegister(loginsTotal, registrationsTotal, tokenRedemptionsTotal)
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func LoginAttempt(result string)          { loginsTotal.WithLabelValues(result).Inc() }
func Registration()                       { registrationsTotal.Inc() }
func TokenRedemption(kind, result string) { tokenRedemptionsTotal.WithLabelValues(kind, result).Inc() }
