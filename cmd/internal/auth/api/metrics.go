package authapi

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts auth outcomes. A nil *Metrics is valid and counts nothing.
// Outcome labels are low-cardinality and stable: ok, rejected, malformed,
// invalid, error.
type Metrics struct {
	registrations *prometheus.CounterVec
	logins        *prometheus.CounterVec
	tokenChecks   *prometheus.CounterVec
}

// NewMetrics builds and registers the auth counters on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sonar_registrations_total",
			Help: "User registration attempts by outcome.",
		}, []string{"outcome"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sonar_logins_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome"}),
		tokenChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sonar_token_checks_total",
			Help: "Token authentications by outcome.",
		}, []string{"outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.registrations, m.logins, m.tokenChecks)
	}
	return m
}

// Registration counts one registration attempt.
func (m *Metrics) Registration(outcome string) {
	if m != nil {
		m.registrations.WithLabelValues(outcome).Inc()
	}
}

// Login counts one login attempt.
func (m *Metrics) Login(outcome string) {
	if m != nil {
		m.logins.WithLabelValues(outcome).Inc()
	}
}

// TokenCheck counts one token authentication.
func (m *Metrics) TokenCheck(outcome string) {
	if m != nil {
		m.tokenChecks.WithLabelValues(outcome).Inc()
	}
}
