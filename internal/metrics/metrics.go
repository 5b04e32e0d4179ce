// Package metrics exposes Prometheus counters for the authorization flows.
// Registration is idempotent; recording before registration is a no-op so
// unit tests need no metrics setup.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once
	registerErr  error

	flowsStartedTotal   *prometheus.CounterVec
	flowsCompletedTotal *prometheus.CounterVec
	flowErrorsTotal     *prometheus.CounterVec
	tokenRefreshesTotal *prometheus.CounterVec
	flowSweepsTotal     prometheus.Counter
	flowSweptTotal      prometheus.Counter
)

// Register initializes and registers the collectors and returns the /metrics
// handler.
func Register(reg prometheus.Registerer) (http.Handler, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	registerOnce.Do(func() {
		flowsStartedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oauth_flows_started_total",
			Help: "Authorization flows started, by provider",
		}, []string{"provider"})

		flowsCompletedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oauth_flows_completed_total",
			Help: "Authorization flows completed, by provider and outcome",
		}, []string{"provider", "outcome"}) // outcome: oauth.signin|oauth.signup|oauth.link

		flowErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oauth_flow_errors_total",
			Help: "Authorization flows that failed, by provider and reason",
		}, []string{"provider", "reason"})

		tokenRefreshesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oauth_token_refreshes_total",
			Help: "Provider token refresh attempts, by provider and result",
		}, []string{"provider", "result"}) // result: success|failure

		flowSweepsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "oauth_flow_sweeps_total",
			Help: "Expired-flow sweep runs",
		})

		flowSweptTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "oauth_flow_swept_records_total",
			Help: "Expired flow records removed by sweeps",
		})

		for _, c := range []prometheus.Collector{
			flowsStartedTotal, flowsCompletedTotal, flowErrorsTotal,
			tokenRefreshesTotal, flowSweepsTotal, flowSweptTotal,
		} {
			if err := register(reg, c); err != nil {
				registerErr = err
				return
			}
		}
	})
	if registerErr != nil {
		return nil, registerErr
	}
	return promhttp.Handler(), nil
}

func register(reg prometheus.Registerer, c prometheus.Collector) error {
	if err := reg.Register(c); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return nil
		}
		return err
	}
	return nil
}

func RecordFlowStarted(provider string) {
	if flowsStartedTotal != nil {
		flowsStartedTotal.WithLabelValues(provider).Inc()
	}
}

func RecordFlowCompleted(provider, outcome string) {
	if flowsCompletedTotal != nil {
		flowsCompletedTotal.WithLabelValues(provider, outcome).Inc()
	}
}

func RecordFlowError(provider, reason string) {
	if flowErrorsTotal != nil {
		flowErrorsTotal.WithLabelValues(provider, reason).Inc()
	}
}

func RecordRefresh(provider, result string) {
	if tokenRefreshesTotal != nil {
		tokenRefreshesTotal.WithLabelValues(provider, result).Inc()
	}
}

func RecordSweep(removed int) {
	if flowSweepsTotal != nil {
		flowSweepsTotal.Inc()
	}
	if flowSweptTotal != nil && removed > 0 {
		flowSweptTotal.Add(float64(removed))
	}
}
