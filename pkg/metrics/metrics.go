package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the application collectors. A nil *Registry is valid and records nothing.
type Registry struct {
	reg             *prometheus.Registry
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	jobsExecuted    *prometheus.CounterVec
	articlesScored  prometheus.Counter
	tradesPlanned   *prometheus.CounterVec
	backtestsRun    prometheus.Counter
	wsClients       prometheus.Gauge
	classifierCalls *prometheus.CounterVec
}

// New creates a registry with every collector registered under the given namespace.
func New(namespace string) *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "http_requests_total", Help: "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds", Help: "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		jobsExecuted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "jobs_executed_total", Help: "Executed jobs by type and status.",
		}, []string{"type", "status"}),
		articlesScored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "articles_scored_total", Help: "Articles scored for sentiment.",
		}),
		tradesPlanned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "rebalance_trades_total", Help: "Rebalance trades by type and mode.",
		}, []string{"type", "mode"}),
		backtestsRun: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "backtests_total", Help: "Completed backtest runs.",
		}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "ws_clients", Help: "Connected websocket clients.",
		}),
		classifierCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "classifier_calls_total", Help: "Classifier calls by provider and outcome.",
		}, []string{"provider", "outcome"}),
	}
	r.reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		r.httpRequests, r.httpDuration, r.jobsExecuted, r.articlesScored,
		r.tradesPlanned, r.backtestsRun, r.wsClients, r.classifierCalls,
	)
	return r
}

// Handler exposes the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Gatherer returns the underlying gatherer.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

func (r *Registry) ObserveHTTP(method, route, status string, d time.Duration) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(method, route, status).Inc()
	r.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (r *Registry) JobExecuted(jobType, status string) {
	if r == nil {
		return
	}
	r.jobsExecuted.WithLabelValues(jobType, status).Inc()
}

func (r *Registry) ArticlesScored(n int) {
	if r == nil {
		return
	}
	r.articlesScored.Add(float64(n))
}

func (r *Registry) TradePlanned(tradeType string, dryRun bool) {
	if r == nil {
		return
	}
	mode := "commit"
	if dryRun {
		mode = "dry_run"
	}
	r.tradesPlanned.WithLabelValues(tradeType, mode).Inc()
}

func (r *Registry) BacktestCompleted() {
	if r == nil {
		return
	}
	r.backtestsRun.Inc()
}

func (r *Registry) WSClients(delta float64) {
	if r == nil {
		return
	}
	r.wsClients.Add(delta)
}

func (r *Registry) ClassifierCall(provider, outcome string) {
	if r == nil {
		return
	}
	r.classifierCalls.WithLabelValues(provider, outcome).Inc()
}
