package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

// PromRecorder records metrics into a Prometheus registry.
type PromRecorder struct {
	invocations     *prom.CounterVec
	invocationSecs  *prom.HistogramVec
	retries         *prom.CounterVec
	sourceFailures  *prom.CounterVec
	degradedResults *prom.CounterVec
}

var _ Recorder = (*PromRecorder)(nil)

// NewPromRecorder creates the collectors and registers them with reg.
func NewPromRecorder(reg prom.Registerer) (*PromRecorder, error) {
	p := &PromRecorder{
		invocations: prom.NewCounterVec(prom.CounterOpts{
			Name: "sercha_invocations_total",
			Help: "Total number of attempts against external providers",
		}, []string{"provider", "outcome"}),
		invocationSecs: prom.NewHistogramVec(prom.HistogramOpts{
			Name:    "sercha_invocation_seconds",
			Help:    "Provider attempt duration in seconds",
			Buckets: prom.DefBuckets,
		}, []string{"provider", "success"}),
		retries: prom.NewCounterVec(prom.CounterOpts{
			Name: "sercha_retries_total",
			Help: "Total number of rate-limit retries per provider",
		}, []string{"provider"}),
		sourceFailures: prom.NewCounterVec(prom.CounterOpts{
			Name: "sercha_source_failures_total",
			Help: "Sources dropped from a fan-out because they failed",
		}, []string{"operation"}),
		degradedResults: prom.NewCounterVec(prom.CounterOpts{
			Name: "sercha_degraded_results_total",
			Help: "Results produced by a fallback path",
		}, []string{"operation", "kind"}),
	}

	for _, c := range []prom.Collector{
		p.invocations, p.invocationSecs, p.retries, p.sourceFailures, p.degradedResults,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *PromRecorder) IncInvocation(provider, outcome string) {
	p.invocations.WithLabelValues(provider, outcome).Inc()
}

func (p *PromRecorder) ObserveInvocationSeconds(provider string, success bool, seconds float64) {
	p.invocationSecs.WithLabelValues(provider, strconv.FormatBool(success)).Observe(seconds)
}

func (p *PromRecorder) IncRetry(provider string) {
	p.retries.WithLabelValues(provider).Inc()
}

func (p *PromRecorder) IncSourceFailure(operation string) {
	p.sourceFailures.WithLabelValues(operation).Inc()
}

func (p *PromRecorder) IncDegraded(operation, kind string) {
	p.degradedResults.WithLabelValues(operation, kind).Inc()
}

// Serve installs a Prometheus recorder as the default and exposes /metrics
// and /healthz on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	registry := prom.NewRegistry()
	p, err := NewPromRecorder(registry)
	if err != nil {
		return err
	}
	SetRecorder(p)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		server.Shutdown(context.Background()) //nolint:errcheck
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
