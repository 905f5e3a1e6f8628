package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"estateoracle/internal/bootstrap/logging"
	"estateoracle/internal/errs"
	"estateoracle/internal/ports"
)

const namespace = "estateoracle"

// Recorder implements ports.OracleMetrics on its own registry.
type Recorder struct {
	registry *prometheus.Registry

	eventsIngested *prometheus.CounterVec
	syncTotal      *prometheus.CounterVec
	syncDuration   prometheus.Histogram
	dispatches     *prometheus.CounterVec
	pending        *prometheus.GaugeVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		eventsIngested: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_ingested_total",
				Help:      "Oracle events seen by ingestion, by result.",
			},
			[]string{"result"},
		),
		syncTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_ticks_total",
				Help:      "Sync ticks, by status.",
			},
			[]string{"status"},
		),
		syncDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "sync_tick_duration_seconds",
				Help:      "Duration of one sync tick.",
				Buckets:   prometheus.DefBuckets,
			},
		),
		dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "valuation_requests_total",
				Help:      "Valuation request attempts, by trigger and outcome.",
			},
			[]string{"trigger", "outcome"},
		),
		pending: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "property_request_pending",
				Help:      "1 while a property has a pending valuation request.",
			},
			[]string{"property_id"},
		),
	}

	r.registry.MustRegister(
		r.eventsIngested,
		r.syncTotal,
		r.syncDuration,
		r.dispatches,
		r.pending,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

func (r *Recorder) EventsIngested(appended int, duplicates int, malformed int) {
	r.eventsIngested.WithLabelValues("appended").Add(float64(appended))
	r.eventsIngested.WithLabelValues("duplicate").Add(float64(duplicates))
	r.eventsIngested.WithLabelValues("malformed").Add(float64(malformed))
}

func (r *Recorder) SyncCompleted(elapsed time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.syncTotal.WithLabelValues(status).Inc()
	r.syncDuration.Observe(elapsed.Seconds())
}

func (r *Recorder) DispatchFinished(trigger string, outcome string) {
	r.dispatches.WithLabelValues(trigger, outcome).Inc()
}

func (r *Recorder) PendingObserved(entityID string, pending bool) {
	value := 0.0
	if pending {
		value = 1
	}
	r.pending.WithLabelValues(entityID).Set(value)
}

// Handler routes /metrics to the registry and answers /healthz.
func (r *Recorder) Handler() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return router
}

// Serve exposes Handler on addr until ctx ends.
func (r *Recorder) Serve(ctx context.Context, addr string) error {
	logCtx := logging.WithComponent(ctx, "metrics")

	server := &http.Server{Addr: addr, Handler: r.Handler(), ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	logging.Info(logCtx, "metrics endpoint listening", slog.String("addr", addr))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errs.Wrap(err, "serve metrics")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errs.Wrap(err, "shutdown metrics server")
		}
		return nil
	}
}

// Nop discards everything.
type Nop struct{}

func (Nop) EventsIngested(int, int, int)       {}
func (Nop) SyncCompleted(time.Duration, error) {}
func (Nop) DispatchFinished(string, string)    {}
func (Nop) PendingObserved(string, bool)       {}

var (
	_ ports.OracleMetrics = (*Recorder)(nil)
	_ ports.OracleMetrics = Nop{}
)
