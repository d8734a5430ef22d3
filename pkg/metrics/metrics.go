// Package metrics exposes the daemon's Prometheus collectors. The
// exporter is optional, collectors are cheap to update even when no
// listener is configured.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"taskmaster/pkg/logger"
)

var (
	ProcessUp = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "taskmaster_process_up",
		Help: "1 while the process instance is in RUNNING state.",
	}, []string{"program", "instance"})

	ProcStates = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "taskmaster_process_states",
		Help: "Instances currently in each lifecycle state.",
	}, []string{"state"})

	SpawnsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "taskmaster_process_spawns_total",
		Help: "Process launches, including backoff retries.",
	}, []string{"program"})

	SpawnFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "taskmaster_process_spawn_failures_total",
		Help: "Launch attempts that failed before the process existed.",
	}, []string{"program"})

	ExitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "taskmaster_process_exits_total",
		Help: "Child exits partitioned by whether the code was expected.",
	}, []string{"program", "expected"})

	RestartsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "taskmaster_process_restarts_total",
		Help: "Automatic restarts issued by the supervisor.",
	}, []string{"program"})

	CommandsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "taskmaster_commands_total",
		Help: "Control commands processed, by verb and outcome.",
	}, []string{"type", "outcome"})

	CommandSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "taskmaster_command_seconds",
		Help:    "Control command handling latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"type"})

	SessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "taskmaster_sessions_active",
		Help: "Client sessions currently being served.",
	})
)

func init() {
	prometheus.MustRegister(
		ProcessUp,
		ProcStates,
		SpawnsTotal,
		SpawnFailuresTotal,
		ExitsTotal,
		RestartsTotal,
		CommandsTotal,
		CommandSeconds,
		SessionsActive,
	)
}

// Serve starts the /metrics endpoint on addr and blocks until ctx is
// done. A zero addr disables the exporter.
func Serve(ctx context.Context, addr string) {
	if addr == "" {
		return
	}
	log := logger.Logging("metrics")

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Infow("metrics exporter listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Errorw("metrics exporter failed", "error", err)
	}
}

// ObserveCommand records one handled command and its outcome.
func ObserveCommand(verb, outcome string, start time.Time) {
	CommandsTotal.WithLabelValues(verb, outcome).Inc()
	CommandSeconds.WithLabelValues(verb).Observe(time.Since(start).Seconds())
}
