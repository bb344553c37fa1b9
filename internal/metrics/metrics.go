// Package metrics collects and exposes Prometheus metrics for forkexec.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kahiteam/forkexec/internal/process"
)

// Spawn result labels.
const (
	ResultOK      = "ok"
	ResultInvalid = "invalid"
	ResultExec    = "exec"
)

// Child exit kinds.
const (
	ExitSuccess  = "success"
	ExitFailure  = "failure"
	ExitSignaled = "signaled"
	ExitTimeout  = "timeout"
)

// Collector holds all forkexec Prometheus metrics.
type Collector struct {
	registry *prometheus.Registry

	SpawnTotal       *prometheus.CounterVec
	SpawnBarrier     prometheus.Histogram
	ChildExitTotal   *prometheus.CounterVec
	ChildLastExit    prometheus.Gauge
	ChildRunSeconds  prometheus.Histogram
	ChildOutputBytes *prometheus.CounterVec
	BuildInfo        *prometheus.GaugeVec
}

// New creates and registers all forkexec metrics.
func New() *Collector {
	reg := prometheus.NewRegistry()

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	c := &Collector{
		registry: reg,

		SpawnTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forkexec_spawn_total",
				Help: "Total number of spawn attempts by result.",
			},
			[]string{"result"},
		),

		SpawnBarrier: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "forkexec_spawn_barrier_seconds",
				Help:    "Time from the start of a spawn until the child exec'd or died.",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
		),

		ChildExitTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forkexec_child_exit_total",
				Help: "Total number of reaped children by kind of exit.",
			},
			[]string{"kind"},
		),

		ChildLastExit: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "forkexec_child_last_exit_code",
				Help: "Exit code of the most recently reaped child, 128+signal when killed.",
			},
		),

		ChildRunSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "forkexec_child_run_seconds",
				Help:    "Wall time from spawn until the child was reaped.",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
			},
		),

		ChildOutputBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forkexec_child_output_bytes_total",
				Help: "Bytes read from child output streams.",
			},
			[]string{"stream"},
		),

		BuildInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "forkexec_info",
				Help: "Build information about forkexec.",
			},
			[]string{"version", "go_version"},
		),
	}

	reg.MustRegister(
		c.SpawnTotal,
		c.SpawnBarrier,
		c.ChildExitTotal,
		c.ChildLastExit,
		c.ChildRunSeconds,
		c.ChildOutputBytes,
		c.BuildInfo,
	)

	return c
}

// Handler returns an http.Handler that serves the /metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// WriteTextfile writes the current metrics in the text exposition format,
// atomically replacing path. Intended for the node_exporter textfile
// collector.
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}

// Serve serves /metrics on addr until ctx is done.
func (c *Collector) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving metrics", "addr", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// SetBuildInfo sets the constant build info gauge.
func (c *Collector) SetBuildInfo(version, goVersion string) {
	c.BuildInfo.WithLabelValues(version, goVersion).Set(1)
}

// ObserveSpawn records one spawn attempt and how long it blocked.
func (c *Collector) ObserveSpawn(err error, d time.Duration) {
	c.SpawnTotal.WithLabelValues(SpawnResult(err)).Inc()
	c.SpawnBarrier.Observe(d.Seconds())
}

// ObserveExit records a reaped child.
func (c *Collector) ObserveExit(kind string, code int, d time.Duration) {
	c.ChildExitTotal.WithLabelValues(kind).Inc()
	c.ChildLastExit.Set(float64(code))
	c.ChildRunSeconds.Observe(d.Seconds())
}

// AddOutput counts n bytes read from a child stream.
func (c *Collector) AddOutput(stream string, n int) {
	c.ChildOutputBytes.WithLabelValues(stream).Add(float64(n))
}

// SpawnResult maps a spawn error to its result label.
func SpawnResult(err error) string {
	if err == nil {
		return ResultOK
	}
	var spawnErr *process.SpawnError
	if errors.As(err, &spawnErr) {
		return spawnErr.Op
	}
	var execErr *process.ExecError
	if errors.As(err, &execErr) {
		return ResultExec
	}
	return ResultInvalid
}
