// Command studycore runs the study metadata service with durable storage,
// prometheus metrics and the asynchronous snapshot archiver.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"studycore/internal/adapters/archive"
	"studycore/internal/blob"
	"studycore/internal/core"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	addr := os.Getenv("STUDYCORE_LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	store, err := core.OpenGraphStore(core.NewDefaultRulesEngine())
	if err != nil {
		logger.Error("open store", "error", err)
		os.Exit(1)
	}

	blobStore, err := blob.Open(context.Background())
	if err != nil {
		logger.Error("open blob store", "error", err)
		os.Exit(1)
	}
	worker := archive.NewWorker(blobStore, nil)
	worker.Start()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	metrics, err := core.NewPrometheusMetricsRecorder(registry)
	if err != nil {
		logger.Error("register metrics", "error", err)
		os.Exit(1)
	}

	svc := core.NewService(store,
		core.WithLogger(slogAdapter{logger}),
		core.WithMetricsRecorder(metrics),
		core.WithTracer(core.NewJSONTracer(os.Stderr)),
		core.WithArchiver(worker),
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.Handle("/debug/vars", expvar.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /studies", func(w http.ResponseWriter, r *http.Request) {
		studies, err := svc.ListStudies(r.Context(), core.ProjectFilter{ProjectNumber: r.URL.Query().Get("project_number")})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(studies)
	})
	mux.HandleFunc("GET /studies/{uid}/audit", func(w http.ResponseWriter, r *http.Request) {
		snapshot, err := svc.SnapshotStudy(r.Context(), r.PathValue("uid"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(snapshot)
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("serve", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown", "error", err)
	}
	if err := worker.Stop(ctx); err != nil {
		logger.Error("archiver stop", "error", err)
	}
}

// slogAdapter bridges the service logger interface to log/slog.
type slogAdapter struct {
	l *slog.Logger
}

func (a slogAdapter) Debug(msg string, keyvals ...any) { a.l.Debug(msg, keyvals...) }
func (a slogAdapter) Info(msg string, keyvals ...any)  { a.l.Info(msg, keyvals...) }
func (a slogAdapter) Warn(msg string, keyvals ...any)  { a.l.Warn(msg, keyvals...) }
func (a slogAdapter) Error(msg string, keyvals ...any) { a.l.Error(msg, keyvals...) }
