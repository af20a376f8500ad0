package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UnknownOlympus/meridian/internal/config"
	"github.com/UnknownOlympus/meridian/internal/gazetteer"
	"github.com/UnknownOlympus/meridian/internal/geocoder"
	"github.com/UnknownOlympus/meridian/internal/handler"
	"github.com/UnknownOlympus/meridian/internal/metrics"
	"github.com/UnknownOlympus/meridian/internal/middleware"
	"github.com/UnknownOlympus/meridian/internal/repository"
	"github.com/UnknownOlympus/meridian/internal/service"
	"github.com/UnknownOlympus/meridian/internal/version"
	"github.com/UnknownOlympus/meridian/internal/watcher"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

// Constants for different environment types.
const (
	envLocal = "local"
	envDev   = "development"
	envProd  = "production"
)

const shutdownTimeout = 10 * time.Second

// main is the entry point of the application.
func main() {
	// Create a context that will be canceled when an interrupt signal is received.
	// This allows for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load application configuration.
	cfg := config.MustLoad()

	// Set up the logger based on the environment.
	logger := setupLogger(cfg.Env, cfg.LogLevel)

	// Create a separate registry for metrics with exemplar
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewMetrics(reg)

	source, closeSource, err := newSource(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to initialize gazetteer source: %v", err)
	}
	defer closeSource()

	geoService := service.NewReverseGeocodingService(
		logger,
		source,
		appMetrics,
		cfg.RefreshInterval,
		geocoder.WithUnit(cfg.DistanceUnit),
	)

	// The process must not serve without a snapshot.
	if err = geoService.Boot(ctx); err != nil {
		logger.ErrorContext(ctx, "Failed to load gazetteer", "error", err)
		closeSource()
		os.Exit(1)
	}

	if cfg.Env != envLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	apiServer := &http.Server{
		Addr:              cfg.BindAddress,
		Handler:           newRouter(cfg, logger, appMetrics, geoService),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
	monitoringServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      newMonitoringMux(ctx, logger, reg, geoService),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	grp, gctx := errgroup.WithContext(ctx)

	grp.Go(func() error {
		geoService.Run(gctx)
		return nil
	})

	if cfg.Source == config.SourceFile && cfg.WatchForChanges {
		fileWatcher := watcher.New(cfg.DataFile, cfg.WatchDebounce, logger)
		grp.Go(func() error {
			if errWatch := fileWatcher.Run(gctx, geoService.Trigger); errWatch != nil {
				logger.ErrorContext(gctx, "Unable to watch gazetteer, reloading on change is disabled", "error", errWatch)
			}
			return nil
		})
	}

	grp.Go(func() error { return serve(gctx, logger, "api", apiServer) })
	grp.Go(func() error { return serve(gctx, logger, "monitoring", monitoringServer) })

	// Log that the application has started.
	logger.InfoContext(ctx, "Application started. Press Ctrl+C to stop.",
		"version", version.Version, "snapshot", geoService.Snapshot().String())

	if err = grp.Wait(); err != nil {
		logger.ErrorContext(ctx, "Application stopped with error", "error", err)
		return
	}

	// Log graceful shutdown completion.
	logger.InfoContext(ctx, "Application stopped gracefully.")
}

// newSource selects where snapshots are loaded from. The returned function releases the source.
func newSource(cfg *config.Config, logger *slog.Logger) (service.Source, func(), error) {
	switch cfg.Source {
	case config.SourcePostgres:
		dtb, err := repository.NewDatabase(
			cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Password, cfg.Database.Name,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to DB: %w", err)
		}
		return repository.NewRepository(dtb, logger), dtb.Close, nil
	default:
		return gazetteer.NewFileSource(cfg.DataFile, cfg.Delimiter, logger), func() {}, nil
	}
}

// newRouter builds the public query server.
func newRouter(
	cfg *config.Config,
	logger *slog.Logger,
	appMetrics *metrics.Metrics,
	searcher handler.Searcher,
) *gin.Engine {
	limiter := middleware.NewRateLimiter(cfg.Quota.Burst, cfg.Quota.Interval, appMetrics)

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.AccessLog(logger, appMetrics),
		middleware.Version(version.Version),
		middleware.CORS(cfg.CORSOrigins),
		limiter.Handler(),
	)
	handler.New(searcher, cfg.MaxResults, logger).Register(router)

	return router
}

// reloader is the part of the service the monitoring server needs.
type reloader interface {
	Ready() bool
	Trigger()
}

// newMonitoringMux serves health checks, metrics and manual reloads.
//
// Parameters:
// - ctx: A context.Context for logging.
// - log: A logger for logging server events and errors.
// - reg: A registry with Prometheus collectors.
// - svc: The service whose snapshot state is reported and reloaded.
func newMonitoringMux(ctx context.Context, log *slog.Logger, reg *prometheus.Registry, svc reloader) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(writer http.ResponseWriter, _ *http.Request) {
		log.DebugContext(ctx, "Performing health checks...")
		status, body := http.StatusOK, "OK"
		if !svc.Ready() {
			status, body = http.StatusServiceUnavailable, "No snapshot loaded"
		}
		writer.WriteHeader(status)
		if _, err := io.WriteString(writer, body); err != nil {
			log.ErrorContext(ctx, "failed to write reply", "error", err)
		}

		log.DebugContext(ctx, "Health checks completed", "status", status)
	})

	mux.HandleFunc("/reload", func(writer http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			writer.Header().Set("Allow", http.MethodPost)
			writer.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		svc.Trigger()
		log.InfoContext(ctx, "Manual reload requested", "remote", req.RemoteAddr)
		writer.WriteHeader(http.StatusAccepted)
	})

	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return mux
}

// serve runs srv until ctx is cancelled, then shuts it down gracefully.
func serve(ctx context.Context, log *slog.Logger, name string, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		log.InfoContext(ctx, "Starting server", "name", name, "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("%s server failed: %w", name, err)
		}
		return nil
	case <-ctx.Done():
	}

	log.InfoContext(ctx, "Shutting down server", "name", name)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("%s server shutdown: %w", name, err)
	}

	return nil
}

// setupLogger initializes and returns a logger based on the environment provided.
// A non-empty level overrides the environment's default level.
func setupLogger(env, level string) *slog.Logger {
	var log *slog.Logger
	lvl := new(slog.LevelVar)

	switch env {
	case envLocal:
		lvl.Set(slog.LevelDebug)
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level:     lvl,
				AddSource: true,
			}),
		)
	case envDev:
		lvl.Set(slog.LevelInfo)
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:     lvl,
				AddSource: false,
			}),
		)
	case envProd:
		lvl.Set(slog.LevelWarn)
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:     lvl,
				AddSource: false,
				ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
					if a.Key == slog.TimeKey {
						return slog.Attr{}
					}
					return a
				},
			}),
		)
	default:
		lvl.Set(slog.LevelError)
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:     lvl,
				AddSource: false,
				ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
					if a.Key == slog.TimeKey {
						return slog.Attr{}
					}
					return a
				},
			}),
		)

		log.Error(
			"The env parameter was not specified or was invalid. Logging will be minimal, by default.",
			slog.String("available_envs", "local, development, production"))
	}

	if level != "" {
		var override slog.Level
		if err := override.UnmarshalText([]byte(level)); err != nil {
			log.Error("Invalid log level, keeping the environment default", slog.String("level", level))
		} else {
			lvl.Set(override)
		}
	}

	return log
}
