package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"album-engine/internal/database"
	"album-engine/internal/engine"
	"album-engine/internal/events"
	"album-engine/internal/filesystem"
	"album-engine/internal/handlers"
	"album-engine/internal/logging"
	"album-engine/internal/media"
	"album-engine/internal/metrics"
	"album-engine/internal/middleware"
	"album-engine/internal/mount"
	"album-engine/internal/startup"
)

const (
	purgeInterval     = time.Hour
	collectorInterval = 15 * time.Second
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the engine with the admin server and mount watcher",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	startTime := time.Now()

	config, err := startup.LoadConfig()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	metrics.InitializeMetrics()
	info := startup.GetBuildInfo()
	metrics.AppInfo.WithLabelValues(info.Version, info.Commit, info.GoVersion).Set(1)
	filesystem.SetObserver(metrics.NewFilesystemObserver())
	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(map[string]string{
		"library": config.LibraryDir,
		"trash":   config.TrashDir,
		"mount":   config.MountRoot,
		"cache":   config.CacheDir,
	}))

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	// Initialize database
	dbStart := time.Now()
	db, err := database.New(ctx, config.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()
	startup.LogDatabaseInit(time.Since(dbStart))

	// Thumbnails
	if err := media.InitVips(); err != nil {
		logging.Warn("libvips unavailable, falling back to pure Go decoding: %v", err)
	} else {
		defer media.ShutdownVips()
	}
	startup.LogThumbnailInit(config.ThumbnailsEnabled)
	thumbs := media.NewThumbnailGenerator(config.ThumbnailDir, 0, config.ThumbnailsEnabled)

	// Engine
	startup.LogEngineInit(config.PoolWorkers, config.PoolIdleTimeout)
	eng := engine.New(engineConfig(config), db, engine.WithThumbnails(thumbs))
	h := handlers.New(eng, db)

	collector := metrics.NewCollector(eng, collectorInterval)
	collector.Start()

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		runEventLoop(eng, h)
	}()

	// Mount watcher
	startup.LogMountWatcherInit(config.MountRoot, config.MountWatchEnabled)
	var watcher *mount.Watcher
	if config.MountWatchEnabled {
		watcher, err = mount.New(config.MountRoot, config.MountDepth, eng)
		if err == nil {
			err = watcher.Start(ctx)
		}
		if err != nil {
			logging.Error("Failed to start mount watcher: %v", err)
			watcher = nil
		}
	}

	eng.LoadFirstPage(config.PageSize, false)
	go purgeLoop(ctx, eng, config.TrashRetention)

	var srv *http.Server
	if config.MetricsEnabled {
		router := setupRouter(h)
		startup.LogHTTPRoutes(router)
		srv = &http.Server{
			Addr:         ":" + config.MetricsPort,
			Handler:      middleware.Logger(middleware.DefaultLoggingConfig())(router),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("Admin server error: %v", err)
				cancel()
			}
		}()
	}

	startup.LogServerStarted(startup.ServerConfig{
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})

	sig := waitForSignal(ctx)
	handleShutdown(sig, cancel, srv, watcher, collector, eng, loopDone)
	return nil
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))

	r.Handle("/metrics", h.MetricsHandler()).Methods("GET")

	// Health check and version routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/stats", h.GetStats).Methods("GET")
	api.HandleFunc("/page", h.GetFirstPage).Methods("GET")
	api.HandleFunc("/page", h.LoadFirstPage).Methods("POST")
	api.HandleFunc("/record", h.GetRecord).Methods("GET")
	api.HandleFunc("/import", h.Import).Methods("POST")
	api.HandleFunc("/trash", h.Trash).Methods("POST")
	api.HandleFunc("/recover", h.Recover).Methods("POST")
	api.HandleFunc("/cleanup", h.CleanupTrash).Methods("POST")
	api.HandleFunc("/remove", h.RemoveImages).Methods("POST")
	api.HandleFunc("/reload", h.Reload).Methods("POST")
	api.HandleFunc("/rotate", h.Rotate).Methods("POST")
	api.HandleFunc("/stop", h.Stop).Methods("POST")

	return r
}

// runEventLoop consumes engine events until Shutdown closes the stream.
func runEventLoop(eng *engine.Engine, h *handlers.Handlers) {
	log := logging.For("events")
	for ev := range eng.Events() {
		switch e := ev.(type) {
		case events.FirstPageReady:
			if e.Err != nil {
				log.Warn("first page not loaded: %v", e.Err)
				continue
			}
			log.Info("first page ready with %d items", len(e.Records))
			h.MarkReady()
		case events.ImportCompleted:
			eng.Deliver(e)
		case events.MountListReady:
			if e.Err != nil {
				log.Warn("listing %s failed: %v", e.Mount, e.Err)
				continue
			}
			log.Info("device %s has %d media files", e.Mount, len(e.Paths))
		case events.DeviceUnmounted:
			log.Info("device %s removed", e.Mount)
		case events.TrashCompleted:
			log.Info("trash: %d paths, %d failures", len(e.Paths), len(e.Failures))
		case events.TrashCleaned:
			if len(e.Paths) > 0 || len(e.Failures) > 0 {
				log.Info("trash purge: %d paths, %d failures", len(e.Paths), len(e.Failures))
			}
		case events.ReloadCompleted:
			if e.Err != nil {
				log.Warn("reload failed: %v", e.Err)
				continue
			}
			log.Info("reload: %d valid, %d missing", e.Valid, len(e.Missing))
		default:
			log.Debug("event %T", ev)
		}
	}
}

func purgeLoop(ctx context.Context, eng *engine.Engine, retention time.Duration) {
	eng.PurgeExpiredTrash(retention)
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			eng.PurgeExpiredTrash(retention)
		}
	}
}

// waitForSignal blocks until SIGINT, SIGTERM or ctx is done.
func waitForSignal(ctx context.Context) string {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		return sig.String()
	case <-ctx.Done():
		return "context cancellation"
	}
}

func handleShutdown(sig string, cancel context.CancelFunc, srv *http.Server, watcher *mount.Watcher,
	collector *metrics.Collector, eng *engine.Engine, loopDone <-chan struct{}) {
	startup.LogShutdownInitiated(sig)

	ctx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()

	if srv != nil {
		startup.LogShutdownStep("Shutting down admin server")
		if err := srv.Shutdown(ctx); err != nil {
			logging.Warn("Server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Admin server stopped")
		}
	}

	startup.LogShutdownStep("Stopping mount watcher")
	cancel()
	if watcher != nil {
		watcher.Wait()
	}
	startup.LogShutdownStepComplete("Mount watcher stopped")

	startup.LogShutdownStep("Stopping metrics collector")
	collector.Stop()
	startup.LogShutdownStepComplete("Metrics collector stopped")

	startup.LogShutdownStep("Shutting down engine")
	if err := eng.Shutdown(ctx); err != nil {
		logging.Warn("Engine shutdown error: %v", err)
	} else {
		<-loopDone
		startup.LogShutdownStepComplete("Engine stopped")
	}

	startup.LogShutdownComplete()
}
