package startup

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"album-engine/internal/logging"
	"album-engine/internal/workers"

	"github.com/gorilla/mux"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Defaults for values that are not directories.
const (
	DefaultPageSize       = 80
	DefaultTrashRetention = 30 * 24 * time.Hour
)

// Config holds all application configuration
type Config struct {
	LibraryDir      string
	ImportDir       string
	TrashDir        string
	CacheDir        string
	DatabaseDir     string
	MountRoot       string
	MountDepth      int
	MetricsPort     string
	MetricsEnabled  bool
	PoolWorkers     int
	PoolIdleTimeout time.Duration
	PageSize        int
	TrashRetention  time.Duration

	// Derived paths
	DatabasePath string
	ThumbnailDir string

	// Feature flags based on directory availability
	ThumbnailsEnabled bool
	MountWatchEnabled bool
}

// LoadConfig loads and validates configuration from environment variables
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()
	return loadConfig()
}

// LoadConfigQuiet loads configuration without the banner, for one-shot CLI
// commands.
func LoadConfigQuiet() (*Config, error) {
	return loadConfig()
}

func loadConfig() (*Config, error) {
	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	libraryDir := getEnv("LIBRARY_DIR", "/library")
	importDir := getEnv("IMPORT_DIR", filepath.Join(libraryDir, "Import"))
	trashDir := getEnv("TRASH_DIR", "/trash")
	cacheDir := getEnv("CACHE_DIR", "/cache")
	databaseDir := getEnv("DATABASE_DIR", "/database")
	mountRoot := getEnv("MOUNT_ROOT", "/media")
	mountDepth := getEnvInt("MOUNT_DEPTH", 1)
	metricsPort := getEnv("METRICS_PORT", "9090")
	metricsEnabled := getEnvBool("METRICS_ENABLED", true)
	poolWorkers := getEnvInt(workers.OverrideEnv, 0)
	idleTimeout := getEnvDuration("POOL_IDLE_TIMEOUT", workers.DefaultIdleTimeout)
	pageSize := getEnvInt("PAGE_SIZE", DefaultPageSize)
	retention := getEnvDuration("TRASH_RETENTION", DefaultTrashRetention)

	if poolWorkers <= 0 {
		poolWorkers = workers.ForTasks()
	}
	if mountDepth < 1 {
		mountDepth = 1
	}
	if pageSize <= 0 {
		logging.Warn("  Invalid PAGE_SIZE, using default: %d", DefaultPageSize)
		pageSize = DefaultPageSize
	}

	logging.Info("  LIBRARY_DIR:         %s", libraryDir)
	logging.Info("  IMPORT_DIR:          %s", importDir)
	logging.Info("  TRASH_DIR:           %s", trashDir)
	logging.Info("  CACHE_DIR:           %s", cacheDir)
	logging.Info("  DATABASE_DIR:        %s", databaseDir)
	logging.Info("  MOUNT_ROOT:          %s", mountRoot)
	logging.Info("  MOUNT_DEPTH:         %d", mountDepth)
	logging.Info("  METRICS_PORT:        %s", metricsPort)
	logging.Info("  METRICS_ENABLED:     %v", metricsEnabled)
	logging.Info("  %s:  %d", workers.OverrideEnv, poolWorkers)
	logging.Info("  POOL_IDLE_TIMEOUT:   %v", idleTimeout)
	logging.Info("  PAGE_SIZE:           %d", pageSize)
	logging.Info("  TRASH_RETENTION:     %v", retention)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	dirs := []struct {
		name string
		path *string
	}{
		{"library", &libraryDir},
		{"import", &importDir},
		{"trash", &trashDir},
		{"cache", &cacheDir},
		{"database", &databaseDir},
		{"mount root", &mountRoot},
	}
	for _, d := range dirs {
		abs, err := filepath.Abs(*d.path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s directory path: %w", d.name, err)
		}
		*d.path = abs
		logging.Info("  %s directory (absolute): %s", strings.ToUpper(d.name[:1])+d.name[1:], abs)
	}

	config := &Config{
		LibraryDir:      libraryDir,
		ImportDir:       importDir,
		TrashDir:        trashDir,
		CacheDir:        cacheDir,
		DatabaseDir:     databaseDir,
		MountRoot:       mountRoot,
		MountDepth:      mountDepth,
		MetricsPort:     metricsPort,
		MetricsEnabled:  metricsEnabled,
		PoolWorkers:     poolWorkers,
		PoolIdleTimeout: idleTimeout,
		PageSize:        pageSize,
		TrashRetention:  retention,
		DatabasePath:    filepath.Join(databaseDir, "album.db"),
		ThumbnailDir:    filepath.Join(cacheDir, "thumbnails"),
	}

	// Library is where imports land; a problem here is reported but not fatal
	if err := ensureDirectory(libraryDir, "library"); err != nil {
		logging.Warn("  Library directory issue: %v", err)
	}
	if err := ensureDirectory(importDir, "import"); err != nil {
		logging.Warn("  Import directory issue: %v", err)
	}

	// Database and trash are required
	if err := ensureDirectory(databaseDir, "database"); err != nil {
		return nil, fmt.Errorf("database directory error: %w", err)
	}
	logging.Debug("  Testing database directory write access...")
	if err := testWriteAccess(databaseDir); err != nil {
		return nil, fmt.Errorf("database directory is not writable (required for database): %w", err)
	}
	logging.Info("  [OK] Database directory is writable")

	if err := ensureDirectory(trashDir, "trash"); err != nil {
		return nil, fmt.Errorf("trash directory error: %w", err)
	}
	if err := testWriteAccess(trashDir); err != nil {
		return nil, fmt.Errorf("trash directory is not writable: %w", err)
	}
	logging.Info("  [OK] Trash directory is writable")

	config.ThumbnailsEnabled = setupOptionalDir(config.ThumbnailDir, "thumbnails")

	if info, err := os.Stat(mountRoot); err == nil && info.IsDir() {
		config.MountWatchEnabled = true
	} else {
		logging.Warn("  Mount root %s is not a directory, device watching disabled", mountRoot)
	}

	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Database:       ENABLED (required)")
	logging.Info("    Thumbnails:     %s", enabledString(config.ThumbnailsEnabled))
	logging.Info("    Device watch:   %s", enabledString(config.MountWatchEnabled))
	logging.Info("    Metrics:        %s", enabledString(config.MetricsEnabled))

	return config, nil
}

func setupOptionalDir(path, name string) bool {
	logging.Debug("  Setting up %s directory: %s", name, path)

	if err := os.MkdirAll(path, 0o755); err != nil {
		logging.Warn("    Failed to create %s directory: %v", name, err)
		logging.Warn("    %s will be disabled", name)
		return false
	}

	if err := testWriteAccess(path); err != nil {
		logging.Warn("    %s directory is not writable: %v", name, err)
		logging.Warn("    %s will be disabled", name)
		return false
	}

	logging.Debug("    [OK] %s directory ready", name)
	return true
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

// LogDatabaseInit logs database initialization
func LogDatabaseInit(duration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DATABASE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  [OK] Database initialized in %v", duration)
}

// LogEngineInit logs the engine's pool configuration
func LogEngineInit(poolWorkers int, idle time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("ENGINE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Task pool:       %d workers (idle expiry %v)", poolWorkers, idle)
	logging.Info("  Dedicated worker: started on first request")
}

// LogThumbnailInit logs thumbnail generator initialization and checks FFmpeg
func LogThumbnailInit(enabled bool) {
	if !enabled {
		logging.Info("  Thumbnails disabled (cache directory not writable)")
		return
	}
	if err := checkFFmpeg(); err != nil {
		logging.Warn("  FFmpeg check failed: %v", err)
		logging.Warn("  Video thumbnails will not be generated")
	} else {
		logging.Info("  [OK] FFmpeg is available")
	}
}

// LogMountWatcherInit logs mount watcher startup
func LogMountWatcherInit(root string, enabled bool) {
	if enabled {
		logging.Info("  [OK] Watching %s for mounted devices", root)
	} else {
		logging.Info("  Device watching disabled")
	}
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   route.GetName(),
			})
		}
		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes when debug logging is on
func LogHTTPRoutes(router *mux.Router) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if !logging.IsDebugEnabled() {
		return
	}

	routes, err := GetRoutes(router)
	if err != nil {
		logging.Warn("error walking routes: %v", err)
	}

	logging.Debug("  Registered routes (%d total):", len(routes))

	groups := make(map[string][]RouteInfo)
	for _, route := range routes {
		prefix := getRouteGroup(route.Path)
		groups[prefix] = append(groups[prefix], route)
	}

	groupKeys := make([]string, 0, len(groups))
	for k := range groups {
		groupKeys = append(groupKeys, k)
	}
	sort.Strings(groupKeys)

	for _, group := range groupKeys {
		if group != "" {
			logging.Debug("  [%s]", group)
		} else {
			logging.Debug("  [root]")
		}
		for _, route := range groups[group] {
			logging.Debug("    %-6s %s", route.Method, route.Path)
		}
	}
}

// getRouteGroup extracts a group name from a route path
func getRouteGroup(path string) string {
	path = strings.TrimPrefix(path, "/")

	parts := strings.SplitN(path, "/", 2)
	first := parts[0]

	if first == "api" && len(parts) > 1 {
		subParts := strings.SplitN(parts[1], "/", 2)
		return "api/" + subParts[0]
	}

	return first
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("ENGINE STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	if config.MetricsEnabled {
		logging.Info("  Metrics:         http://0.0.0.0:%s/metrics", config.MetricsPort)
		logging.Info("  Stats:           http://0.0.0.0:%s/api/stats", config.MetricsPort)
	} else {
		logging.Info("  Metrics:         DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
    ___    ____                        __
   /   |  / / /_  __  ______ ___     / /
  / /| | / / __ \/ / / / __ '__ \   / /
 / ___ |/ / /_/ / /_/ / / / / / /  /_/
/_/  |_/_/_.___/\__,_/_/ /_/ /_/  (_)

------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

func checkFFmpeg() error {
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		return fmt.Errorf("ffmpeg not found in PATH")
	}
	logging.Debug("  FFmpeg path: %s", path)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, "ffmpeg", "-version").Output()
	if err != nil {
		return fmt.Errorf("failed to get ffmpeg version: %w", err)
	}

	if lines := strings.Split(string(output), "\n"); len(lines) > 0 {
		logging.Debug("  FFmpeg version: %s", strings.TrimSpace(lines[0]))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		logging.Warn("Invalid duration for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
