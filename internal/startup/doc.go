// Package startup handles configuration loading and startup/shutdown logging
// for the album engine.
//
// # Configuration
//
// All configuration is loaded from environment variables via [LoadConfig]
// (or [LoadConfigQuiet] for one-shot commands, which skips the banner):
//
//   - LIBRARY_DIR: Root of the photo library (default: /library)
//   - IMPORT_DIR: Destination for mount imports (default: $LIBRARY_DIR/Import)
//   - TRASH_DIR: Trash directory, must be writable (default: /trash)
//   - CACHE_DIR: Thumbnail cache root (default: /cache)
//   - DATABASE_DIR: Directory holding album.db, must be writable (default: /database)
//   - MOUNT_ROOT: Directory watched for mounted devices (default: /media)
//   - MOUNT_DEPTH: Levels below MOUNT_ROOT where devices appear (default: 1)
//   - ALBUM_POOL_WORKERS: Task pool bound (default: derived from CPUs, capped at 12)
//   - POOL_IDLE_TIMEOUT: Idle worker expiry as Go duration (default: 10s)
//   - PAGE_SIZE: First page size (default: 80)
//   - TRASH_RETENTION: Age after which trash is purged (default: 720h)
//   - METRICS_PORT: Status/metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable the status/metrics server (default: true)
//   - LOG_LEVEL: debug, info, warn, error (default: info)
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
package startup
