/*
Albumd runs the album engine, either as a long-lived service or for a single
operation from the command line.

# Usage

	albumd serve
	albumd import [--album NAME] PATH...
	albumd import-mount [--album NAME] [--uid N] MOUNT
	albumd trash [--permanent] PATH...
	albumd recover PATH...
	albumd purge [PATH...]
	albumd remove PATH...
	albumd reload
	albumd page [--count N]
	albumd rotate --degrees N PATH
	albumd list-mount MOUNT
	albumd version

Every command reads its directories from the environment; see package
startup for the full list. One-shot commands wait for the operation to
finish and print its outcome. A spinner is shown on stderr while the engine
asks for a progress indicator, unless stderr is not a terminal.

# Serve

serve loads the first page, watches MOUNT_ROOT for devices, purges expired
trash every hour and exposes an admin HTTP server on METRICS_PORT:

  - /metrics: Prometheus metrics
  - /health, /healthz, /livez, /readyz: probes
  - /version: build information
  - /api/stats: engine occupancy and library totals
  - /api/page, /api/record: cached reads
  - /api/import, /api/trash, /api/recover, /api/cleanup, /api/remove,
    /api/reload, /api/rotate, /api/stop: engine operations

SIGINT or SIGTERM shuts the engine down gracefully.
*/
package main
