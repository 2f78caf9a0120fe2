// Package middleware provides HTTP middleware for the album engine's admin
// server.
//
// It includes:
//   - Request logging in W3C Extended Log Format
//   - Prometheus request metrics labeled by route template
//   - Filtering of health checks and scrapes from both
package middleware
