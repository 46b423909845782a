// Package server runs an http.Handler with graceful shutdown.
//
// Run binds the application listener and, when configured, a second
// listener for operational endpoints:
//
//	/metrics  Prometheus exposition (MetricsHandler)
//	/healthz  liveness, always 200
//	/readyz   readiness, 200 while serving and 503 while shutting down
//
// Listeners and background tasks run in one errgroup: the first failure or
// the cancellation of the Run context shuts everything down, waiting at
// most ShutdownTimeout for in-flight requests. Readiness and shutdown are
// reported to systemd through sd_notify when NOTIFY_SOCKET is set.
package server
