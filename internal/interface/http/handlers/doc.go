// Package handlers contains the health probes and middleware used by the
// gradebook API server.
//
// # Health Checks
//
// Probes run in parallel with a per-probe timeout:
//
//	checker := handlers.NewCompositeHealthChecker("v1.0.0")
//	checker.AddCheck("database", handlers.NewPingCheck(pool))
//	checker.AddOptionalCheck("standings_cache", handlers.NewPingCheck(cache))
//
//	status := checker.Check(ctx)
//
// A failed optional probe marks the service unhealthy but still ready: the
// standings are recomputed when the cache is down.
//
// # Middleware
//
//	auth := handlers.NewAPIKeyAuth("X-API-Key", cfg.HTTP.APIKeyHash, deny)
//	r.With(auth.Middleware).Post("/api/v1/grades", ...)
//
//	limiter := handlers.NewIPRateLimiter(120)
//	r.Use(limiter.Middleware(clientIP, deny))
//
// The API key is never stored in plain text; the configuration carries its
// bcrypt hash. An empty hash disables the guard.
package handlers
