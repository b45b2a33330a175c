// Package server provides the HTTP server for the permission API.
//
// The server routes with gorilla/mux, logs access lines with
// gorilla/handlers and tags every request with an id.
//
// # Server Setup
//
//	srv := server.NewServer(resolver, healthStore, cfg, logger, "0.0.0.0", "8080").
//	    WithMetrics(m).
//	    WithJWT(middleware.NewJWTAuthenticator(secret, ttl)).
//	    WithRateLimiter(middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst))
//	endpoints.RegisterAll(srv)
//	if err := srv.Start(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Endpoints
//
//   - GET /organizations/{org}/catalog
//   - GET, PUT /organizations/{org}/matrix/{type}/{id}
//   - GET /organizations/{org}/matrix/{type}/{id}.html
//   - GET /organizations/{org}/users/{id}/effective
//   - GET /organizations/{org}/users/{id}/check?permission=KEY
//   - GET / and GET /metrics, without authentication
package server
