// Package server provides the HTTP surface of the analysis service: a Gin
// engine wrapped in an h2c-capable http.Server, the standard middleware stack
// (recovery, request IDs, CORS, request logging), and the route handlers for
// analysis and circuit-breaker administration.
//
// Usage:
//
//	srv := server.New(cfg, log)
//	srv.ApplyMiddleware()
//	api := server.NewAPI(handler, gh, sc, log)
//	api.Register(srv.GinEngine(), cfg.AdminToken)
//	srv.Start(ctx)
package server
