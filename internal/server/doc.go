// Package server assembles the AdMonitor backend.
//
// NewServer builds every component from a config.Config:
//   - structured logger and a private Prometheus registry
//   - state store over SQLite or memory, loaded in the background
//   - host bridge, either the WebSocket endpoint a browser shim dials
//     (GET /bridge) or an HTTP client to a shim listening locally
//   - action gateway, reconciler, classifier, ingestor and dispatcher
//   - Gin router with recovery, request logging, metrics, CORS and
//     per-IP rate limiting
//
// Until the state load completes, handlers report not ready and perform
// no actions.
//
// Example:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	srv, err := server.NewServer(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	go srv.Run()
//	defer srv.Shutdown(context.Background())
package server
