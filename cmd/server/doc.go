// Package main is the entry point for the AdMonitor backend.
//
// The backend receives intercepted player requests from a browser shim,
// classifies them as ad lifecycle events and mutes or hides the player
// while an ad plays.
//
//	Browser shim → POST /intercept → classifier → reconciler → shim
//	             ← GET /bridge (WebSocket) commands ←
//
// Configuration:
//   - Optional YAML/TOML file named by ADMON_CONFIG_FILE
//   - Environment variables (override the file)
//   - CLI flags (override both)
//
// Usage:
//
//	# SQLite state, WebSocket bridge
//	./server -port 8000 -db /var/lib/admonitor/state.db
//
//	# Shim listening on HTTP, development logs
//	./server -bridge http -host-url http://127.0.0.1:8765 -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
