// Package http provides HTTP handlers and routing for the ad monitor API.
//
// Endpoints:
//   - POST /intercept: an intercepted request record from the extension
//   - POST /message: a task-tagged protocol message
//   - GET /tabs/:id/state: the stored state of one tab
//   - GET /health: readiness, bridge connection and counters
//
// Example Usage:
//
//	handlers := http.NewHandlers(ingestor, dispatcher, rec, bridge, metrics, logger)
//	handlers.Register(router)
package http
