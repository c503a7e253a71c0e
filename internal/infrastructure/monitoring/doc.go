/*
Package monitoring provides metrics collection for the ad monitor.

# Overview

This package implements Prometheus-based metrics collection, tracking HTTP
requests, intercepted payloads, classification results, reconciler
transitions and the side-effect actions taken against tabs.

# Features

- HTTP request metrics (latency, status)
- Ingest metrics (accepted, filtered, tags by kind)
- Reconciler transitions (ad_started, ad_completed, timeout_recovery, corrupt_recovery)
- Action outcomes and latency (mute, unmute, hide, show, debug)
- Browser bridge connection state and message counts

# Usage

	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)

	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	timer := monitoring.NewTimer(metrics, "mute")
	// ... perform action ...
	timer.Stop(ok)
*/
package monitoring
