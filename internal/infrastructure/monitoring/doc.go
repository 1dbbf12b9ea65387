/*
Package monitoring provides Prometheus metrics for the observer.

# Overview

Every Metrics value owns a private registry, so tests can build as many as
they like. It tracks HTTP traffic, reconciliation ticks and their writes,
retention sweeps, hidden-process purges and provider calls.

# Usage

	metrics := monitoring.NewMetrics()

	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	metrics.RecordTick(monitoring.TickOK, time.Since(start))
	metrics.RecordChanges(1, 3, 2)

	timer := monitoring.NewTimer(metrics, "provider", "enumerate")
	entries, err := provider.Enumerate(ctx)
	timer.StopErr(err)
*/
package monitoring
