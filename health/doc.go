// Package health reports whether the navigation service can serve.
//
// A Checker reports one component as healthy, degraded, or unhealthy. The
// Aggregator runs every registered checker under a shared deadline and
// folds the results into one status, which the HTTP handlers expose as
// /healthz (liveness), /readyz (readiness), and /health (detail).
//
// CapacityChecker turns cache fill levels into a status: degraded from 80%
// of either the entry or the size bound, unhealthy from 95%.
package health
