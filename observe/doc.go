// Package observe provides the observability primitives shared by the
// navigation and cache packages: a structured JSON logger, OpenTelemetry
// tracing and metrics, and a middleware that instruments navigation
// resolution.
//
// Nothing here performs I/O beyond exporter setup. Library packages accept a
// Logger and Metrics through options and default to no-op implementations.
package observe
