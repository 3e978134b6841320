// Package server provides the shared server context and the HTTP surfaces of
// the agendarouter application.
//
// # Key Components
//
// ServerContext owns the intent router together with the optional metrics
// recorder and audit logger. Both the MCP tools and the REST endpoint route
// queries through ServerContext.Classify, so context defaults are resolved
// in one place.
//
// HTTPServer serves, on one port:
//   - /mcp: MCP streamable HTTP transport
//   - /v1/classify: REST classification (POST only)
//   - /healthz, /readyz, /healthz/detailed: Kubernetes health checks
//
// MetricsServer serves Prometheus metrics on a dedicated port, separate from
// application traffic.
//
// # REST Errors
//
// Failed requests carry an ErrorResponse body. Invalid input and malformed
// JSON map to 400 with kind "invalid_input"; queries that could not be
// classified map to 502 with kind "classification_error".
package server
