// Package common provides shared utilities for MCP tool implementations:
// the instrumentation wrapper every tool is registered through and access to
// the audit record of the running call.
package common
