// Package resources provides MCP resources describing the router.
// Resources are read-only data sources that MCP clients can fetch:
//
//   - router://config: providers, backend, fallback mode and retry settings
//   - router://vocabulary: the keyword tables of the rule-based classifier
package resources
