// Package routing_tools provides the MCP tools of the agendarouter server.
//
// # Available Tools
//
//   - classify_intent: Route a natural-language request to the task or
//     calendar provider. Arguments: query (required), context,
//     user_timezone, current_date, current_time. Missing context fields
//     default to the current time in UTC.
//   - list_providers: List the routable providers and the classifier backend.
//
// Results are JSON text. Invalid input and classification failures are
// returned as tool error results, never as protocol errors.
package routing_tools
