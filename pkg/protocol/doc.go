// Package protocol defines the wire-level types for the MCP server runtime:
// the JSON-RPC 2.0 envelope, the fixed method set, and the request, result
// and notification payloads exchanged with clients.
package protocol
