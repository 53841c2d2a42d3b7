// Package pkg holds the components of the Model Context Protocol runtime.
//
// The runtime decides what happens when a protocol request arrives: which
// capability it names, whether that capability exists, how its handler runs
// and how the outcome or failure is reported back. Transports sit outside
// and feed raw messages into the server package.
//
// # Sub-packages
//
//   - protocol: Wire types, method names and error codes
//   - errors: Typed error taxonomy mapped onto JSON-RPC error objects
//   - logging: Structured logging used by every component
//   - pagination: Opaque cursor encoding for list operations
//   - invoker: Handler execution with binding, recovery and encoding
//   - registry: Capability tables with exact and template lookup
//   - subscription: Subscription index and notification dispatch
//   - router: Per-method request dispatch and capability gating
//   - server: Composition of all components into one runtime
//   - observability: Prometheus metrics and OpenTelemetry tracing
//   - utils: Schema generation and test helpers
package pkg
