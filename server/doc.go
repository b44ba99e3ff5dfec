// Package server exposes collections over HTTP using Gin, with h2c so HTTP/2
// clients can stream without TLS.
//
// # Routes
//
//   - POST /:collection/stream: evaluate the expr form field and stream
//     {"result-set":{"docs":[...]}}, ending with the EOF marker tuple
//   - POST /:collection/update: index a JSON array of documents
//   - GET /health, /alive, /ready: health probes
//   - GET /metrics: Prometheus metrics
//
// Concurrent streams are bounded by a bulkhead; a request that cannot get a
// slot within the configured wait is answered with 503.
package server
