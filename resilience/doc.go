// Package resilience guards calls to the stream backend and admission to the
// stream server.
//
//   - CircuitBreaker fails fast while the backend keeps failing.
//   - RateLimiter paces outbound requests with a token bucket.
//   - Retry re-runs idempotent calls with exponential backoff. Streams are
//     never retried: a stream failure is surfaced to the consumer as is.
//   - Bulkhead caps the number of streams served concurrently.
//
// Every config carries yaml and mapstructure tags so it can be loaded with the
// rest of the service configuration.
package resilience
