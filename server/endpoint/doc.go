// Package endpoint holds the Gin handlers of the stream server: the stream and
// update routes of a collection, health probes and Prometheus metrics.
package endpoint
