// Package httpclient is the HTTP layer used to talk to stream backends.
//
// Do sends a request and reads the whole response, with optional retry.
// DoStream returns the body unread for incremental decoding and is never
// retried. Both go through the optional rate limiter and circuit breaker,
// and both classify failures as *Error (timeout, connection, auth, not
// found, rate limit, validation, server):
//
//	c, err := httpclient.New(httpclient.Config{
//		BaseURL:        "http://solr:8983/solr",
//		CircuitBreaker: httpclient.DefaultCircuitBreakerConfig("solr"),
//	})
//	resp, err := c.DoStream(ctx, httpclient.Request{
//		Method: http.MethodPost,
//		Path:   "/bulk/stream",
//		Body:   httpclient.Form("expr", e.String()),
//	})
//	defer resp.Close()
package httpclient
