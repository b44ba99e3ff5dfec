// Package backend is the remote stream Transport. It posts rendered
// expressions to a search backend's /stream handler and decodes the
// streamed result-set response one tuple at a time:
//
//	{"result-set":{"docs":[{"k":"a","v":1},{"EOF":true,"RESPONSE_TIME":3}]}}
//
// Opening a stream goes through the httpclient rate limiter and circuit
// breaker but is never retried.
package backend
