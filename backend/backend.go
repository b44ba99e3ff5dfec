package backend

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/kbukum/tuplestream/errors"
	"github.com/kbukum/tuplestream/expr"
	"github.com/kbukum/tuplestream/httpclient"
	"github.com/kbukum/tuplestream/logger"
	"github.com/kbukum/tuplestream/observability"
	"github.com/kbukum/tuplestream/stream"
)

const (
	// HeaderRequestID carries the stream's request ID to the backend.
	HeaderRequestID = "X-Request-Id"
	// ParamExpr is the form field holding the expression text.
	ParamExpr = "expr"
)

// Backend opens streams on a remote search backend.
type Backend struct {
	client     *httpclient.Client
	streamPath string
	healthPath string
	log        *logger.Logger
}

var _ stream.Transport = (*Backend)(nil)

// New creates a Backend from cfg.
func New(cfg Config) (*Backend, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client, err := httpclient.New(cfg.clientConfig())
	if err != nil {
		return nil, err
	}
	return &Backend{
		client:     client,
		streamPath: strings.Trim(cfg.StreamPath, "/"),
		healthPath: cfg.HealthPath,
		log:        logger.Get("backend"),
	}, nil
}

// OpenStream posts e to the collection's stream handler and returns a reader
// over the response. The connection is bound to ctx.
func (b *Backend) OpenStream(ctx context.Context, collection string, e *expr.Expression) (stream.TupleReader, error) {
	if e == nil {
		return nil, errors.InvalidStream("backend: expression is required")
	}
	req := httpclient.Request{
		Method: http.MethodPost,
		Path:   "/" + url.PathEscape(collection) + "/" + b.streamPath,
		Body:   httpclient.Form(ParamExpr, e.String()),
	}
	if id := logger.RequestIDFromContext(ctx); id != "" {
		req.Headers = map[string]string{HeaderRequestID: id}
	}

	resp, err := b.client.DoStream(ctx, req)
	if err != nil {
		b.log.WithContext(ctx).Warn("stream open failed", logger.Fields(
			logger.FieldCollection, collection,
			logger.FieldError, err.Error(),
		))
		return nil, openFailure(err)
	}
	return NewDecoder(resp.Body), nil
}

// Ping checks that the backend answers its health endpoint.
func (b *Backend) Ping(ctx context.Context) error {
	_, err := b.client.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: b.healthPath})
	if err != nil {
		return errors.ConnectionFailed("stream backend").WithCause(err)
	}
	return nil
}

// CheckHealth pings the backend. An open circuit breaker reports the
// backend as degraded without sending a request.
func (b *Backend) CheckHealth(ctx context.Context) observability.Health {
	if !b.IsAvailable() {
		return observability.Health{Name: "backend", Status: observability.HealthStatusDegraded, Message: "circuit breaker open"}
	}
	return observability.PingCheck("backend", b.Ping).CheckHealth(ctx)
}

// IsAvailable reports whether the circuit breaker lets streams through.
func (b *Backend) IsAvailable() bool {
	return b.client.IsAvailable()
}

// Close releases idle connections.
func (b *Backend) Close() error {
	return b.client.Close()
}

// openFailure turns a failed open into a stream failure, using the backend's
// own error message when the response carries one.
func openFailure(err error) error {
	failure := errors.StreamFailure(err)
	httpErr, ok := httpclient.AsError(err)
	if !ok {
		return failure
	}
	failure = failure.WithDetail("status", httpErr.StatusCode)
	if msg := gjson.GetBytes(httpErr.Body, "error.msg"); msg.Exists() {
		failure.Message = msg.String()
	}
	return failure
}
