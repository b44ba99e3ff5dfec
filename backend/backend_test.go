package backend

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kbukum/tuplestream/errors"
	"github.com/kbukum/tuplestream/expr"
	"github.com/kbukum/tuplestream/logger"
	"github.com/kbukum/tuplestream/observability"
	"github.com/kbukum/tuplestream/query"
	"github.com/kbukum/tuplestream/resilience"
	"github.com/kbukum/tuplestream/stream"
	"github.com/kbukum/tuplestream/tuple"
)

var tupleEqual = cmp.Comparer(func(a, b tuple.Tuple) bool { return a.Equal(b) })

func newBackend(t *testing.T, h http.HandlerFunc) *Backend {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	b, err := New(Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func respond(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}
}

func search() stream.Builder {
	return stream.NewSearch(query.Query{
		Collection: "bulk",
		Fields:     []string{"k", "v"},
		Sort:       tuple.Sort{tuple.Ascending("k")},
	})
}

func readAll(t *testing.T, r stream.TupleReader) ([]tuple.Tuple, error) {
	t.Helper()
	var out []tuple.Tuple
	for {
		tup, err := r.Read(context.Background())
		if err != nil {
			return out, err
		}
		out = append(out, tup)
	}
}

func TestOpenStream_Request(t *testing.T) {
	e := expr.New("search", expr.Value("bulk"), expr.Pair("q", "*:*"))
	b := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/bulk/stream" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if got := r.FormValue(ParamExpr); got != e.String() {
			t.Errorf("expr = %q, want %q", got, e.String())
		}
		if got := r.Header.Get(HeaderRequestID); got != "req-1" {
			t.Errorf("%s = %q", HeaderRequestID, got)
		}
		respond(`{"result-set":{"docs":[{"EOF":true}]}}`)(w, r)
	})

	ctx := logger.ContextWithRequestID(context.Background(), "req-1")
	r, err := b.OpenStream(ctx, "bulk", e)
	if err != nil {
		t.Fatalf("OpenStream: %v", err)
	}
	defer r.Close()
	got, err := readAll(t, r)
	if err != io.EOF {
		t.Fatalf("after last doc: %v, want io.EOF", err)
	}
	if len(got) != 1 || !got[0].IsEOF() {
		t.Errorf("docs = %#v", got)
	}
}

func TestOpenStream_NilExpression(t *testing.T) {
	b := newBackend(t, respond(""))
	if _, err := b.OpenStream(context.Background(), "bulk", nil); !errors.IsInvalidStream(err) {
		t.Fatalf("err = %v, want INVALID_STREAM", err)
	}
}

func TestDecoder(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    []tuple.Tuple
		wantEOF bool
	}{
		{
			name: "docs then EOF marker",
			body: `{"result-set":{"docs":[{"k":"a","v":1},{"k":"b","v":2.5,"tags":["x",3]},{"EOF":true,"RESPONSE_TIME":4}]}}`,
			want: []tuple.Tuple{
				tuple.New(tuple.F("k", "a"), tuple.F("v", 1)),
				tuple.New(tuple.F("k", "b"), tuple.F("v", 2.5), tuple.F("tags", []string{"x", "3"})),
				tuple.EOFWithTime(4),
			},
			wantEOF: true,
		},
		{
			name:    "sibling keys are skipped",
			body:    `{"responseHeader":{"status":0,"QTime":[1,2]},"result-set":{"numFound":3,"docs":[{"EOF":true}]}}`,
			want:    []tuple.Tuple{tuple.EOF()},
			wantEOF: true,
		},
		{
			name:    "error tuple passed through",
			body:    `{"result-set":{"docs":[{"k":"a"},{"EXCEPTION":"sort mismatch","EOF":true}]}}`,
			want:    []tuple.Tuple{tuple.New(tuple.F("k", "a")), tuple.Exception("sort mismatch")},
			wantEOF: true,
		},
		{
			name:    "truncated mid document",
			body:    `{"result-set":{"docs":[{"k":"a"},{"k":`,
			want:    []tuple.Tuple{tuple.New(tuple.F("k", "a"))},
			wantEOF: true,
		},
		{
			name:    "empty body",
			body:    ``,
			wantEOF: true,
		},
		{
			name: "not a result set",
			body: `{"docs":[]}`,
		},
		{
			name: "malformed document",
			body: `{"result-set":{"docs":[{"k":"a"},[1]]}}`,
			want: []tuple.Tuple{tuple.New(tuple.F("k", "a"))},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDecoder(io.NopCloser(strings.NewReader(tt.body)))
			defer d.Close()
			got, err := readAll(t, d)
			if diff := cmp.Diff(tt.want, got, tupleEqual); diff != "" {
				t.Errorf("tuples mismatch (-want +got):\n%s", diff)
			}
			if tt.wantEOF {
				if err != io.EOF {
					t.Fatalf("err = %v, want io.EOF", err)
				}
				return
			}
			if !errors.IsStreamFailure(err) {
				t.Fatalf("err = %v, want STREAM_FAILURE", err)
			}
		})
	}
}

func TestDecoder_CancelledContext(t *testing.T) {
	d := NewDecoder(io.NopCloser(strings.NewReader(`{"result-set":{"docs":[{"EOF":true}]}}`)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := d.Read(ctx); !errors.IsStreamFailure(err) {
		t.Fatalf("err = %v, want STREAM_FAILURE", err)
	}
}

func TestOpenStream_HTTPErrorUsesBackendMessage(t *testing.T) {
	b := newBackend(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"code":"INVALID_STREAM","msg":"unknown function: serch"}}`)
	})

	_, err := b.OpenStream(context.Background(), "bulk", expr.New("serch"))
	if !errors.IsStreamFailure(err) {
		t.Fatalf("err = %v, want STREAM_FAILURE", err)
	}
	appErr, _ := errors.AsAppError(err)
	if appErr.Message != "unknown function: serch" {
		t.Errorf("Message = %q", appErr.Message)
	}
	if appErr.Details["status"] != http.StatusBadRequest {
		t.Errorf("Details = %v", appErr.Details)
	}
}

func TestOpenStream_ConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	b, err := New(Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.OpenStream(context.Background(), "bulk", expr.New("search")); !errors.IsStreamFailure(err) {
		t.Fatalf("err = %v, want STREAM_FAILURE", err)
	}
}

func TestStreamer_OverBackend(t *testing.T) {
	var gotExpr string
	b := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		gotExpr = r.FormValue(ParamExpr)
		respond(`{"result-set":{"docs":[{"k":"a","v":1},{"k":"b","v":2},{"EOF":true}]}}`)(w, r)
	})

	s, err := stream.Of(b, search(), stream.WithLogger(logger.Nop()))
	if err != nil {
		t.Fatal(err)
	}
	got, err := s.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	want := []tuple.Tuple{
		tuple.New(tuple.F("k", "a"), tuple.F("v", 1)),
		tuple.New(tuple.F("k", "b"), tuple.F("v", 2)),
	}
	if diff := cmp.Diff(want, got, tupleEqual); diff != "" {
		t.Errorf("tuples mismatch (-want +got):\n%s", diff)
	}
	if gotExpr != `search(bulk, q="*:*", fl="k,v", sort="k asc")` {
		t.Errorf("expr = %s", gotExpr)
	}
}

func TestStreamer_OverBackend_Failures(t *testing.T) {
	tests := []struct {
		name string
		body string
		msg  string
	}{
		{"error tuple", `{"result-set":{"docs":[{"k":"a","v":1},{"EXCEPTION":"boom","EOF":true}]}}`, "boom"},
		{"missing EOF marker", `{"result-set":{"docs":[{"k":"a","v":1}]}}`, "without EOF marker"},
		{"truncated", `{"result-set":{"docs":[{"k":"a","v":1},{"k"`, "without EOF marker"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBackend(t, respond(tt.body))
			s, err := stream.Of(b, search(), stream.WithLogger(logger.Nop()))
			if err != nil {
				t.Fatal(err)
			}
			_, err = s.Collect(context.Background())
			if !errors.IsStreamFailure(err) || !strings.Contains(err.Error(), tt.msg) {
				t.Fatalf("err = %v, want STREAM_FAILURE containing %q", err, tt.msg)
			}
		})
	}
}

func TestPing(t *testing.T) {
	b := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
		}
	})
	if err := b.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	down := newBackend(t, func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNotFound) })
	if err := down.Ping(context.Background()); !errors.HasCode(err, errors.ErrCodeConnectionFailed) {
		t.Fatalf("Ping = %v, want CONNECTION_FAILED", err)
	}
}

func TestCheckHealth(t *testing.T) {
	b := newBackend(t, func(http.ResponseWriter, *http.Request) {})
	if h := b.CheckHealth(context.Background()); h.Status != observability.HealthStatusUp || h.Name != "backend" {
		t.Fatalf("CheckHealth = %+v, want backend up", h)
	}

	down := newBackend(t, func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNotFound) })
	if h := down.CheckHealth(context.Background()); h.Status != observability.HealthStatusDown || h.Message == "" {
		t.Fatalf("CheckHealth = %+v, want down with a message", h)
	}
}

func TestConfig(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("missing base_url accepted")
	}
	cfg := Config{BaseURL: "http://solr:8983/solr", CircuitBreaker: &resilience.CircuitBreakerConfig{MaxFailures: 1}}
	cfg.ApplyDefaults()
	if cfg.StreamPath != "stream" || cfg.HealthPath != "/health" || cfg.Timeout != defaultTimeout {
		t.Errorf("defaults = %+v", cfg)
	}
	b, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !b.IsAvailable() {
		t.Error("fresh backend unavailable")
	}
}
