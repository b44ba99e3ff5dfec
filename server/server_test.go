package server_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/kbukum/tuplestream/backend"
	"github.com/kbukum/tuplestream/engine"
	"github.com/kbukum/tuplestream/errors"
	"github.com/kbukum/tuplestream/expr"
	"github.com/kbukum/tuplestream/logger"
	"github.com/kbukum/tuplestream/query"
	"github.com/kbukum/tuplestream/resilience"
	"github.com/kbukum/tuplestream/server"
	"github.com/kbukum/tuplestream/store"
	"github.com/kbukum/tuplestream/stream"
	"github.com/kbukum/tuplestream/tuple"
)

var tupleEqual = cmp.Comparer(func(a, b tuple.Tuple) bool { return a.Equal(b) })

type fixture struct {
	srv   *server.Server
	ts    *httptest.Server
	store *store.Store
}

func newFixture(t *testing.T, cfg server.Config) *fixture {
	t.Helper()
	srv := server.New(cfg, logger.Nop())
	st, err := store.Open(context.Background(),
		store.Config{Path: filepath.Join(t.TempDir(), "server.db")},
		store.WithRegisterer(srv.Registry()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	eng := engine.New(st, engine.WithLogger(logger.Nop()))
	srv.ApplyDefaults("tuplestream", "test", eng, st, st)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &fixture{srv: srv, ts: ts, store: st}
}

func (f *fixture) update(t *testing.T, collection, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(f.ts.URL+"/"+collection+"/update", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (f *fixture) stream(t *testing.T, collection, src string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.PostForm(f.ts.URL+"/"+collection+"/stream", url.Values{"expr": {src}})
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func (f *fixture) backend(t *testing.T) *backend.Backend {
	t.Helper()
	b, err := backend.New(backend.Config{BaseURL: f.ts.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func kv(k string, v int64) tuple.Tuple {
	return tuple.New(tuple.F("k", k), tuple.F("v", v))
}

func search(collection string, fields ...string) *stream.Search {
	return stream.NewSearch(query.Query{Collection: collection, Fields: fields, Sort: tuple.Sort{tuple.Ascending("k")}})
}

func TestUpdateThenStreamThroughBackend(t *testing.T) {
	f := newFixture(t, server.Config{})
	require.Equal(t, http.StatusOK, f.update(t, "a", `[{"k":"a","v":1},{"k":"a","v":2},{"k":"b","v":3}]`).StatusCode)
	require.Equal(t, http.StatusOK, f.update(t, "b", `[{"k":"a"},{"k":"c"}]`).StatusCode)

	s, err := stream.Of(f.backend(t), stream.NewIntersect(search("a", "k", "v"), search("b", "k"), "k"),
		stream.WithLogger(logger.Nop()))
	require.NoError(t, err)

	got, err := s.Collect(context.Background())
	require.NoError(t, err)
	if diff := cmp.Diff([]tuple.Tuple{kv("a", 1), kv("a", 2)}, got, tupleEqual); diff != "" {
		t.Fatalf("tuples mismatch (-want +got):\n%s", diff)
	}
}

func TestStream_ResponseShape(t *testing.T) {
	f := newFixture(t, server.Config{})
	f.update(t, "bulk", `[{"k":"a","v":1}]`)

	resp, body := f.stream(t, "bulk", `search(bulk, q="*:*", fl="k,v", sort="k asc")`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.NotEmpty(t, resp.Header.Get("X-Request-Id"))

	docs := gjson.GetBytes(body, "result-set.docs").Array()
	require.Len(t, docs, 2)
	require.Equal(t, "a", docs[0].Get("k").String())
	require.True(t, docs[1].Get("EOF").Bool())
	require.True(t, docs[1].Get("RESPONSE_TIME").Exists())
}

func TestStream_UsageErrors(t *testing.T) {
	f := newFixture(t, server.Config{})

	tests := []struct {
		name string
		src  string
	}{
		{"missing expression", ""},
		{"unparsable", `search(bulk, fl="k"`},
		{"uncompilable", `search(bulk, fl="k")`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := f.stream(t, "bulk", tt.src)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			require.Equal(t, string(errors.ErrCodeInvalidStream), gjson.GetBytes(body, "error.code").String())
			require.NotEmpty(t, gjson.GetBytes(body, "error.msg").String())
		})
	}
}

func TestStream_UsageErrorThroughBackend(t *testing.T) {
	f := newFixture(t, server.Config{})
	b := f.backend(t)

	x, err := expr.Parse(`search(bulk, fl="k")`)
	require.NoError(t, err)
	_, err = b.OpenStream(context.Background(), "bulk", x)
	require.True(t, errors.IsStreamFailure(err))
	require.Contains(t, err.Error(), "sort")
}

func TestStream_SortContractFailureIsExceptionTuple(t *testing.T) {
	f := newFixture(t, server.Config{})
	f.update(t, "a", `[{"k":"a","v":1}]`)

	resp, body := f.stream(t, "a", `unique(search(a, fl="k,v", sort="v asc"), over="k")`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	docs := gjson.GetBytes(body, "result-set.docs").Array()
	require.Len(t, docs, 1)
	require.Contains(t, docs[0].Get("EXCEPTION").String(), "sorted by k")
	require.True(t, docs[0].Get("EOF").Bool())

	unsorted := stream.NewUnique(stream.NewSearch(query.Query{
		Collection: "a", Fields: []string{"k", "v"}, Sort: tuple.Sort{tuple.Ascending("v")},
	}), "k")
	s, err := stream.Of(f.backend(t), unsorted, stream.WithLogger(logger.Nop()))
	require.NoError(t, err)
	_, err = s.Collect(context.Background())
	require.True(t, errors.IsStreamFailure(err))
	require.Contains(t, err.Error(), "sorted by k")
}

func TestStream_BulkheadFull(t *testing.T) {
	f := newFixture(t, server.Config{Bulkhead: resilience.BulkheadConfig{MaxConcurrent: 1, MaxWait: 10 * time.Millisecond}})
	release, err := f.srv.Bulkhead().Acquire(context.Background())
	require.NoError(t, err)
	defer release()

	resp, body := f.stream(t, "bulk", `search(bulk, fl="k", sort="k asc")`)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.Equal(t, string(errors.ErrCodeServiceUnavailable), gjson.GetBytes(body, "error.code").String())
}

func TestUpdate_InvalidBody(t *testing.T) {
	f := newFixture(t, server.Config{})
	resp := f.update(t, "bulk", `{"not":"an array"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	n, err := f.store.Count(context.Background(), "bulk")
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestUpdate_Result(t *testing.T) {
	f := newFixture(t, server.Config{})
	resp := f.update(t, "bulk", `[{"id":"1","k":"a"},{"id":"2","k":"b"},{"id":"1","k":"c"}]`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Data struct {
			Collection string `json:"collection"`
			Indexed    int    `json:"indexed"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "bulk", body.Data.Collection)
	require.Equal(t, 3, body.Data.Indexed)

	n, err := f.store.Count(context.Background(), "bulk")
	require.NoError(t, err)
	require.EqualValues(t, 2, n)
}

func TestHealthAndPing(t *testing.T) {
	f := newFixture(t, server.Config{})

	resp, err := http.Get(f.ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "up", gjson.GetBytes(body, "status").String())
	require.Equal(t, "store", gjson.GetBytes(body, "components.0.name").String())

	require.NoError(t, f.backend(t).Ping(context.Background()))
}

func TestMetrics(t *testing.T) {
	f := newFixture(t, server.Config{})
	f.update(t, "bulk", `[{"k":"a"}]`)
	f.stream(t, "bulk", `search(bulk, fl="k", sort="k asc")`)
	f.stream(t, "bulk", `search(bulk, fl="k")`)

	resp, err := http.Get(f.ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	require.Contains(t, text, `tuplestream_streams_total{status="ok"} 1`)
	require.Contains(t, text, `tuplestream_streams_total{status="invalid"} 1`)
	require.Contains(t, text, "tuplestream_tuples_written_total 1")
	require.Contains(t, text, "go_goroutines")
}

func TestConfig(t *testing.T) {
	var cfg server.Config
	cfg.ApplyDefaults()
	require.Equal(t, 8983, cfg.Port)
	require.Equal(t, 64, cfg.Bulkhead.MaxConcurrent)
	require.NoError(t, cfg.Validate())

	cfg.Port = 70000
	require.Error(t, cfg.Validate())
}
