package middleware_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"

	"github.com/kbukum/tuplestream/logger"
	"github.com/kbukum/tuplestream/server/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRecovery_Panic(t *testing.T) {
	r := gin.New()
	r.Use(middleware.Recovery(logger.Nop()))
	r.GET("/boom", func(*gin.Context) { panic("test panic") })

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/boom", http.NoBody))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if got := gjson.Get(rr.Body.String(), "error.code").String(); got != "INTERNAL_ERROR" {
		t.Fatalf("unexpected error code: %q", got)
	}
}

func TestRequestID(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"generated", ""},
		{"preserved", "custom-id-123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(middleware.RequestID())
			var seen string
			r.GET("/", func(c *gin.Context) {
				seen = logger.RequestIDFromContext(c.Request.Context())
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			if tt.header != "" {
				req.Header.Set(middleware.HeaderRequestID, tt.header)
			}
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			got := rr.Header().Get(middleware.HeaderRequestID)
			if got == "" || got != seen {
				t.Fatalf("response id %q, context id %q", got, seen)
			}
			if tt.header != "" && got != tt.header {
				t.Fatalf("expected %q, got %q", tt.header, got)
			}
		})
	}
}

func TestCORS(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	tests := []struct {
		name       string
		cfg        middleware.CORSConfig
		method     string
		origin     string
		wantStatus int
		wantOrigin string
	}{
		{"allowed", middleware.CORSConfig{AllowedOrigins: []string{"https://example.com"}}, http.MethodGet, "https://example.com", http.StatusOK, "https://example.com"},
		{"wildcard", middleware.CORSConfig{AllowedOrigins: []string{"*"}}, http.MethodGet, "https://app.example.com", http.StatusOK, "https://app.example.com"},
		{"disallowed", middleware.CORSConfig{AllowedOrigins: []string{"https://allowed.com"}}, http.MethodGet, "https://evil.com", http.StatusOK, ""},
		{"preflight", middleware.CORSConfig{AllowedOrigins: []string{"*"}}, http.MethodOptions, "https://app.example.com", http.StatusNoContent, "https://app.example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			req := httptest.NewRequest(tt.method, "/", http.NoBody)
			req.Header.Set("Origin", tt.origin)
			rr := httptest.NewRecorder()
			middleware.CORS(&cfg)(ok).ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rr.Code)
			}
			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Fatalf("expected origin %q, got %q", tt.wantOrigin, got)
			}
			if tt.wantOrigin != "" && rr.Header().Get("Access-Control-Expose-Headers") != middleware.HeaderRequestID {
				t.Fatalf("expected %s to be exposed", middleware.HeaderRequestID)
			}
		})
	}
}

func TestBodySizeLimit(t *testing.T) {
	handler := middleware.BodySizeLimit("1KB")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name string
		size int
		want int
	}{
		{"within limit", 512, http.StatusOK},
		{"over limit", 4096, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", tt.size))))
			if rr.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rr.Code)
			}
		})
	}
}

func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) middleware.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name+"-before")
				next.ServeHTTP(w, r)
				order = append(order, name+"-after")
			})
		}
	}
	handler := middleware.Chain(mark("m1"), mark("m2"))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		order = append(order, "handler")
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	want := []string{"m1-before", "m2-before", "handler", "m2-after", "m1-after"}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, order)
	}
}

func TestRequestLogger_PassesThrough(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RequestLogger(logger.Nop()))
	r.POST("/items", func(c *gin.Context) { c.Status(http.StatusCreated) })
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	for path, want := range map[string]int{"/items": http.StatusCreated, "/health": http.StatusOK} {
		method := http.MethodPost
		if path == "/health" {
			method = http.MethodGet
		}
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(method, path, http.NoBody))
		if rr.Code != want {
			t.Fatalf("%s: expected %d, got %d", path, want, rr.Code)
		}
	}
}
